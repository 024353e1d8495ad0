package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// ErrMalformedResponse matches every *MalformedResponseError.
var ErrMalformedResponse = errors.New("classifier returned invalid JSON")

// MalformedResponseError carries the offending classifier text so it can be shown to a reviewer.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%v: %v", ErrMalformedResponse, e.Err)
}

func (e *MalformedResponseError) Unwrap() []error { return []error{ErrMalformedResponse, e.Err} }

const fence = "```"

// Normalize strips a surrounding code fence (with an optional language tag) and whitespace.
// Text without a fence comes back trimmed and otherwise unchanged.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, fence) {
		return s
	}
	s = strings.TrimPrefix(s, fence)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// the rest of the opening line is the language tag
		s = s[i+1:]
	} else {
		s = strings.TrimLeftFunc(s, unicode.IsLetter)
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, fence)
	return strings.TrimSpace(s)
}

// Parse normalizes raw and decodes it as a single JSON object.
// Numbers are kept as json.Number.
func Parse(raw string) (Result, error) {
	body := Normalize(raw)
	if body == "" {
		return nil, &MalformedResponseError{Raw: raw, Err: errors.New("empty response")}
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var result Result
	if err := dec.Decode(&result); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}
	if result == nil {
		return nil, &MalformedResponseError{Raw: raw, Err: errors.New("response is not a JSON object")}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, &MalformedResponseError{Raw: raw, Err: errors.New("unexpected content after JSON object")}
	}
	return result, nil
}
