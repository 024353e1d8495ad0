package classifier

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"route":"triage"}`, `{"route":"triage"}`},
		{"whitespace", "\n  {\"route\":\"triage\"}  \n", `{"route":"triage"}`},
		{"fence with tag", "```json\n{\"route\":\"triage\"}\n```", `{"route":"triage"}`},
		{"fence without tag", "```\n{\"route\":\"triage\"}\n```", `{"route":"triage"}`},
		{"fence on one line", "```json {\"route\":\"triage\"}```", `{"route":"triage"}`},
		{"fence without closing", "```json\n{\"route\":\"triage\"}", `{"route":"triage"}`},
		{"surrounding whitespace", "  ```json\n  {\"a\":1}\n```  \n", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse_FencedEqualsPlain(t *testing.T) {
	body := `{"route":"update","jobNumber":"TOW 023","round":2,"nested":{"ok":true}}`
	plain, err := Parse(body)
	if err != nil {
		t.Fatalf("plain: %v", err)
	}
	fenced, err := Parse("```json\n" + body + "\n```")
	if err != nil {
		t.Fatalf("fenced: %v", err)
	}
	if diff := cmp.Diff(plain, fenced); diff != "" {
		t.Errorf("fenced result differs (-plain +fenced):\n%s", diff)
	}
	if plain["round"] != json.Number("2") {
		t.Errorf("expected round as json.Number, got %T %v", plain["round"], plain["round"])
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", "   "},
		{"prose", "Sure! Here is the routing decision."},
		{"array", `["triage"]`},
		{"null", "null"},
		{"truncated", `{"route":"tri`},
		{"trailing text", `{"route":"triage"} thanks`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
			var mre *MalformedResponseError
			if !errors.As(err, &mre) {
				t.Fatalf("expected *MalformedResponseError, got %T", err)
			}
			if mre.Raw != tt.raw {
				t.Errorf("raw text not preserved: %q", mre.Raw)
			}
		})
	}
}
