package classifier

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemaOnce sync.Once
	schemas    map[Task]*gojsonschema.Schema
	schemaErr  error
)

func loadSchemas() {
	schemas = make(map[Task]*gojsonschema.Schema)
	for _, task := range []Task{TaskTraffic, TaskTriage, TaskUpdate} {
		data, err := schemaFS.ReadFile("schemas/" + string(task) + ".json")
		if err != nil {
			schemaErr = fmt.Errorf("classifier: read schema %s: %w", task, err)
			return
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			schemaErr = fmt.Errorf("classifier: compile schema %s: %w", task, err)
			return
		}
		schemas[task] = s
	}
}

// SchemaError lists where a parsed decision departs from the schema of its task.
// It never makes a decision unusable; Classify logs it and returns the decision.
type SchemaError struct {
	Task    Task
	Details []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s decision does not match schema: %s", e.Task, strings.Join(e.Details, "; "))
}

// Validate checks a normalized classifier body against the schema of task.
// Tasks without a schema pass. Off-schema bodies return a *SchemaError.
func Validate(task Task, raw string) error {
	schemaOnce.Do(loadSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	s, ok := schemas[task]
	if !ok {
		return nil
	}

	res, err := s.Validate(gojsonschema.NewStringLoader(Normalize(raw)))
	if err != nil {
		return &SchemaError{Task: task, Details: []string{err.Error()}}
	}
	if res.Valid() {
		return nil
	}
	details := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		details = append(details, e.String())
	}
	return &SchemaError{Task: task, Details: details}
}
