package classifier

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

//go:embed prompts/*.txt
var promptFS embed.FS

// Params are the generation parameters of one task.
type Params struct {
	MaxTokens   int
	Temperature float64
}

var defaultParams = map[Task]Params{
	TaskTraffic: {MaxTokens: 1000, Temperature: 0.1},
	TaskTriage:  {MaxTokens: 2000, Temperature: 0.2},
	TaskUpdate:  {MaxTokens: 1500, Temperature: 0.2},
}

// Instructions holds the system instruction of every task.
type Instructions map[Task]string

// LoadInstructions reads <task>.txt from dir. Files missing from dir fall back to the embedded copy.
// An empty dir uses the embedded prompts only.
func LoadInstructions(dir string) (Instructions, error) {
	out := make(Instructions, len(Tasks))
	for _, task := range Tasks {
		name := string(task) + ".txt"
		data, err := promptFS.ReadFile("prompts/" + name)
		if err != nil {
			return nil, fmt.Errorf("classifier: embedded prompt %s: %w", name, err)
		}
		if dir != "" {
			override, err := os.ReadFile(filepath.Join(dir, name))
			switch {
			case err == nil:
				data = override
			case errors.Is(err, fs.ErrNotExist):
			default:
				return nil, fmt.Errorf("classifier: read prompt %s: %w", name, err)
			}
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return nil, fmt.Errorf("classifier: prompt %s is empty", name)
		}
		out[task] = text
	}
	return out, nil
}

// Prompt builds the request for task around text with the task's generation parameters.
func (in Instructions) Prompt(task Task, text string) Prompt {
	p := defaultParams[task]
	return Prompt{
		Task:        task,
		Instruction: in[task],
		Text:        text,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	}
}
