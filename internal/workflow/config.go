package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Task is one step of a workflow: a display name, the absolute name of
// the function to run, its scalar inputs, and the names its outputs are
// published under.
type Task struct {
	Name     string         `json:"name"`
	Function string         `json:"function"`
	Inputs   map[string]any `json:"inputs"`
	Outputs  []string       `json:"outputs,omitempty"`
}

// Config is a workflow configuration file: experiment bookkeeping plus
// an ordered task list.
type Config struct {
	Instrument string `json:"instrument"`
	IPTS       string `json:"ipts"`
	Name       string `json:"name"`
	WorkingDir string `json:"workingdir"`
	OutputDir  string `json:"outputdir"`
	Tasks      []Task `json:"tasks"`
}

// ValidationError reports a structurally invalid workflow config,
// independent of whether the JSON itself parsed.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, v ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, v...)}
}

// Load reads and parses a workflow config file. The file must have a
// .json extension and stay under the max config size; validation
// against a registry is a separate call.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("workflow config must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat workflow config: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("workflow config too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a workflow config from JSON. Unknown keys are allowed;
// configs routinely carry fields meant for other pipeline stages.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse workflow config JSON: %w", err)
	}
	return cfg, nil
}

// Validate checks cfg structurally and resolves every task function
// against reg. The first problem found is returned as a
// ValidationError.
func (c *Config) Validate(reg *Registry) error {
	if reg == nil {
		return validationErrorf("nil registry")
	}
	for _, field := range []struct {
		name, value string
	}{
		{"instrument", c.Instrument},
		{"ipts", c.IPTS},
		{"name", c.Name},
		{"workingdir", c.WorkingDir},
		{"outputdir", c.OutputDir},
	} {
		if field.value == "" {
			return validationErrorf("missing required field %q", field.name)
		}
	}
	if len(c.Tasks) == 0 {
		return validationErrorf("workflow needs at least one task")
	}

	for i, task := range c.Tasks {
		if task.Name == "" {
			return validationErrorf("task %d: missing name", i)
		}
		if task.Inputs == nil {
			return validationErrorf("task %d (%s): missing inputs", i, task.Name)
		}
		fn := strings.TrimSpace(task.Function)
		if fn == "" {
			return validationErrorf("task %d (%s): empty function", i, task.Name)
		}
		if !strings.Contains(fn, ".") {
			return validationErrorf("task %d (%s): function %q is not an absolute specification", i, task.Name, fn)
		}
		if _, ok := reg.Lookup(fn); !ok {
			return validationErrorf("task %d (%s): unknown function %q", i, task.Name, fn)
		}
	}
	return nil
}
