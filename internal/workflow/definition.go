package workflow

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

var validate = validator.New()

// Definition is the external, document form of a workflow: an ordered
// list of task descriptors, typically supplied as YAML or JSON.
type Definition struct {
	Name  string           `json:"name,omitempty" yaml:"name"`
	Tasks []TaskDefinition `json:"tasks" yaml:"tasks" validate:"required,min=1,dive"`
}

// TaskDefinition is one task descriptor in a definition document.
type TaskDefinition struct {
	ID         string         `json:"id,omitempty" yaml:"id"`
	Type       string         `json:"type" yaml:"type" validate:"required"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters"`
	Critical   bool           `json:"critical" yaml:"critical"`
	CacheAs    string         `json:"cache_as,omitempty" yaml:"cache_as"`
}

// ParseDefinition converts a definition document into an executable
// request, rejecting unknown task types up front.
func ParseDefinition(def Definition) (Request, error) {
	if err := validate.Struct(def); err != nil {
		return Request{}, fmt.Errorf("invalid workflow definition: %w", err)
	}

	req := Request{Name: def.Name, Tasks: make([]Task, 0, len(def.Tasks))}
	for _, td := range def.Tasks {
		taskType, err := ParseTaskType(td.Type)
		if err != nil {
			return Request{}, err
		}
		req.Tasks = append(req.Tasks, Task{
			ID:         td.ID,
			Type:       taskType,
			Parameters: Parameters(td.Parameters),
			Critical:   td.Critical,
			CacheAs:    td.CacheAs,
		})
	}
	return req, nil
}

// LoadDefinition reads a workflow definition from a YAML or JSON file.
func LoadDefinition(path string) (Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Request{}, fmt.Errorf("failed to read workflow definition: %w", err)
	}
	return UnmarshalDefinition(data)
}

// UnmarshalDefinition parses definition bytes, trying JSON first and
// falling back to YAML.
func UnmarshalDefinition(data []byte) (Request, error) {
	var def Definition
	if jsonErr := json.Unmarshal(data, &def); jsonErr != nil {
		if yamlErr := yaml.Unmarshal(data, &def); yamlErr != nil {
			return Request{}, fmt.Errorf("failed to parse workflow definition: %w", yamlErr)
		}
	}
	return ParseDefinition(def)
}
