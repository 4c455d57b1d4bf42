package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Request is a workflow submission.
type Request struct {
	Steps   []Step  `json:"steps" yaml:"steps"`
	Options Options `json:"options" yaml:"options"`
}

// ParseRequest decodes a request from JSON or YAML.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty workflow")
	}

	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &req); err != nil {
			return nil, fmt.Errorf("failed to parse workflow JSON: %w", err)
		}
	} else if err := yaml.Unmarshal(trimmed, &req); err != nil {
		return nil, fmt.Errorf("failed to parse workflow YAML: %w", err)
	}

	if len(req.Steps) == 0 {
		return nil, errors.New("workflow has no steps")
	}
	return &req, nil
}
