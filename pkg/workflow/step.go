package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Step is one declared browser operation. Which fields apply depends on
// Type; durations are in milliseconds.
type Step struct {
	Type  string `json:"type" yaml:"type"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
	WaitUntil string `json:"waitUntil,omitempty" yaml:"waitUntil,omitempty"`

	Selector string `json:"selector,omitempty" yaml:"selector,omitempty"`
	Visible  *bool  `json:"visible,omitempty" yaml:"visible,omitempty"`

	Ms       int `json:"ms,omitempty" yaml:"ms,omitempty"`
	Timeout  int `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Duration int `json:"duration,omitempty" yaml:"duration,omitempty"`

	// Click
	ScrollIntoView    bool   `json:"scrollIntoView,omitempty" yaml:"scrollIntoView,omitempty"`
	DelayBefore       int    `json:"delayBefore,omitempty" yaml:"delayBefore,omitempty"`
	DelayAfter        int    `json:"delayAfter,omitempty" yaml:"delayAfter,omitempty"`
	WaitForNavigation bool   `json:"waitForNavigation,omitempty" yaml:"waitForNavigation,omitempty"`
	Button            string `json:"button,omitempty" yaml:"button,omitempty"`
	ClickCount        int    `json:"clickCount,omitempty" yaml:"clickCount,omitempty"`

	// Type
	Text       *string `json:"text,omitempty" yaml:"text,omitempty"`
	Clear      bool    `json:"clear,omitempty" yaml:"clear,omitempty"`
	FocusFirst bool    `json:"focusFirst,omitempty" yaml:"focusFirst,omitempty"`
	Delay      *int    `json:"delay,omitempty" yaml:"delay,omitempty"`

	// Select
	Value StringList `json:"value,omitempty" yaml:"value,omitempty"`

	// Scroll
	To string `json:"to,omitempty" yaml:"to,omitempty"`
	By int    `json:"by,omitempty" yaml:"by,omitempty"`

	// Extract
	All    bool   `json:"all,omitempty" yaml:"all,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// Screenshot
	FullPage bool `json:"fullPage,omitempty" yaml:"fullPage,omitempty"`

	// Evaluate
	Script string `json:"script,omitempty" yaml:"script,omitempty"`

	// decodeErr is the first field that could not be decoded. It is
	// reported when the step is validated, at the step's own index.
	decodeErr *ValidationError
}

// stepFields is Step without its decoding methods.
type stepFields Step

// UnmarshalJSON decodes each field on its own so that one malformed field
// fails only this step, and only when it is validated.
func (s *Step) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		*s = Step{decodeErr: invalid("step", "must be an object")}
		return nil
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var decodeErr *ValidationError
	accepted := make(map[string]json.RawMessage, len(fields))
	for _, key := range keys {
		single, err := json.Marshal(map[string]json.RawMessage{key: fields[key]})
		if err != nil {
			return err
		}
		var check stepFields
		if err := json.Unmarshal(single, &check); err != nil {
			if decodeErr == nil {
				decodeErr = invalid(key, decodeReason(err))
			}
			continue
		}
		accepted[key] = fields[key]
	}

	merged, err := json.Marshal(accepted)
	if err != nil {
		return err
	}
	var decoded stepFields
	if err := json.Unmarshal(merged, &decoded); err != nil {
		return err
	}
	*s = Step(decoded)
	s.decodeErr = decodeErr
	return nil
}

// UnmarshalYAML is the YAML counterpart of UnmarshalJSON.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode {
		*s = Step{decodeErr: invalid("step", "must be a mapping")}
		return nil
	}

	var decodeErr *ValidationError
	accepted := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		single := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{key, value}}
		var check stepFields
		if err := single.Decode(&check); err != nil {
			if decodeErr == nil {
				decodeErr = invalid(key.Value, decodeReason(err))
			}
			continue
		}
		accepted.Content = append(accepted.Content, key, value)
	}

	var decoded stepFields
	if err := accepted.Decode(&decoded); err != nil {
		return err
	}
	*s = Step(decoded)
	s.decodeErr = decodeErr
	return nil
}

func decodeReason(err error) string {
	var jsonErr *json.UnmarshalTypeError
	if errors.As(err, &jsonErr) {
		return fmt.Sprintf("expected %s, got %s", jsonErr.Type, jsonErr.Value)
	}
	var yamlErr *yaml.TypeError
	if errors.As(err, &yamlErr) && len(yamlErr.Errors) > 0 {
		return yamlErr.Errors[0]
	}
	return err.Error()
}

// StringList accepts either a single scalar or a list of scalars.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}

	if len(data) > 0 && data[0] == '[' {
		var items []any
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		list := make(StringList, 0, len(items))
		for _, item := range items {
			str, err := scalarString(item)
			if err != nil {
				return err
			}
			list = append(list, str)
		}
		*s = list
		return nil
	}

	var item any
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	str, err := scalarString(item)
	if err != nil {
		return err
	}
	*s = StringList{str}
	return nil
}

func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*s = nil
			return nil
		}
		*s = StringList{node.Value}
		return nil
	case yaml.SequenceNode:
		list := make(StringList, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: value list items must be scalars", item.Line)
			}
			list = append(list, item.Value)
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("line %d: value must be a scalar or a list", node.Line)
	}
}

func scalarString(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case float64, bool:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("value must be a string, number or bool, got %T", v)
	}
}
