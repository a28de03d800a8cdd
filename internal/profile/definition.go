package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Assignment binds the result of an expression to a variable.
type Assignment struct {
	Variable   string
	Expression string
}

// Assignments keep the order in which they were declared, which is the order
// they are evaluated in.
type Assignments []Assignment

func (a *Assignments) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w (line %d)", ErrInvalidAssignments, node.Line)
	}
	out := make(Assignments, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode || val.Kind != yaml.ScalarNode {
			return fmt.Errorf("%w (line %d)", ErrInvalidAssignments, key.Line)
		}
		out = append(out, Assignment{Variable: key.Value, Expression: val.Value})
	}
	*a = out
	return nil
}

func (a Assignments) validate() error {
	seen := make(map[string]struct{}, len(a))
	for _, asn := range a {
		if strings.TrimSpace(asn.Variable) == "" {
			return ErrEmptyVariable
		}
		if _, dup := seen[asn.Variable]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateVariable, asn.Variable)
		}
		seen[asn.Variable] = struct{}{}
		if strings.TrimSpace(asn.Expression) == "" {
			return fmt.Errorf("%w: variable %q", ErrEmptyExpression, asn.Variable)
		}
	}
	return nil
}

// ResultDefinition is either a single profile expression or a profile
// expression plus named triage expressions.
type ResultDefinition struct {
	Profile string
	Triage  Assignments
}

func (r *ResultDefinition) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		r.Profile = node.Value
		r.Triage = nil
		return nil
	case yaml.MappingNode:
		var raw struct {
			Profile string      `yaml:"profile"`
			Triage  Assignments `yaml:"triage"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		r.Profile = raw.Profile
		r.Triage = raw.Triage
		return nil
	default:
		return fmt.Errorf("result must be an expression or a {profile, triage} mapping (line %d)", node.Line)
	}
}

// Definition describes one profile: how to select messages (onlyif), how to
// derive the entity (foreach), and the init/update/result/groupBy expressions.
type Definition struct {
	Name    string           `yaml:"profile"`
	Foreach string           `yaml:"foreach"`
	OnlyIf  string           `yaml:"onlyif"`
	Init    Assignments      `yaml:"init"`
	Update  Assignments      `yaml:"update"`
	GroupBy []string         `yaml:"groupBy"`
	Result  ResultDefinition `yaml:"result"`
}

// Validate reports structural problems; it does not compile expressions.
func (d *Definition) Validate() error {
	if err := d.validate(); err != nil {
		return fmt.Errorf("%w: profile %q: %w", ErrInvalidDefinition, d.Name, err)
	}
	return nil
}

func (d *Definition) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(d.Foreach) == "" {
		return ErrMissingForeach
	}
	if strings.TrimSpace(d.Result.Profile) == "" {
		return ErrMissingResult
	}
	if err := d.Init.validate(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := d.Update.validate(); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if err := d.Result.Triage.validate(); err != nil {
		return fmt.Errorf("triage: %w", err)
	}
	for i, g := range d.GroupBy {
		if strings.TrimSpace(g) == "" {
			return fmt.Errorf("groupBy[%d]: %w", i, ErrEmptyExpression)
		}
	}
	return nil
}

// ProfilerConfig is the set of profiles applied to the telemetry stream.
// When TimestampField is set, message timestamps come from that field (event
// time); otherwise the processing clock is used.
type ProfilerConfig struct {
	TimestampField string       `yaml:"timestampField"`
	Profiles       []Definition `yaml:"profiles"`
}

func (c *ProfilerConfig) Validate() error {
	names := make(map[string]struct{}, len(c.Profiles))
	for i := range c.Profiles {
		def := &c.Profiles[i]
		if err := def.Validate(); err != nil {
			return err
		}
		if _, dup := names[def.Name]; dup {
			return fmt.Errorf("%w: %w: %q", ErrInvalidDefinition, ErrDuplicateProfile, def.Name)
		}
		names[def.Name] = struct{}{}
	}
	return nil
}

// ParseProfilerConfig decodes YAML (or JSON, which is valid YAML) and
// validates every profile.
func ParseProfilerConfig(data []byte) (*ProfilerConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg ProfilerConfig
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: document is empty", ErrUnmarshalProfiles)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnmarshalProfiles, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseDefinition decodes a single profile definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshalProfiles, err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}
