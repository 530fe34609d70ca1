package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"mymake/internal/core/errors"
	"mymake/internal/engine/parser"
)

type Format string

const (
	FormatMake Format = "make"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatMake, FormatYAML, FormatJSON:
		return f, nil
	case "":
		return FormatMake, nil
	default:
		return "", errors.Newf(errors.CodeValidationError, "unknown output format %q (want make, yaml or json)", s)
	}
}

// Entry is one parser event in file order.
type Entry struct {
	Line     int            `json:"line" yaml:"line"`
	Rule     *RuleEntry     `json:"rule,omitempty" yaml:"rule,omitempty"`
	Variable *VariableEntry `json:"variable,omitempty" yaml:"variable,omitempty"`
}

type RuleEntry struct {
	Targets      []string `json:"targets" yaml:"targets"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Recipe       []string `json:"recipe,omitempty" yaml:"recipe,omitempty"`
}

type VariableEntry struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// RuleFormatter prints parser events. The make format streams each event as
// it arrives; the structured formats buffer them until Flush.
type RuleFormatter struct {
	w       io.Writer
	format  Format
	entries []Entry
}

func NewRuleFormatter(w io.Writer, format Format) *RuleFormatter {
	return &RuleFormatter{w: w, format: format}
}

// Rule is a parser.RuleFunc.
func (f *RuleFormatter) Rule(r parser.Rule) error {
	if f.format != FormatMake {
		c := r.Clone()
		f.entries = append(f.entries, Entry{
			Line: r.Line,
			Rule: &RuleEntry{Targets: c.Targets, Dependencies: c.Dependencies, Recipe: c.Recipe},
		})
		return nil
	}

	var b strings.Builder
	b.WriteString(strings.Join(r.Targets, " "))
	b.WriteByte(':')
	for _, dep := range r.Dependencies {
		b.WriteByte(' ')
		b.WriteString(dep)
	}
	b.WriteByte('\n')
	for _, line := range r.Recipe {
		b.WriteByte('\t')
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(f.w, b.String())
	return err
}

// Variable is a parser.VariableFunc.
func (f *RuleFormatter) Variable(line int, name, value string) error {
	if f.format != FormatMake {
		f.entries = append(f.entries, Entry{Line: line, Variable: &VariableEntry{Name: name, Value: value}})
		return nil
	}
	_, err := fmt.Fprintf(f.w, "%s=%s\n", name, value)
	return err
}

// Flush writes buffered events. It is a no-op for the make format.
func (f *RuleFormatter) Flush() error {
	entries := f.entries
	if entries == nil {
		entries = []Entry{}
	}
	switch f.format {
	case FormatYAML:
		enc := yaml.NewEncoder(f.w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "encode yaml")
		}
		return enc.Close()
	case FormatJSON:
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "encode json")
		}
		_, err = f.w.Write(append(data, '\n'))
		return err
	}
	return nil
}
