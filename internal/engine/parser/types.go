package parser

import (
	"log/slog"
	"slices"
)

// Rule is one parsed rule block: the targets of a rule line, its
// dependencies and the recipe lines that followed it.
//
// The slices are owned by the parser and reused for the next block, so a
// Rule is only valid for the duration of the RuleFunc call that received it.
// Use Clone to keep one.
type Rule struct {
	Targets      []string
	Dependencies []string
	Recipe       []string
	Line         int // 1-based line of the rule line
}

// Clone returns a copy of r that does not share storage with the parser.
func (r Rule) Clone() Rule {
	return Rule{
		Targets:      slices.Clone(r.Targets),
		Dependencies: slices.Clone(r.Dependencies),
		Recipe:       slices.Clone(r.Recipe),
		Line:         r.Line,
	}
}

// RuleFunc receives each completed rule. Returning an error aborts parsing.
type RuleFunc func(Rule) error

// VariableFunc receives IDENT=VALUE lines when variable recognition is
// enabled. Returning an error aborts parsing.
type VariableFunc func(line int, name, value string) error

type Option func(*Parser)

// WithMultiTarget controls whether a rule line may name several
// space-separated targets. Enabled by default.
func WithMultiTarget(enabled bool) Option {
	return func(p *Parser) {
		p.multiTarget = enabled
	}
}

// WithVariables enables recognition of IDENT=VALUE lines. Values are handed
// to fn verbatim; nothing is expanded.
func WithVariables(fn VariableFunc) Option {
	return func(p *Parser) {
		p.onVariable = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}
