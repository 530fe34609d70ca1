// Package parser reads the mymake dialect: a strict, line-oriented subset of
// make.
//
//	# comment, '\#' escapes a hash
//	app main.o: main.c util.h
//		cc -c main.c
//
//		cc -o app main.o
//
// A rule line names one or more targets, a colon and zero or more
// dependencies. Names use only [A-Za-z0-9_.-/]. Lines starting with a tab
// after leading spaces are removed are recipe commands for the open rule.
// Blank lines never close a recipe block; the next rule line or end of input
// does. Any grammar error stops parsing; there is no resynchronization.
package parser

import (
	"bufio"
	"io"
	"log/slog"
	"strings"

	"mymake/internal/core/errors"
)

type Parser struct {
	multiTarget bool
	onVariable  VariableFunc
	logger      *slog.Logger
}

func New(opts ...Option) *Parser {
	p := &Parser{
		multiTarget: true,
		logger:      slog.Default().With("component", "parser"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// parseState is the per-call accumulator. Parser itself holds no state
// between calls, so one Parser may be reused sequentially.
type parseState struct {
	p    *Parser
	fn   RuleFunc
	open bool
	rule Rule
}

// Parse reads r to the end and calls fn once per rule block. It fails with a
// CodeParse error on the first grammar violation and with CodeAborted when fn
// or the variable callback returns an error.
func (p *Parser) Parse(r io.Reader, fn RuleFunc) error {
	st := &parseState{p: p, fn: fn}
	reader := bufio.NewReader(r)

	lineNo := 0
	for {
		raw, readErr := reader.ReadString('\n')
		if len(raw) > 0 {
			lineNo++
			if err := st.consume(lineNo, strings.TrimSuffix(raw, "\n")); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return errors.Wrap(readErr, errors.CodeInternal, "read makefile")
		}
	}

	if st.open {
		return st.emit()
	}
	return nil
}

func (st *parseState) consume(lineNo int, raw string) error {
	line := strings.TrimLeft(stripComment(raw), " ")
	// A lone tab is an empty recipe line; whitespace after the tab is a
	// recipe of its own.
	if line == "" || line == "\t" {
		return nil
	}
	if line[0] != '\t' && strings.TrimSpace(line) == "" {
		return nil
	}

	if line[0] == '\t' {
		if !st.open {
			return parseError(lineNo, "recipe line outside of a rule")
		}
		st.rule.Recipe = append(st.rule.Recipe, line[1:])
		return nil
	}

	if st.p.onVariable != nil {
		if name, value, ok := splitAssignment(line); ok {
			return st.variable(lineNo, name, value)
		}
	}

	return st.ruleLine(lineNo, line)
}

func (st *parseState) ruleLine(lineNo int, line string) error {
	colon, reason := ruleColon(line)
	if reason != "" {
		return parseError(lineNo, reason)
	}

	lhs, rhs := line[:colon], line[colon+1:]
	targetCount := len(appendWords(nil, lhs))
	if targetCount == 0 {
		return parseError(lineNo, "rule has no target")
	}
	if targetCount > 1 && !st.p.multiTarget {
		return parseError(lineNo, "multiple targets in one rule are not supported")
	}

	if st.open {
		if err := st.emit(); err != nil {
			return err
		}
	}

	st.open = true
	st.rule.Line = lineNo
	st.rule.Targets = appendWords(st.rule.Targets[:0], lhs)
	st.rule.Dependencies = appendWords(st.rule.Dependencies[:0], rhs)
	st.rule.Recipe = st.rule.Recipe[:0]
	return nil
}

// variable closes any open rule before reporting the assignment so events
// arrive in file order.
func (st *parseState) variable(lineNo int, name, value string) error {
	if st.open {
		if err := st.emit(); err != nil {
			return err
		}
		st.open = false
	}
	if err := st.p.onVariable(lineNo, name, value); err != nil {
		return abortError(lineNo, err)
	}
	return nil
}

func (st *parseState) emit() error {
	st.p.logger.Debug("rule parsed",
		"line", st.rule.Line,
		"targets", st.rule.Targets,
		"dependencies", len(st.rule.Dependencies),
		"recipe", len(st.rule.Recipe),
	)
	if st.fn == nil {
		return nil
	}
	if err := st.fn(st.rule); err != nil {
		return abortError(st.rule.Line, err)
	}
	return nil
}

func parseError(lineNo int, reason string) error {
	return (&errors.DomainError{Code: errors.CodeParse, Message: reason}).
		WithContext(errors.CtxLine, lineNo)
}

func abortError(lineNo int, cause error) error {
	return (&errors.DomainError{Code: errors.CodeAborted, Message: "parsing stopped by handler", Err: cause}).
		WithContext(errors.CtxLine, lineNo)
}
