package parser

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mymake/internal/core/errors"
)

func collect(t *testing.T, src string, opts ...Option) ([]Rule, error) {
	t.Helper()
	var rules []Rule
	err := New(opts...).Parse(strings.NewReader(src), func(r Rule) error {
		rules = append(rules, r.Clone())
		return nil
	})
	return rules, err
}

func TestParse_SingleRuleWithoutDependencies(t *testing.T) {
	rules, err := collect(t, "a:\n")
	require.NoError(t, err)

	want := []Rule{{Targets: []string{"a"}, Line: 1}}
	if diff := cmp.Diff(want, rules, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_BlankLineDoesNotCloseRecipe(t *testing.T) {
	src := "test:\n\tcmd1\n\n\tcmd2\n"
	rules, err := collect(t, src)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, []string{"cmd1", "cmd2"}, rules[0].Recipe)
}

func TestParse_WhitespaceAfterTabIsARecipe(t *testing.T) {
	rules, err := collect(t, "a:\n\t  \n\t\n\techo hi\n")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, []string{"  ", "echo hi"}, rules[0].Recipe, "only a lone tab is an empty recipe line")

	_, err = collect(t, "\t  \n")
	assert.True(t, errors.IsCode(err, errors.CodeParse))
}

func TestParse_MultipleRulesInFileOrder(t *testing.T) {
	src := strings.Join([]string{
		"# build the app",
		"app: main.o util.o",
		"\tcc -o app main.o util.o",
		"",
		"main.o: main.c   defs.h # header too",
		"\tcc -c main.c",
		"\t",
		"",
		"  \tcc -c again.c",
		"clean:",
		"\trm -f app *.o",
	}, "\n")

	rules, err := collect(t, src)
	require.NoError(t, err)

	want := []Rule{
		{
			Targets:      []string{"app"},
			Dependencies: []string{"main.o", "util.o"},
			Recipe:       []string{"cc -o app main.o util.o"},
			Line:         2,
		},
		{
			Targets:      []string{"main.o"},
			Dependencies: []string{"main.c", "defs.h"},
			Recipe:       []string{"cc -c main.c", "cc -c again.c"},
			Line:         5,
		},
		{
			Targets: []string{"clean"},
			Recipe:  []string{"rm -f app *.o"},
			Line:    10,
		},
	}
	if diff := cmp.Diff(want, rules, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_MultiTarget(t *testing.T) {
	rules, err := collect(t, "a b\tc: d e\n\techo shared\n")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, []string{"a", "b", "c"}, rules[0].Targets)
	assert.Equal(t, []string{"d", "e"}, rules[0].Dependencies)

	_, err = collect(t, "a b: d\n", WithMultiTarget(false))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParse))
}

func TestParse_GrammarErrors(t *testing.T) {
	cases := []struct {
		name   string
		src    string
		reason string
		line   int
	}{
		{name: "multiple colons", src: "a:b:\n", reason: "more than one ':'", line: 1},
		{name: "invalid character", src: "ok:\nb@d: x\n", reason: "invalid character '@'", line: 2},
		{name: "orphan recipe", src: "\techo hi\n", reason: "recipe line outside of a rule", line: 1},
		{name: "no colon", src: "app main.o\n", reason: "neither a rule nor a recipe", line: 1},
		{name: "missing target", src: ": dep\n", reason: "rule has no target", line: 1},
		{name: "escaped hash is not a comment", src: "a\\#b: c\n", reason: "invalid character '\\\\'", line: 1},
		{name: "equals without variables", src: "CC=gcc\n", reason: "invalid character '='", line: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := collect(t, tc.src)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeParse), "expected parse error, got %v", err)
			assert.Contains(t, err.Error(), tc.reason)

			var de *errors.DomainError
			require.True(t, stderrors.As(err, &de))
			assert.Equal(t, tc.line, de.Context[errors.CtxLine])
		})
	}
}

func TestParse_ErrorStopsBeforeEmittingPreviousRule(t *testing.T) {
	rules, err := collect(t, "a: b\n\techo a\nbad!: c\n")
	require.Error(t, err)
	assert.Empty(t, rules, "the open rule must not be emitted once parsing fails")
}

func TestParse_Comments(t *testing.T) {
	src := "# leading comment\napp: dep # trailing\n\techo \\# not a comment # but this is\n#\tnot a recipe\n"
	rules, err := collect(t, src)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, []string{"dep"}, rules[0].Dependencies)
	assert.Equal(t, []string{"echo \\# not a comment "}, rules[0].Recipe)
}

func TestParse_HandlerAbort(t *testing.T) {
	stop := stderrors.New("duplicate recipe")
	calls := 0
	err := New().Parse(strings.NewReader("a:\nb:\nc:\n"), func(r Rule) error {
		calls++
		if r.Targets[0] == "b" {
			return stop
		}
		return nil
	})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeAborted))
	assert.False(t, errors.IsCode(err, errors.CodeParse))
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)
}

func TestParse_EmptyInputAndMissingFinalNewline(t *testing.T) {
	rules, err := collect(t, "")
	require.NoError(t, err)
	assert.Empty(t, rules)

	rules, err = collect(t, "\n   \n# only comments\n")
	require.NoError(t, err)
	assert.Empty(t, rules)

	rules, err = collect(t, "x: y\n\ttouch x")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, []string{"touch x"}, rules[0].Recipe)
}

func TestParse_NoLengthLimits(t *testing.T) {
	long := strings.Repeat("d", 1<<20)
	deps := make([]string, 500)
	for i := range deps {
		deps[i] = "dep" + strings.Repeat("x", i)
	}
	src := "t: " + long + " " + strings.Join(deps, " ") + "\n\t" + strings.Repeat("echo ", 100000) + "\n"

	rules, err := collect(t, src)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Len(t, rules[0].Dependencies, 501)
	assert.Equal(t, long, rules[0].Dependencies[0])
}

func TestParse_RuleStorageIsReused(t *testing.T) {
	var kept []Rule
	err := New().Parse(strings.NewReader("a: x\nb: y\n"), func(r Rule) error {
		kept = append(kept, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, kept, 2)
	// The first event's slices were overwritten by the second block.
	assert.Equal(t, "b", kept[0].Targets[0])
}

func TestParse_VariableHook(t *testing.T) {
	type assignment struct {
		line        int
		name, value string
	}
	var vars []assignment
	var rules []Rule

	src := "CC=gcc -O2\napp: main.o\n\t$(CC) main.o\nCFLAGS= -Wall\n_x9=\n"
	err := New(WithVariables(func(line int, name, value string) error {
		vars = append(vars, assignment{line, name, value})
		return nil
	})).Parse(strings.NewReader(src), func(r Rule) error {
		rules = append(rules, r.Clone())
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []assignment{
		{1, "CC", "gcc -O2"},
		{4, "CFLAGS", " -Wall"},
		{5, "_x9", ""},
	}, vars)
	require.Len(t, rules, 1)
	assert.Equal(t, []string{"$(CC) main.o"}, rules[0].Recipe)

	_, err = collect(t, "9x=1\n", WithVariables(func(int, string, string) error { return nil }))
	assert.True(t, errors.IsCode(err, errors.CodeParse), "identifiers cannot start with a digit")

	_, err = collect(t, "a:\nX=1\n\techo orphan\n", WithVariables(func(int, string, string) error { return nil }))
	assert.True(t, errors.IsCode(err, errors.CodeParse), "an assignment closes the recipe block")
}
