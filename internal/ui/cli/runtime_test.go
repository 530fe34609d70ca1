package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mymake/internal/core/app"
	"mymake/internal/core/config"
	"mymake/internal/core/errors"
)

// inTempProject switches into a fresh directory holding a default makefile.
func inTempProject(t *testing.T, makefile string) string {
	t.Helper()
	dir := t.TempDir()
	chdirForTest(t, dir)
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	if makefile != "" {
		if err := os.WriteFile(config.DefaultMakefile, []byte(makefile), 0o644); err != nil {
			t.Fatalf("write makefile: %v", err)
		}
	}
	return dir
}

// chdirForTest mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

// testContext mirrors testing.T.Context (Go 1.24+) for older toolchains.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := Run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_BuildsDefaultGoalThenReportsUpToDate(t *testing.T) {
	inTempProject(t, "out: in\n\ttouch out\n")
	if err := os.WriteFile("in", nil, 0o644); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := runCLI()
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr)
	}
	if !strings.Contains(stdout, "touch out") {
		t.Fatalf("expected recipe echo, got %q", stdout)
	}
	if _, err := os.Stat("out"); err != nil {
		t.Fatalf("expected out to be built: %v", err)
	}

	code, stdout, _ = runCLI("out")
	if code != 0 {
		t.Fatalf("expected exit 0 on second run, got %d", code)
	}
	if !strings.Contains(stdout, "No need to build out.") {
		t.Fatalf("expected up-to-date message, got %q", stdout)
	}
}

func TestRun_DryRunAndVerbose(t *testing.T) {
	inTempProject(t, "out:\n\ttouch out\n")

	code, stdout, _ := runCLI("-n", "-v")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(stdout, "touch out") {
		t.Fatalf("expected recipe echo, got %q", stdout)
	}
	if _, err := os.Stat("out"); !os.IsNotExist(err) {
		t.Fatalf("dry run must not execute recipes, stat err = %v", err)
	}
}

func TestRun_MakefileFlag(t *testing.T) {
	dir := inTempProject(t, "")
	path := filepath.Join(dir, "build.mk")
	if err := os.WriteFile(path, []byte("all:\n\ttrue\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if code, _, stderr := runCLI("-f", path); code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr)
	}
	code, _, stderr := runCLI("-f", filepath.Join(dir, "missing.mk"))
	if code != 1 {
		t.Fatalf("expected exit 1 for a missing makefile, got %d", code)
	}
	if !strings.HasPrefix(stderr, "Error: ") || !strings.Contains(stderr, "cannot open makefile") {
		t.Fatalf("unexpected stderr %q", stderr)
	}
}

func TestRun_RecipeFailureExitsOne(t *testing.T) {
	inTempProject(t, "all:\n\tfalse\n")

	code, _, stderr := runCLI()
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "Error: recipe for all failed") {
		t.Fatalf("unexpected stderr %q", stderr)
	}
}

func TestRun_UnknownGoal(t *testing.T) {
	inTempProject(t, "all:\n\ttrue\n")

	code, _, stderr := runCLI("nope")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "Error: unable to find target nope.") {
		t.Fatalf("unexpected stderr %q", stderr)
	}
}

func TestRun_ParseErrorsCarryPosition(t *testing.T) {
	inTempProject(t, "ok:\n\ttrue\na:b:\n")

	code, _, stderr := runCLI()
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, config.DefaultMakefile+":3: ") || !strings.Contains(stderr, "more than one ':'") {
		t.Fatalf("unexpected stderr %q", stderr)
	}
}

func TestRun_DuplicateRecipeReportsInnermostCause(t *testing.T) {
	inTempProject(t, "a:\n\ttrue\na:\n\ttrue\n")

	code, _, stderr := runCLI()
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	want := "Error: " + config.DefaultMakefile + ":3: multiple recipes for a.\n"
	if stderr != want {
		t.Fatalf("expected %q, got %q", want, stderr)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	inTempProject(t, "all:\n\ttrue\n")

	cases := [][]string{
		{"--no-such-flag"},
		{"--ui"},
		{"--watch", "--check"},
		{"--why", "only-one"},
		{"--history-list", "0"},
		{"--json"},
		{"--log-level", "loud"},
	}
	for _, args := range cases {
		code, _, stderr := runCLI(args...)
		if code != 2 {
			t.Fatalf("%v: expected exit 2, got %d", args, code)
		}
		if !strings.Contains(stderr, "mymake --help") {
			t.Fatalf("%v: expected usage hint, got %q", args, stderr)
		}
	}
}

func TestRun_Check(t *testing.T) {
	inTempProject(t, "a: b\n\ttrue\nb: a\n\ttrue\n")

	code, stdout, _ := runCLI("--check")
	if code != 1 {
		t.Fatalf("expected exit 1 when cycles exist, got %d", code)
	}
	if !strings.Contains(stdout, "Cycle: ") {
		t.Fatalf("expected cycle report, got %q", stdout)
	}

	if err := os.WriteFile(config.DefaultMakefile, []byte("a: b\n\ttrue\nb:\n\ttrue\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, stdout, _ = runCLI("--check")
	if code != 0 || !strings.Contains(stdout, "No dependency cycles found.") {
		t.Fatalf("expected clean check, got %d %q", code, stdout)
	}
}

func TestRun_Why(t *testing.T) {
	inTempProject(t, "app: main.o\n\ttrue\nmain.o: main.c\n\ttrue\n")

	code, stdout, _ := runCLI("--why", "app:main.c")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(stdout, "Dependency chain: app -> main.o -> main.c") {
		t.Fatalf("unexpected chain %q", stdout)
	}

	code, _, stderr := runCLI("--why", "main.c:app")
	if code != 1 || !strings.Contains(stderr, "main.c does not depend on app") {
		t.Fatalf("expected failure for a reversed chain, got %d %q", code, stderr)
	}
}

func TestRun_Graph(t *testing.T) {
	dir := inTempProject(t, "app: main.o\n\ttrue\nmain.o: main.c\n\ttrue\n")
	out := filepath.Join(dir, "graphs", "deps.dot")

	code, stdout, stderr := runCLI("--graph", out)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr)
	}
	if !strings.Contains(stdout, out) {
		t.Fatalf("expected path in output, got %q", stdout)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read graph: %v", err)
	}
	if !strings.HasPrefix(string(data), "digraph dependencies {") {
		t.Fatalf("unexpected graph output %q", data)
	}
}

func TestRun_HistoryRecordAndList(t *testing.T) {
	inTempProject(t, "out:\n\ttrue\n")

	if code, _, stderr := runCLI("--history"); code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr)
	}
	if _, err := os.Stat(config.DefaultHistoryPath); err != nil {
		t.Fatalf("expected history database: %v", err)
	}

	code, stdout, _ := runCLI("--history-list", "5")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one run, got %q", stdout)
	}
	if !strings.HasPrefix(lines[0], "Started\tGoal") || !strings.Contains(lines[1], "\tout\t") {
		t.Fatalf("unexpected listing %q", stdout)
	}

	code, stdout, _ = runCLI("--history-list", "5", "--json")
	if code != 0 || !strings.Contains(stdout, `"schema_version"`) {
		t.Fatalf("expected JSON listing, got %d %q", code, stdout)
	}
}

func TestRun_HistoryListCorruptDatabase(t *testing.T) {
	inTempProject(t, "")
	if err := os.MkdirAll(filepath.Dir(config.DefaultHistoryPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(config.DefaultHistoryPath, bytes.Repeat([]byte("garbage "), 512), 0o644); err != nil {
		t.Fatal(err)
	}

	code, _, stderr := runCLI("--history-list", "3")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, config.DefaultHistoryPath+": history database is corrupt") {
		t.Fatalf("unexpected stderr %q", stderr)
	}
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI("--version")
	if code != 0 || !strings.Contains(stdout, Version) {
		t.Fatalf("expected version output, got %d %q", code, stdout)
	}
}

func TestParseWhy(t *testing.T) {
	from, to, err := parseWhy(" app : main.c ")
	if err != nil || from != "app" || to != "main.c" {
		t.Fatalf("unexpected parse result %q %q %v", from, to, err)
	}
	for _, bad := range []string{"app", ":main.c", "app:", ""} {
		if _, _, err := parseWhy(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestDescribeError(t *testing.T) {
	inner := errors.AddContext(errors.New(errors.CodeDuplicateRecipe, "multiple recipes for a"), errors.CtxLine, 7)
	outer := errors.AddContext(errors.Wrap(inner, errors.CodeAborted, "parsing stopped by handler"), errors.CtxPath, "build.mk")
	if got := describeError(outer); got != "build.mk:7: multiple recipes for a" {
		t.Fatalf("unexpected description %q", got)
	}

	plain := errors.New(errors.CodeNotFound, "unable to find target x")
	if got := describeError(plain); got != "unable to find target x" {
		t.Fatalf("unexpected description %q", got)
	}
}

func TestObservabilityServer_Handlers(t *testing.T) {
	a, err := app.NewWithDependencies(config.Default(), app.Dependencies{})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()
	srv := NewObservabilityServer("127.0.0.1:0", app.NewHealthService(a))
	h := srv.handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a loaded graph, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"graph":"missing"`) {
		t.Fatalf("unexpected health body %q", rec.Body.String())
	}

	if err := a.LoadReader(testContext(t), strings.NewReader("all:\n\ttrue\n")); err != nil {
		t.Fatalf("load: %v", err)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 once loaded, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "mymake_") {
		t.Fatalf("expected metrics output, got %d", rec.Code)
	}
}

func TestObservabilityServer_StartStop(t *testing.T) {
	a, err := app.NewWithDependencies(config.Default(), app.Dependencies{})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()
	srv := NewObservabilityServer("127.0.0.1:0", app.NewHealthService(a))
	if err := srv.Start(testContext(t)); err != nil {
		t.Fatalf("start: %v", err)
	}
	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	resp.Body.Close()
	if err := srv.Stop(testContext(t)); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
