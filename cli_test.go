package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCmdCheckAcceptsValidSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.ad")
	if err := os.WriteFile(src, []byte("fn main() -> i32 { return 0 }"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := &CommandContext{Platform: DefaultPlatform()}
	if code := cmdCheck(ctx, []string{src}); code != int(ExitOK) {
		t.Fatalf("expected exit code %d for valid source, got %d", ExitOK, code)
	}
}

func TestCmdCheckReportsCompileError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.ad")
	if err := os.WriteFile(src, []byte("fn main() -> i32 { return undefinedThing }"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := &CommandContext{Platform: DefaultPlatform()}
	if code := cmdCheck(ctx, []string{src}); code != int(ExitCompile) {
		t.Fatalf("expected exit code %d for an undefined symbol, got %d", ExitCompile, code)
	}
}

func TestCmdCheckMissingFileIsIOError(t *testing.T) {
	ctx := &CommandContext{Platform: DefaultPlatform()}
	if code := cmdCheck(ctx, []string{"/nonexistent/path/main.ad"}); code != int(ExitIO) {
		t.Fatalf("expected exit code %d for a missing file, got %d", ExitIO, code)
	}
}

func TestPrintDiagnosticsPlainTextMatchesSpecFormat(t *testing.T) {
	var buf bytes.Buffer
	ec := NewErrorCollector(1)
	ec.AddError(toCompilerError(&TypeError{Kind: ErrUndefinedSymbol, Span: Span{StartLine: 3, StartCol: 5}, Message: "undefined symbol 'x'"}, "main.ad"))
	buf.WriteString(ec.Report(false))
	out := buf.String()
	if !strings.Contains(out, "error[E201]: undefined symbol 'x'") {
		t.Fatalf("expected an error[Exxx] header, got %q", out)
	}
	if !strings.Contains(out, "--> main.ad:3:5") {
		t.Fatalf("expected a --> file:line:col location, got %q", out)
	}
}

func TestPrintDiagnosticsJSONIsOneObjectPerLine(t *testing.T) {
	ctx := &CommandContext{Platform: DefaultPlatform(), JSON: true}
	dir := t.TempDir()
	src := filepath.Join(dir, "main.ad")
	if err := os.WriteFile(src, []byte("fn main() -> i32 { return undefinedThing }"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	origStderr := os.Stderr
	os.Stderr = w
	code := cmdCheck(ctx, []string{src})
	w.Close()
	os.Stderr = origStderr
	if code != int(ExitCompile) {
		t.Fatalf("expected exit code %d, got %d", ExitCompile, code)
	}

	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected exactly one diagnostic line, got %d: %q", len(lines), out.String())
	}
	var d Diagnostic
	if err := json.Unmarshal([]byte(lines[0]), &d); err != nil {
		t.Fatalf("expected valid JSON per line, got %q: %v", lines[0], err)
	}
	if d.Severity == "" || d.Code == "" || d.File != src {
		t.Fatalf("expected populated severity/code/file fields, got %+v", d)
	}
}

func TestCLICleanFlagOverridesOptimizerLevel(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.ad")
	if err := os.WriteFile(src, []byte("fn main() -> i32 { return 0 }"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := &CommandContext{Platform: DefaultPlatform()}
	pos := parseFlags(ctx, []string{"-clean", "aggressive", src})
	if ctx.Clean != "aggressive" {
		t.Fatalf("expected parseFlags to store -clean into ctx.Clean, got %q", ctx.Clean)
	}
	if len(pos) != 1 || pos[0] != src {
		t.Fatalf("expected the source file as the only positional arg, got %v", pos)
	}
	res, compileErrs, err := compileFile(ctx, src)
	if err != nil || len(compileErrs) != 0 {
		t.Fatalf("expected a clean compile, got errs=%v err=%v", compileErrs, err)
	}
	if res.Level != OptAggressive {
		t.Fatalf("expected -clean aggressive to select OptAggressive, got %v", res.Level)
	}
}

func TestScaffoldProjectWritesManifestAndEntry(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "proj")
	if err := ScaffoldProject(dir, "proj"); err != nil {
		t.Fatalf("ScaffoldProject: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "adead.toml")); err != nil {
		t.Fatalf("expected adead.toml to be created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "main.ad")); err != nil {
		t.Fatalf("expected main.ad to be created: %v", err)
	}
	m, err := LoadProjectManifest(dir)
	if err != nil {
		t.Fatalf("LoadProjectManifest: %v", err)
	}
	if m.Package.Name != "proj" {
		t.Fatalf("expected package name %q, got %q", "proj", m.Package.Name)
	}
}
