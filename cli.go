// Completion: 100% - Command dispatch for the adeadc CLI
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

const versionString = "adeadc 0.1.0"

// CommandContext holds the flags and resolved platform shared across every
// subcommand, mirroring how the teacher's CLI threads one context struct
// through its command functions instead of passing flags individually.
type CommandContext struct {
	Platform Platform
	Verbose  bool
	JSON     bool
	Output   string
	Clean    string
	Config   BuildConfig
}

// RunCLI dispatches args[0] to the matching subcommand (spec §6's command
// table). It returns the process exit code rather than calling os.Exit
// itself, so main can stay a two-line wrapper.
func RunCLI(args []string) int {
	ctx := &CommandContext{Platform: DefaultPlatform(), Config: LoadBuildConfig()}
	if len(args) == 0 {
		cmdHelp()
		return int(ExitOK)
	}

	switch args[0] {
	case "run":
		return cmdRun(ctx, args[1:])
	case "build":
		return cmdBuild(ctx, args[1:])
	case "check":
		return cmdCheck(ctx, args[1:])
	case "tiny":
		ctx.Platform.Mode = "tiny"
		return cmdBuild(ctx, args[1:])
	case "flat":
		ctx.Platform = Platform{Arch: ArchX86_64, OS: OSLinux, Mode: "flat"}
		return cmdBuild(ctx, args[1:])
	case "boot":
		ctx.Platform = Platform{Arch: ArchX86_64, OS: OSLinux, Mode: "raw"}
		return cmdBuild(ctx, args[1:])
	case "new":
		return cmdNew(args[1:])
	case "init":
		return cmdInit(args[1:])
	case "play":
		return cmdPlay(ctx, args[1:])
	case "version", "--version", "-V":
		fmt.Println(versionString)
		return int(ExitOK)
	case "help", "--help", "-h":
		cmdHelp()
		return int(ExitOK)
	default:
		fmt.Fprintf(os.Stderr, "adeadc: unknown command %q\n", args[0])
		cmdHelp()
		return int(ExitCompile)
	}
}

// parseFlags scans a subcommand's remaining args for `-target`, `-clean`,
// `-v`/`--verbose`, `-json`, `-o`, storing each into ctx and returning the
// leftover positional args (the source file).
func parseFlags(ctx *CommandContext, args []string) []string {
	var pos []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-v", "--verbose":
			ctx.Verbose = true
		case "-json", "--json":
			ctx.JSON = true
		case "-target":
			if i+1 < len(args) {
				i++
				if p, ok := ParsePlatform(args[i]); ok {
					if p.Mode == "" {
						p.Mode = ctx.Platform.Mode
					}
					ctx.Platform = p
				}
			}
		case "-clean":
			if i+1 < len(args) {
				i++
				ctx.Clean = args[i]
			}
		case "-o":
			if i+1 < len(args) {
				i++
				ctx.Output = args[i]
			}
		default:
			pos = append(pos, args[i])
		}
	}
	return pos
}

func cmdBuild(ctx *CommandContext, args []string) int {
	pos := parseFlags(ctx, args)
	if len(pos) < 1 {
		fmt.Fprintln(os.Stderr, "usage: adeadc build <file.ad> [-target T] [-o out]")
		return int(ExitCompile)
	}
	src := pos[0]
	out := ctx.Output
	if out == "" {
		out = defaultOutputName(src, ctx.Platform)
	}
	res, compileErrs, err := compileFile(ctx, src)
	if reported := reportOutcome(ctx, src, compileErrs, err); reported != int(ExitOK) {
		return reported
	}
	if err := WriteOutputFile(out, res.Image, ctx.Platform.OS == OSLinux); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return int(ExitIO)
	}
	if ctx.Verbose {
		fmt.Fprintf(os.Stderr, "wrote %s (%d bytes)\n", out, len(res.Image))
	}
	return int(ExitOK)
}

func cmdCheck(ctx *CommandContext, args []string) int {
	pos := parseFlags(ctx, args)
	if len(pos) < 1 {
		fmt.Fprintln(os.Stderr, "usage: adeadc check <file.ad>")
		return int(ExitCompile)
	}
	_, compileErrs, err := compileFile(ctx, pos[0])
	return reportOutcome(ctx, pos[0], compileErrs, err)
}

func cmdRun(ctx *CommandContext, args []string) int {
	pos := parseFlags(ctx, args)
	if len(pos) < 1 {
		fmt.Fprintln(os.Stderr, "usage: adeadc run <file.ad> [args...]")
		return int(ExitCompile)
	}
	src := pos[0]
	tmpOut := filepath.Join(ctx.Config.BuildDir, "adeadc-run-"+filepath.Base(src))
	res, compileErrs, err := compileFile(ctx, src)
	if reported := reportOutcome(ctx, src, compileErrs, err); reported != int(ExitOK) {
		return reported
	}
	if err := os.MkdirAll(ctx.Config.BuildDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, &IOError{Path: ctx.Config.BuildDir, Err: err})
		return int(ExitIO)
	}
	if err := WriteOutputFile(tmpOut, res.Image, true); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return int(ExitIO)
	}
	defer os.Remove(tmpOut)
	return runExecutable(tmpOut, pos[1:])
}

func cmdPlay(ctx *CommandContext, args []string) int {
	// `play` recompiles and runs on every invocation, the way a REPL-ish
	// loop would; with no file watcher wired in this build it behaves
	// identically to `run` for a single pass.
	return cmdRun(ctx, args)
}

func cmdNew(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: adeadc new <dir>")
		return int(ExitCompile)
	}
	name := filepath.Base(args[0])
	if err := ScaffoldProject(args[0], name); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return int(ExitIO)
	}
	return int(ExitOK)
}

func cmdInit(args []string) int {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if err := InitProject(dir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return int(ExitIO)
	}
	return int(ExitOK)
}

func cmdHelp() {
	fmt.Println(versionString)
	fmt.Println(`usage: adeadc <command> [arguments]

commands:
  run <file>    compile and immediately execute
  build <file>  compile to an executable
  check <file>  compile without emitting an executable
  tiny <file>   build the size-optimized PE32 form
  flat <file>   build a headerless flat binary
  boot <file>   build a 512-byte boot sector
  new <dir>     scaffold a new project directory
  init [dir]    scaffold a project in an existing directory
  play <file>   compile and run (alias of run)
  version       print version information
  help          show this message

flags:
  -target T     linux, windows, tiny, raw
  -clean L      none, normal, aggressive
  -o PATH       output file path
  -v, --verbose verbose build output
  -json         emit diagnostics as JSON`)
}

func compileFile(ctx *CommandContext, path string) (*CompileResult, []error, error) {
	src, err := readSource(path)
	if err != nil {
		return nil, nil, err
	}
	cu := &CompileUnit{Source: src, File: path, Platform: ctx.Platform, Clean: ctx.Clean}
	return cu.Run()
}

// reportOutcome renders whatever went wrong through the CompilerError/
// ErrorCollector pipeline (spec §6's diagnostics format) and returns the
// matching exit code; a nil err and empty compileErrs means success.
func reportOutcome(ctx *CommandContext, file string, compileErrs []error, err error) int {
	if err != nil {
		printDiagnostics(ctx, file, []error{err})
		return int(ExitCodeFor(err))
	}
	if len(compileErrs) == 0 {
		return int(ExitOK)
	}
	printDiagnostics(ctx, file, compileErrs)
	return int(ExitCompile)
}

// printDiagnostics converts each typed pipeline error into a CompilerError
// and renders the collector either as spec §6's plain-text
// `error[Exxx]: ...` form or, with --json, as one JSON object per line.
func printDiagnostics(ctx *CommandContext, file string, errs []error) {
	ec := NewErrorCollector(len(errs))
	for _, e := range errs {
		ec.AddError(toCompilerError(e, file))
	}
	if ctx.JSON {
		if err := ec.WriteJSON(os.Stderr); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		return
	}
	fmt.Fprint(os.Stderr, ec.Report(false))
}

func defaultOutputName(src string, p Platform) string {
	base := src
	if ext := filepath.Ext(src); ext != "" {
		base = src[:len(src)-len(ext)]
	}
	if p.OS == OSWindows {
		return base + ".exe"
	}
	return base
}

// runExecutable execs path and propagates its exit status, the way the
// teacher's test harness ran compiled programs but here as the `run`
// command's production behavior (spec §6).
func runExecutable(path string, args []string) int {
	cmd := exec.Command(path, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	err := cmd.Run()
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	fmt.Fprintln(os.Stderr, err)
	return int(ExitInternal)
}
