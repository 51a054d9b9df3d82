// Completion: 100% - Pipeline driver: source bytes to a container image
package main

import (
	"os"
)

// CompileUnit carries one compilation from source text through to a
// finished executable image, running every stage in order and stopping
// at the first one that reports errors (spec §4's pipeline, §7's exit
// codes).
type CompileUnit struct {
	Source   []byte
	File     string
	Platform Platform

	// Clean, when non-empty, is the CLI's --clean flag value and takes
	// precedence over the source's own `#![clean(...)]` attribute, the
	// way an explicit command-line flag overrides an in-file directive.
	Clean string
}

// CompileResult is what a successful Run produces: the finished image
// bytes plus the optimization level actually applied, useful for `check`
// mode callers that want to report what would have happened.
type CompileResult struct {
	Image []byte
	Level OptLevel
}

// Run executes the full pipeline. errs is non-nil only for compile-stage
// failures (lex/parse/typecheck/lower/encode); a non-nil err is reserved
// for container-writer or internal failures that aren't source-attributable.
func (cu *CompileUnit) Run() (*CompileResult, []error, error) {
	lex := NewLexer(cu.Source, cu.File)
	toks := lex.Tokenize()
	if errs := lex.Errors(); len(errs) > 0 {
		return nil, toGenericErrors(errs), nil
	}

	structs := newStructTable()
	prog := ParseProgram(toks, structs)
	if len(prog.Errors) > 0 {
		return nil, toGenericErrors(prog.Errors), nil
	}

	checker := NewChecker(structs)
	if errs := checker.Check(prog); len(errs) > 0 {
		return nil, toGenericErrors(errs), nil
	}

	platform := cu.resolvePlatform(prog)

	pool := NewStringPool()
	funcs, lowErrs := Lower(prog, platform, pool)
	if len(lowErrs) > 0 {
		return nil, toGenericErrors(lowErrs), nil
	}

	level := OptLevelFromAttr(prog.Attrs.Clean)
	if cu.Clean != "" {
		level = OptLevelFromAttr(cu.Clean)
	}
	Optimize(funcs, pool, level)

	enc := NewEncoder()
	for _, cf := range funcs {
		if err := enc.EncodeFunc(cf); err != nil {
			return nil, []error{err}, nil
		}
	}
	if err := enc.ResolveCalls(); err != nil {
		return nil, nil, err
	}

	offsets, poolSize := pool.Layout()
	rodata := make([]byte, poolSize)
	for i := range offsets {
		copy(rodata[offsets[i]:], pool.Bytes(i))
	}

	image, err := writeContainer(platform, enc.Bytes(), rodata, prog.Attrs)
	if err != nil {
		return nil, nil, err
	}
	return &CompileResult{Image: image, Level: level}, nil, nil
}

// resolvePlatform lets a program's own `#![mode(...)]` attribute override
// the CLI-selected platform's Mode (or its OS, for a plain OS name), the
// way a `#!/usr/bin/env` shebang line picks an interpreter independent of
// how it's invoked. `#![base(...)]` is not consulted here.
func (cu *CompileUnit) resolvePlatform(prog *Program) Platform {
	p := cu.Platform
	if prog.Attrs.Mode != "" {
		if resolved, ok := ParsePlatform(prog.Attrs.Mode); ok {
			p.Mode = resolved.Mode
			if resolved.Mode == "" {
				p.OS = resolved.OS
			}
		}
	}
	return p
}

func writeContainer(p Platform, code, rodata []byte, attrs ProgramAttributes) ([]byte, error) {
	var libs []string
	for _, imp := range attrs.Imports {
		libs = append(libs, imp.Path)
	}
	switch {
	case p.IsRaw():
		if p.Mode == "raw" {
			return WriteBootSector(code, rodata)
		}
		return WriteFlat(code, rodata), nil
	case p.IsTiny():
		return WritePE32Tiny(code, rodata)
	case p.IsPE():
		var names []string
		for _, imp := range attrs.Imports {
			names = append(names, imp.Symbol)
		}
		return WritePE64(code, rodata, "msvcrt.dll", names)
	case p.IsELF():
		return WriteELF64(code, rodata, libs)
	default:
		return nil, &ContainerError{Format: p.String(), Reason: "no writer registered for this platform"}
	}
}

func toGenericErrors[T error](errs []T) []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}

// WriteOutputFile writes image to path, making it executable on Linux
// where the loader checks the mode bit (PE/raw targets don't need it).
func WriteOutputFile(path string, image []byte, executable bool) error {
	mode := os.FileMode(0o644)
	if executable {
		mode = 0o755
	}
	if err := os.WriteFile(path, image, mode); err != nil {
		return &IOError{Path: path, Err: err}
	}
	return nil
}

func readSource(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	return b, nil
}
