// Package driver orchestrates one compilation: parsing a source file,
// expanding its @include/@include_once directives, walking the
// resulting tree through internal/emitter, and deciding whether the
// accumulated output is safe to write — grounded on the teacher's
// main.go executeFile/evaluateExpression pair, which plays the same
// read-parse-run-report role for a single Monkey source file.
package driver

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dr8co/bashpp/internal/ast"
	"github.com/dr8co/bashpp/internal/diag"
	"github.com/dr8co/bashpp/internal/emitter"
	"github.com/dr8co/bashpp/internal/entity"
	"github.com/dr8co/bashpp/internal/frontend/parser"
	"github.com/dr8co/bashpp/internal/include"
	"github.com/dr8co/bashpp/internal/position"
	"github.com/dr8co/bashpp/internal/scope"
)

// Options mirrors the CLI surface in spec.md §6; cmd/bpp fills this
// in directly from flag.Parse results (no config-file layer — see
// SPEC_FULL.md's AMBIENT STACK note on configuration).
type Options struct {
	IncludeDirs    []string
	NoWarnings     bool
	TargetBash     string
	PrintTokens    bool
	PrintParseTree bool
}

// Result is the outcome of one compilation.
type Result struct {
	Output      string
	Diagnostics *diag.Bag
	HasErrors   bool
}

// Driver runs one compilation unit at a time — single-threaded, per
// spec.md §5; a caller wanting the fan-out illustration from §5 runs
// one Driver per goroutine with no shared state between them.
type Driver struct {
	Options Options
}

// New creates a Driver with the given options.
func New(opts Options) *Driver {
	return &Driver{Options: opts}
}

// CompileFile reads path, compiles it, and returns the result. Errors
// returned here are I/O failures; compile errors are reported via
// Result.Diagnostics/HasErrors instead, matching spec.md §7's
// "errors are recorded, not fatal to the process" propagation policy.
func (d *Driver) CompileFile(path string) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("driver: reading %s: %w", path, err)
	}
	return d.Compile(path, string(src))
}

// Compile compiles src as if it were read from name (used for
// diagnostics and for resolving local @include paths).
func (d *Driver) Compile(name, src string) (*Result, error) {
	bag := diag.NewBag(name)

	p := parser.New(name, src)
	prog := p.ParseProgram()
	for _, perr := range p.Errors() {
		bag.Error(diag.CodeInternal, position.Span{}, "%s", perr)
	}

	sourceDir := filepath.Dir(name)
	resolver := include.NewResolver(sourceDir, d.Options.IncludeDirs)
	prog.Statements = d.expandIncludes(prog.Statements, resolver, bag)

	entityProgram := entity.NewProgram(d.Options.TargetBash)
	stack := scope.NewStack(entityProgram)
	em := emitter.New(stack, bag)

	output := em.EmitProgram(prog)

	res := &Result{Diagnostics: bag, HasErrors: bag.HasErrors()}
	if !res.HasErrors {
		res.Output = output
	}
	return res, nil
}

// expandIncludes walks stmts, replacing each IncludeStatement with
// either the included file's own parsed statements (static linking —
// spliced in place, so they emit straight into the including file's
// buffer) or a single "source" RawText directive (dynamic linking),
// per spec.md §6 and the Supplemented Features note on
// internal/include. @include_once targets already seen anywhere in
// this compilation's include chain are dropped entirely rather than
// re-expanded.
func (d *Driver) expandIncludes(stmts []ast.Statement, resolver *include.Resolver, bag *diag.Bag) []ast.Statement {
	out := make([]ast.Statement, 0, len(stmts))
	for _, stmt := range stmts {
		inc, ok := stmt.(*ast.IncludeStatement)
		if !ok {
			out = append(out, stmt)
			continue
		}

		target, err := resolver.ResolveStatement(inc)
		if err != nil {
			bag.Error(diag.CodeIncludeNotFound, inc.Span(), "%s", err.Error())
			continue
		}
		if !target.Process {
			continue
		}

		if target.Dynamic {
			sourcePath := target.AsPath
			if sourcePath == "" {
				sourcePath = inc.Name + ".sh"
			}
			out = append(out, &ast.RawText{Text: fmt.Sprintf("source %q\n", sourcePath)})
			continue
		}

		includedSrc, err := os.ReadFile(target.Path)
		if err != nil {
			bag.Error(diag.CodeIncludeNotFound, inc.Span(), "reading include %s: %s", target.Path, err.Error())
			continue
		}
		childParser := parser.New(target.Path, string(includedSrc))
		childProg := childParser.ParseProgram()
		for _, perr := range childParser.Errors() {
			bag.Error(diag.CodeInternal, inc.Span(), "%s", perr)
		}
		// The copy shares the parent's once-set, so @include_once dedup
		// spans the whole include chain; only the local base dir changes.
		childResolver := *resolver
		childResolver.SourceDir = filepath.Dir(target.Path)
		out = append(out, d.expandIncludes(childProg.Statements, &childResolver, bag)...)
	}
	return out
}
