// Command bpp compiles Bash++ source into plain Bash, or — with no
// file argument — starts a transpile-preview REPL.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dr8co/bashpp/internal/driver"
	"github.com/dr8co/bashpp/internal/frontend/lexer"
	"github.com/dr8co/bashpp/internal/frontend/parser"
	"github.com/dr8co/bashpp/internal/frontend/token"
	"github.com/dr8co/bashpp/internal/replpreview"
)

const version = "0.1.0"

// printUsage displays custom usage information.
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `bpp - Bash++ to Bash compiler v%s

USAGE:
    %s [OPTIONS] [file]

DESCRIPTION:
    bpp compiles a Bash++ source file into plain Bash. Without a file
    argument, it starts an interactive transpile-preview REPL.

OPTIONS:
    -o, --output <path>      Write the generated Bash to path (default: stdout)
    -I, --include <dir>      Add dir to the @include search path (repeatable)
    -s, --no-warnings        Suppress warning diagnostics
    -b, --target-bash <ver>  Target Bash version, e.g. "4.0" or "5.1" (default: "5.1")
    -t, --tokens             Print the declaration-level token stream and exit
    -p, --parse-tree         Print the parsed tree and exit
    -v, --version            Show version information
    -h, --help               Show this help message

EXAMPLES:
    # Start the transpile-preview REPL
    %s

    # Compile a file to stdout
    %s script.bpp

    # Compile a file, writing the result elsewhere
    %s -o script.sh script.bpp

`, version, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

type includeDirs []string

func (i *includeDirs) String() string { return strings.Join(*i, ",") }
func (i *includeDirs) Set(v string) error {
	*i = append(*i, v)
	return nil
}

func main() {
	flag.Usage = printUsage

	var includes includeDirs
	outputFlag := flag.String("output", "", "Write the generated Bash to path (default: stdout)")
	noWarningsFlag := flag.Bool("no-warnings", false, "Suppress warning diagnostics")
	targetBashFlag := flag.String("target-bash", "5.1", "Target Bash version")
	tokensFlag := flag.Bool("tokens", false, "Print the declaration-level token stream and exit")
	parseTreeFlag := flag.Bool("parse-tree", false, "Print the parsed tree and exit")
	versionFlag := flag.Bool("version", false, "Show version information")

	flag.Var(&includes, "include", "Add dir to the @include search path (repeatable)")
	flag.StringVar(outputFlag, "o", "", "Write the generated Bash to path (default: stdout)")
	flag.Var(&includes, "I", "Add dir to the @include search path (repeatable)")
	flag.BoolVar(noWarningsFlag, "s", false, "Suppress warning diagnostics")
	flag.StringVar(targetBashFlag, "b", "5.1", "Target Bash version")
	flag.BoolVar(tokensFlag, "t", false, "Print the declaration-level token stream and exit")
	flag.BoolVar(parseTreeFlag, "p", false, "Print the parsed tree and exit")
	flag.BoolVar(versionFlag, "v", false, "Show version information")

	flag.Parse()

	if *versionFlag {
		fmt.Printf("bpp Bash++ compiler v%s\n", version)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		replpreview.Start("bpp", replpreview.Options{TargetBash: *targetBashFlag})
		return
	}

	opts := driver.Options{
		IncludeDirs: includes,
		NoWarnings:  *noWarningsFlag,
		TargetBash:  *targetBashFlag,
	}

	if *tokensFlag {
		printTokens(args[0])
		return
	}
	if *parseTreeFlag {
		printParseTree(args[0])
		return
	}

	compileFile(args[0], *outputFlag, opts)
}

// compileFile reads and compiles a Bash++ source file, writing the
// generated Bash to outputPath (or stdout when outputPath is empty),
// and reporting diagnostics to stderr.
func compileFile(path, outputPath string, opts driver.Options) {
	cleaned := filepath.Clean(path)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		fmt.Printf("Error getting absolute path: %s\n", err)
		os.Exit(1)
	}

	//nolint:gosec // Reading a user-supplied source file is the whole point here.
	src, err := os.ReadFile(absolute)
	if err != nil {
		fmt.Printf("Error reading file: %s\n", err)
		os.Exit(1)
	}

	d := driver.New(opts)
	res, err := d.Compile(absolute, string(src))
	if err != nil {
		fmt.Printf("Error compiling %s: %s\n", absolute, err)
		os.Exit(1)
	}

	if opts.NoWarnings {
		printErrorsOnly(res)
	} else {
		res.Diagnostics.Print(os.Stderr, string(src))
	}

	if res.HasErrors {
		os.Exit(1)
	}

	if outputPath == "" {
		fmt.Print(res.Output)
		return
	}
	if err := os.WriteFile(outputPath, []byte(res.Output), 0o644); err != nil { //nolint:gosec
		fmt.Printf("Error writing %s: %s\n", outputPath, err)
		os.Exit(1)
	}
}

// printErrorsOnly prints only the error-kind diagnostics from res,
// honoring -s/--no-warnings.
func printErrorsOnly(res *driver.Result) {
	for _, d := range res.Diagnostics.All() {
		if d.Kind.String() != "error" {
			continue
		}
		_, _ = fmt.Fprintf(os.Stderr, "%s: %s: %s\n", d.Span.Start, d.Kind, d.Message)
	}
}

// printTokens prints the declaration-level token stream for path and exits.
func printTokens(path string) {
	//nolint:gosec
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading file: %s\n", err)
		os.Exit(1)
	}
	l := lexer.New(string(src))
	for {
		tok := l.NextToken()
		fmt.Printf("%-10s %q\n", tok.Type, tok.Literal)
		if tok.Type == token.EOF {
			break
		}
	}
}

// printParseTree prints the parsed tree for path and exits.
func printParseTree(path string) {
	//nolint:gosec
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading file: %s\n", err)
		os.Exit(1)
	}
	p := parser.New(path, string(src))
	prog := p.ParseProgram()
	for _, perr := range p.Errors() {
		_, _ = fmt.Fprintln(os.Stderr, perr)
	}
	for _, stmt := range prog.Statements {
		fmt.Println(stmt.String())
	}
}
