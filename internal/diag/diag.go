// Package diag implements the diagnostic values and collection
// described in spec.md §7: Error and Warning kinds carrying a source
// span, collected per file, with errors marking the program as
// unemittable without halting the walk.
//
// The core never panics on a user-facing error: a handler that hits a
// Name, Visibility, Typing, or Structure problem calls Bag.Error (or
// Bag.Warn) and returns a zero CodeSegment for its node, and the walk
// continues. Internal errors (assertion violations, parse errors from
// the demo front end) are recorded with CodeInternal through Bag.Error
// like any other error: they do not abort the walk, and
// driver.Compile does not return them as a Go error.
package diag

import (
	"fmt"
	"io"
	"sort"

	"github.com/mattn/go-runewidth"

	"github.com/dr8co/bashpp/internal/position"
)

// Kind distinguishes a Diagnostic's severity.
type Kind int

const (
	// KindError marks a diagnostic that discards the emission context
	// for its node and sets the bag's HasErrors flag.
	KindError Kind = iota

	// KindWarning marks a diagnostic that never suppresses output.
	KindWarning
)

// String renders the kind as it appears in printed diagnostics.
func (k Kind) String() string {
	if k == KindWarning {
		return "warning"
	}
	return "error"
}

// Code identifies the specific diagnostic rule that fired, so callers
// (tests, the REPL preview) can match on it
// without parsing Message text.
type Code string

// Diagnostic kinds the core signals, named per spec.md §7.
const (
	CodeUndefinedObject          Code = "name/undefined-object"
	CodeUndefinedClass           Code = "name/undefined-class"
	CodeUndefinedMember          Code = "name/undefined-member"
	CodeInvalidChainContinuation Code = "name/invalid-chain-continuation"
	CodeDuplicateDefinition      Code = "name/duplicate-definition"
	CodeReservedKeyword          Code = "name/reserved-keyword"
	CodeDoubleUnderscore         Code = "name/double-underscore"
	CodeInaccessible             Code = "visibility/inaccessible"
	CodeNonPointerParameter      Code = "typing/non-pointer-parameter"
	CodePrimitiveAssignment      Code = "typing/primitive-to-non-primitive"
	CodeCopyAcrossClasses        Code = "typing/copy-across-classes"
	CodeDeleteThisOrPrimitive    Code = "typing/delete-this-or-primitive"
	CodeDeleteOnMethod           Code = "typing/delete-on-method"
	CodeDynamicCastOnPrimitiv    Code = "typing/dynamic-cast-on-primitive"
	CodeConstructorRedefined     Code = "structure/constructor-redefined"
	CodeDestructorRedefined      Code = "structure/destructor-redefined"
	CodeStrayMember              Code = "structure/stray-member"
	CodeNoParentForSuper         Code = "structure/no-parent-for-super"
	CodeIncludeNotFound          Code = "structure/include-not-found"
	CodeInternal                 Code = "internal"
)

// Diagnostic is a single error or warning value carrying a source span.
type Diagnostic struct {
	Kind    Kind
	Code    Code
	Message string
	Span    position.Span
}

// Bag collects diagnostics produced while walking one file (or one
// include chain rooted at a file). It owns the program_has_errors flag
// described in spec.md §7.
type Bag struct {
	File        string
	diagnostics []Diagnostic
}

// NewBag creates an empty diagnostic bag for the named file.
func NewBag(file string) *Bag {
	return &Bag{File: file}
}

// Error records an error diagnostic. Errors are non-fatal to the walk:
// the caller must still discard the emission context for the erroring
// node, but should otherwise continue processing following nodes.
func (b *Bag) Error(code Code, span position.Span, format string, args ...any) {
	b.diagnostics = append(b.diagnostics, Diagnostic{
		Kind:    KindError,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	})
}

// Warn records a warning diagnostic. Warnings never suppress output.
func (b *Bag) Warn(code Code, span position.Span, format string, args ...any) {
	b.diagnostics = append(b.diagnostics, Diagnostic{
		Kind:    KindWarning,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	})
}

// HasErrors reports whether any KindError diagnostic was recorded.
// The driver consults this to decide whether to suppress the output
// file on exit.
func (b *Bag) HasErrors() bool {
	for _, d := range b.diagnostics {
		if d.Kind == KindError {
			return true
		}
	}
	return false
}

// All returns every diagnostic recorded so far, ordered by source
// position for stable, readable output.
func (b *Bag) All() []Diagnostic {
	out := make([]Diagnostic, len(b.diagnostics))
	copy(out, b.diagnostics)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].Span.Start, out[j].Span.Start
		if si.Line != sj.Line {
			return si.Line < sj.Line
		}
		return si.Column < sj.Column
	})
	return out
}

// Print writes every diagnostic to w, one per line, followed by a
// caret line under the offending column computed with display-cell
// width (so multi-byte identifiers still line up).
func (b *Bag) Print(w io.Writer, source string) {
	lines := splitLines(source)
	for _, d := range b.All() {
		_, _ = fmt.Fprintf(w, "%s: %s: %s\n", d.Span.Start, d.Kind, d.Message)
		if d.Span.Start.Line-1 >= 0 && d.Span.Start.Line-1 < len(lines) {
			line := lines[d.Span.Start.Line-1]
			_, _ = fmt.Fprintf(w, "    %s\n", line)
			_, _ = fmt.Fprintf(w, "    %s^\n", caretPad(line, d.Span.Start.Column))
		}
	}
}

// caretPad returns a run of spaces whose *display width* matches the
// text preceding the given 1-based column, so the caret lands under
// the right character even when the line contains wide or combining
// runes.
func caretPad(line string, column int) string {
	if column <= 1 {
		return ""
	}
	runes := []rune(line)
	upTo := column - 1
	if upTo > len(runes) {
		upTo = len(runes)
	}
	width := runewidth.StringWidth(string(runes[:upTo]))
	pad := make([]byte, width)
	for i := range pad {
		pad[i] = ' '
	}
	return string(pad)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}
