// Package codegen implements the pre/code/post buffer discipline
// described in spec.md §4.3: every emission context carries three
// buffers, and exactly four operations write into them. The
// per-AST-node handlers that use this discipline to compile the
// language's constructs live in the sibling internal/emitter package,
// split out so that package can depend on internal/scope (which in
// turn depends on the EmissionContext type defined here) without an
// import cycle.
package codegen

import "strings"

// CodeSegment is the single product type spec.md §9's Design Notes
// calls for: { pre: Text, code: Text, post: Text }, monoidal under
// concatenation so every construct can be described as "our
// CodeSegment is the concatenation of our children's CodeSegments,
// assembled in some construct-specific order".
type CodeSegment struct {
	Pre  string
	Code string
	Post string
}

// Linearize returns Pre ++ Code ++ Post, the "final linearization"
// spec.md §8's testable properties require for any context with
// non-empty Pre/Post.
func (s CodeSegment) Linearize() string {
	return s.Pre + s.Code + s.Post
}

// Concat appends other after s component-wise and returns the result;
// it does not mutate s.
func (s CodeSegment) Concat(other CodeSegment) CodeSegment {
	return CodeSegment{
		Pre:  s.Pre + other.Pre,
		Code: s.Code + other.Code,
		Post: s.Post + other.Post,
	}
}

// Kind distinguishes how an EmissionContext's add_code behaves.
// Per spec.md §4.3: "In a plain code entity [newlines flush buffers
// onto the parent]. In a string entity, the buffers are never
// auto-flushed, so that string boundaries remain clean."
type Kind int

const (
	// KindPlain is an ordinary statement/block/command context.
	KindPlain Kind = iota
	// KindString is a quoted-string context: add_code never flushes.
	KindString
)

// EmissionContext is one entry on the emission-context stack: it owns
// exactly the three CodeSegment buffers spec.md §4.3 names, plus the
// discipline for writing into them.
type EmissionContext struct {
	Kind Kind

	pre  strings.Builder
	code strings.Builder
	post strings.Builder

	// parent receives flushed buffer contents when AddCode sees a
	// newline in a plain context. nil at the outermost context.
	parent *EmissionContext
}

// NewEmissionContext creates a context of the given kind, linked to
// parent (nil for the outermost/program-level context).
func NewEmissionContext(kind Kind, parent *EmissionContext) *EmissionContext {
	return &EmissionContext{Kind: kind, parent: parent}
}

// AddCode appends text to code. In a KindPlain context, if text
// contains a newline, AddCode flushes the accumulated pre_code (above)
// and post_code (below) onto the parent context immediately, per
// spec.md §4.3. In a KindString context buffers are never
// auto-flushed, keeping string boundaries clean so setup code can live
// outside the quoted region.
func (e *EmissionContext) AddCode(text string) {
	e.code.WriteString(text)
	if e.Kind == KindPlain && e.parent != nil && strings.Contains(text, "\n") {
		e.flushOnto(e.parent)
	}
}

// AddCodeToPreviousLine appends text to pre_code (add_code_to_previous_line).
func (e *EmissionContext) AddCodeToPreviousLine(text string) {
	e.pre.WriteString(text)
}

// AddCodeToNextLine appends text to post_code (add_code_to_next_line).
func (e *EmissionContext) AddCodeToNextLine(text string) {
	e.post.WriteString(text)
}

// Segment returns the context's current buffers as a CodeSegment
// without clearing them.
func (e *EmissionContext) Segment() CodeSegment {
	return CodeSegment{Pre: e.pre.String(), Code: e.code.String(), Post: e.post.String()}
}

// FlushCodeBuffers emits pre_code then code then post_code, in order,
// into the enclosing stream (its own Segment, linearized) and resets
// the three buffers to empty, honoring "flush_code_buffers() emits
// pre_code then code then post_code in order into the enclosing
// stream" (spec.md §4.3).
func (e *EmissionContext) FlushCodeBuffers() string {
	out := e.Segment().Linearize()
	e.pre.Reset()
	e.code.Reset()
	e.post.Reset()
	return out
}

// flushOnto moves e's pre/post buffers onto target's pre/post buffers
// respectively (preserving construct order: target is the enclosing
// context, so e's setup/teardown still surrounds its own code once
// target is itself flushed later) and clears e's pre/post.
func (e *EmissionContext) flushOnto(target *EmissionContext) {
	target.pre.WriteString(e.pre.String())
	target.post.WriteString(e.post.String())
	e.pre.Reset()
	e.post.Reset()
}

// Reset clears all three buffers without flushing them anywhere.
func (e *EmissionContext) Reset() {
	e.pre.Reset()
	e.code.Reset()
	e.post.Reset()
}
