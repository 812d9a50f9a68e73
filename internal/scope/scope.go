// Package scope implements the symbol-table and scope-stack component
// of spec.md §4.1: push/pop of active entities during a tree walk,
// and name lookup that walks outward through enclosing scopes,
// honoring inheritance and visibility via internal/entity.
//
// The design is grounded on the teacher's compiler/symbol_table.go
// Define/Resolve/Outer chain (a symbol table walking outward through
// enclosing function scopes) and vm/frame.go's execution frame
// (a small struct holding just enough state plus a link to what came
// before) — here repurposed as one Frame per "current emission
// context" entity spec.md §2 describes (a value-assignment, a string
// literal, a method body, a class body, an if-branch, a while-
// condition, a supershell, and so on).
package scope

import (
	"github.com/dr8co/bashpp/internal/codegen"
	"github.com/dr8co/bashpp/internal/entity"
)

// Kind names the sort of code-emission context a Frame represents,
// for diagnostics and for construct-specific routing in the emitter.
type Kind int

const (
	KindProgram Kind = iota
	KindClassBody
	KindMethodBody
	KindFunctionBody
	KindValueAssignment
	KindStringLiteral
	KindIfBranch
	KindWhileCondition
	KindSupershell
	KindCommandSequence
	KindCaseArm
)

// Frame is one entry on the scope/emission-context stack.
type Frame struct {
	Kind Kind

	// Class is non-nil for a class-body frame and for the method-body
	// frames the emitter opens inside it, making it the nearest
	// enclosing class for CurrentClass().
	Class *entity.Class

	// Method is non-nil when this frame is a method body; it is what
	// CurrentMethod() returns.
	Method *entity.Method

	// Emission holds this frame's pre/code/post buffers, or nil for a
	// frame that does not itself emit code (e.g. a bare class body —
	// its methods have their own method-body frames).
	Emission *codegen.EmissionContext

	objects map[string]*entity.Object
	classes map[string]*entity.Class

	outer *Frame
}

// NewFrame creates a frame of the given kind, linked to outer (nil
// for the program's outermost frame).
func NewFrame(kind Kind, outer *Frame) *Frame {
	return &Frame{
		Kind:    kind,
		objects: make(map[string]*entity.Object),
		classes: make(map[string]*entity.Class),
		outer:   outer,
	}
}

// DefineObject registers obj as visible from this frame outward. It
// does not itself enforce spec.md §3 invariant 2 (disjoint
// class/object/keyword names) — callers should check Stack.Lookup*
// first and report a diagnostic instead of calling DefineObject on a
// collision, since invariant 2 is a user-facing Name error, not a
// host-language panic.
func (f *Frame) DefineObject(obj *entity.Object) {
	f.objects[obj.Name] = obj
}

// DefineClass registers a locally-scoped class (rare, but the data
// model does not forbid it) visible from this frame outward.
func (f *Frame) DefineClass(c *entity.Class) {
	f.classes[c.Name] = c
}

// Stack is the push/pop stack of active Frames, plus a link to the
// owning Program for global class lookup.
type Stack struct {
	Program *entity.Program
	top     *Frame
}

// NewStack creates a stack with one KindProgram frame already pushed.
func NewStack(program *entity.Program) *Stack {
	s := &Stack{Program: program}
	s.top = NewFrame(KindProgram, nil)
	return s
}

// Push makes frame the new top of the stack.
func (s *Stack) Push(frame *Frame) {
	frame.outer = s.top
	s.top = frame
}

// Pop removes and returns the current top frame. Popping the
// outermost program frame is a caller error and returns nil.
func (s *Stack) Pop() *Frame {
	if s.top == nil || s.top.outer == nil {
		return nil
	}
	popped := s.top
	s.top = s.top.outer
	return popped
}

// Top returns the current top frame without popping it.
func (s *Stack) Top() *Frame { return s.top }

// CurrentClass returns the nearest enclosing Class, or nil if the
// walk is not currently inside any class body.
func (s *Stack) CurrentClass() *entity.Class {
	for f := s.top; f != nil; f = f.outer {
		if f.Class != nil {
			return f.Class
		}
	}
	return nil
}

// CurrentMethod returns the nearest enclosing Method, or nil outside
// any method body.
func (s *Stack) CurrentMethod() *entity.Method {
	for f := s.top; f != nil; f = f.outer {
		if f.Method != nil {
			return f.Method
		}
	}
	return nil
}

// LatestCodeEntity returns the nearest enclosing code-emission
// context on the stack, or nil if none of the active frames emit
// code directly (should not happen once a program-level context has
// been pushed by the driver).
func (s *Stack) LatestCodeEntity() *codegen.EmissionContext {
	for f := s.top; f != nil; f = f.outer {
		if f.Emission != nil {
			return f.Emission
		}
	}
	return nil
}

// LookupObject searches the current scope then walks outward, per
// spec.md §4.1.
func (s *Stack) LookupObject(name string) (*entity.Object, bool) {
	for f := s.top; f != nil; f = f.outer {
		if obj, ok := f.objects[name]; ok {
			return obj, true
		}
	}
	return nil, false
}

// LookupClass searches frame-local class definitions outward, then
// falls back to the program's global class table.
func (s *Stack) LookupClass(name string) (*entity.Class, bool) {
	for f := s.top; f != nil; f = f.outer {
		if c, ok := f.classes[name]; ok {
			return c, true
		}
	}
	if s.Program != nil {
		return s.Program.LookupClass(name)
	}
	return nil, false
}

// InClassOrMethodOrFunctionBody reports whether the active frame chain
// currently sits inside a class body, a method body, or a shell
// function body — the declare_local predicate from spec.md §4.2 step
// 4, which decides whether the resolver's temporary assignments get a
// "local " prefix.
func (s *Stack) InClassOrMethodOrFunctionBody() bool {
	for f := s.top; f != nil; f = f.outer {
		switch f.Kind {
		case KindClassBody, KindMethodBody, KindFunctionBody:
			return true
		}
	}
	return false
}
