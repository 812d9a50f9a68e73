// Package resolver implements the reference-resolution algorithm of
// spec.md §4.2: walking an @-prefixed dotted identifier chain
// ("@this.inner.x", "@obj.method", "@#arr.size") to the entity it
// names, while emitting whatever temporary-variable plumbing is
// needed to read through the chain at runtime.
//
// Bash++ objects are not structs; a value's "address" is itself just
// the NAME of a shell-variable prefix, passed around as plain text
// (e.g. __this="$1" at method entry). Reading a deeper member means
// first reading the CURRENT prefix's value (one brace: "${code}"),
// then appending "__id" to build the next prefix's literal name. The
// resolver therefore tracks an indirection state across at most two
// shell variables ({0,0} -> {1,0} -> {1,1}, spec.md §9's Design
// Notes), capping the read level at two no matter how long the chain.
// The number of temporaries is not capped: every hop that reads
// through a prefix creates its own temporary, and a third (or later)
// hop reads the previous temp exactly the way the second one did,
// because every temp, like __this, always holds a name rather than a
// final value.
//
// The precise-algorithm prose in spec.md §4.2 and the worked example
// in §8 scenario 3 disagree on which indirection level an
// intermediate temp's right-hand side should use. This package
// resolves that tension in favor of §8's concrete scenario and §4.4's
// table ("emit ${!tmp}, or ${tmp} if only one temp"): every
// intermediate temp is built by reading the immediately preceding
// code reference with exactly one brace (it always holds a name, so
// one brace always suffices to read it as text), and only the FINAL
// read of the whole chain's resolved value — via ReadValue, used by a
// caller wanting an rvalue rather than a bare address — applies the
// extra "!" hop once two or more temporaries exist. See DESIGN.md.
package resolver

import (
	"github.com/dr8co/bashpp/internal/diag"
	"github.com/dr8co/bashpp/internal/entity"
	"github.com/dr8co/bashpp/internal/position"
	"github.com/dr8co/bashpp/internal/scope"
)

// Encase wraps code for the given indirection level: 0 is the bare
// literal text, 1 reads code's value once ("${code}"), 2 reads it
// twice ("${!code}") — the total function spec.md §4.2 calls encase.
func Encase(code string, level int) string {
	switch level {
	case 0:
		return code
	case 1:
		return "${" + code + "}"
	default:
		return "${!" + code + "}"
	}
}

// TargetKind distinguishes what a resolved chain ultimately named, so
// callers (the emitter) know whether a further ".member" would have
// been legal and what ReadValue should mean.
type TargetKind int

const (
	// TargetObject is a bare object or "this"/"super": usable as an
	// address (a method-call receiver, a copy/assignment source) but
	// not as a scalar rvalue.
	TargetObject TargetKind = iota
	// TargetPrimitiveMember is a data member whose type is the
	// primitive class: a plain shell string, readable as an rvalue.
	TargetPrimitiveMember
	// TargetObjectMember is a data member whose type is a user class:
	// usable the same way TargetObject is.
	TargetObjectMember
	// TargetMethod is the terminal method in a call chain; the chain
	// must end here, and the emitter is responsible for the call
	// syntax (dynamic dispatch through the vTable), not this package.
	TargetMethod
)

// Result is the product of resolving one reference chain: the entity
// it named, the CodeSegment needed to set it up, and enough state for
// the caller to read it correctly.
type Result struct {
	// Kind says what was found.
	Kind TargetKind

	// Class is the resolved class when Kind is TargetObject or
	// TargetObjectMember (the type of the referenced object/member).
	Class *entity.Class

	// Method is the resolved method when Kind is TargetMethod.
	Method *entity.Method

	// ClassHoldingMethod is the class the method was looked up on —
	// the static type of the receiver expression — whose vTable the
	// emitter passes to the lookup helper for dynamic dispatch.
	ClassHoldingMethod *entity.Class

	// Pre and Post accumulate every temporary's declaration and
	// teardown, in the order they must appear around Code.
	Pre, Post string

	// Code is the bare name of the last resolved shell-variable
	// prefix (no brace-encasement applied) — the address form, used
	// directly as a function argument or assignment source.
	Code string

	// TempCount is how many temporaries were created while walking
	// this chain (not capped; a third or later hop reuses exactly the
	// same one-brace read as the second, and ReadValue caps the read
	// level at two).
	TempCount int
}

// ReadValue returns the rvalue-reading form of r.Code: bare for zero
// temporaries (the chain resolved directly to a compile-time-known
// address), a single "${...}" for one temporary, and the double
// "${!...}" dereference once two or more temporaries were needed —
// spec.md §4.4's "emit ${!tmp} (or ${tmp} if only one temp)" rule.
func (r *Result) ReadValue() string {
	level := r.TempCount
	if level > 2 {
		level = 2
	}
	return Encase(r.Code, level)
}

// WriteTargetName returns the bash-variable-name expression an
// assignment should write through: the bare code text when the chain
// resolved to a compile-time-known literal address (zero temps), or a
// single dereference of the last temp otherwise — writing needs only
// the NAME one hop away, one less hop than ReadValue needs to reach
// the value itself.
func (r *Result) WriteTargetName() string {
	if r.TempCount == 0 {
		return r.Code
	}
	return Encase(r.Code, 1)
}

// declLocal prefixes a "local " keyword onto a temp declaration when
// the chain is being resolved inside a class/method/function body,
// per spec.md §4.2 step 4 (scope.Stack.InClassOrMethodOrFunctionBody,
// the declare_local predicate).
func declLocal(local bool) string {
	if local {
		return "local "
	}
	return ""
}

// Resolve walks parts (e.g. {"this", "inner", "x"} for "@this.inner.x")
// against stack, recording any Name/Visibility diagnostics into bag.
// context is the class whose body the reference appears in (nil at
// program scope), used for the Public/Protected/Private visibility
// check. It returns (nil, false) once a diagnostic has been recorded;
// callers should treat that node's CodeSegment as empty and continue
// walking sibling nodes, per spec.md §7.
func Resolve(stack *scope.Stack, bag *diag.Bag, context *entity.Class, parts []string, span position.Position) (*Result, bool) {
	if len(parts) == 0 {
		bag.Error(diag.CodeInternal, position.Span{Start: span, End: span}, "empty reference chain")
		return nil, false
	}

	local := stack.InClassOrMethodOrFunctionBody()

	var (
		code       string
		curClass   *entity.Class // the class whose members the NEXT id resolves against
		curKind    = TargetObject
		needsDeref bool // does `code`, as it stands, need one brace to read as text?
	)

	switch parts[0] {
	case "this":
		cur := stack.CurrentClass()
		if cur == nil {
			bag.Error(diag.CodeInternal, position.Span{Start: span, End: span}, "'this' referenced outside any class body")
			return nil, false
		}
		code = "__this"
		curClass = cur
		needsDeref = true

	case "super":
		cur := stack.CurrentClass()
		if cur == nil || cur.Parent() == nil {
			bag.Error(diag.CodeNoParentForSuper, position.Span{Start: span, End: span}, "'super' used in a class with no parent")
			return nil, false
		}
		code = "__this"
		curClass = cur.Parent()
		needsDeref = true

	default:
		obj, ok := stack.LookupObject(parts[0])
		if !ok {
			bag.Error(diag.CodeUndefinedObject, position.Span{Start: span, End: span}, "undefined object '%s'", parts[0])
			return nil, false
		}
		obj.AddReference(span)
		code = obj.Address
		curClass = obj.Type
		needsDeref = obj.IsPointer
	}

	firstTemp := needsDeref
	tempCount := 0
	var pre, post string
	chainDisplay := parts[0]

	for i := 1; i < len(parts); i++ {
		id := parts[i]
		if id == "" || containsDoubleUnderscore(id) {
			bag.Error(diag.CodeDoubleUnderscore, position.Span{Start: span, End: span}, "reserved name '%s' used in a reference chain", id)
			return nil, false
		}
		if curKind == TargetMethod || curKind == TargetPrimitiveMember {
			bag.Error(diag.CodeInvalidChainContinuation, position.Span{Start: span, End: span},
				"'%s' cannot be followed by '.%s': the chain already named a method or primitive value", chainDisplay, id)
			return nil, false
		}
		if curClass == nil {
			bag.Error(diag.CodeInternal, position.Span{Start: span, End: span}, "internal: no class to resolve member '%s' against", id)
			return nil, false
		}

		if dm, result := curClass.GetDataMember(id, context); result != entity.MethodNotFound {
			if result == entity.MethodInaccessibleResult {
				bag.Error(diag.CodeInaccessible, position.Span{Start: span, End: span}, "data member '%s' is not accessible here", id)
				return nil, false
			}
			dm.AddReference(span)
			chainDisplay = chainDisplay + "__" + id

			if firstTemp {
				// Every intermediate read takes exactly one brace: code
				// always holds a name at this point (the seed or a prior
				// temp), never a final value. See package doc.
				rhs := Encase(code, 1) + "__" + id
				pre += declLocal(local) + chainDisplay + "=" + rhs + "\n"
				post = "unset " + chainDisplay + "\n" + post
				tempCount++
			} else {
				// First hop off a compile-time-known literal address:
				// pure text concatenation, no temp needed yet.
				chainDisplay = code + "__" + id
			}
			code = chainDisplay
			firstTemp = true

			curClass = dm.Type
			if dm.Type != nil && dm.Type.Name == entity.Primitive {
				curKind = TargetPrimitiveMember
			} else {
				curKind = TargetObjectMember
			}
			continue
		}

		if m, result := curClass.GetMethod(id, context); result != entity.MethodNotFound {
			if result == entity.MethodInaccessibleResult {
				bag.Error(diag.CodeInaccessible, position.Span{Start: span, End: span}, "method '%s' is not accessible here", id)
				return nil, false
			}
			m.AddReference(span)
			return &Result{
				Kind:               TargetMethod,
				Method:             m,
				ClassHoldingMethod: curClass,
				Pre:                pre,
				Post:               post,
				Code:               code,
				TempCount:          tempCount,
			}, true
		}

		bag.Error(diag.CodeUndefinedMember, position.Span{Start: span, End: span}, "'%s' has no member or method named '%s'", curClass.Name, id)
		return nil, false
	}

	return &Result{
		Kind:               curKind,
		Class:              curClass,
		ClassHoldingMethod: nil,
		Pre:                pre,
		Post:               post,
		Code:               code,
		TempCount:          tempCount,
	}, true
}

func containsDoubleUnderscore(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '_' && s[i+1] == '_' {
			return true
		}
	}
	return false
}
