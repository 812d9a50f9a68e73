package resolver

import (
	"strings"
	"testing"

	"github.com/dr8co/bashpp/internal/diag"
	"github.com/dr8co/bashpp/internal/entity"
	"github.com/dr8co/bashpp/internal/position"
	"github.com/dr8co/bashpp/internal/scope"
)

func newProgram() *entity.Program {
	return entity.NewProgram("5.2")
}

func TestResolveThisAlone(t *testing.T) {
	prog := newProgram()
	cls, err := prog.DeclareClass("Widget", position.Position{})
	if err != nil {
		t.Fatal(err)
	}
	stack := scope.NewStack(prog)
	stack.Push(scope.NewFrame(scope.KindClassBody, stack.Top()))
	stack.Top().Class = cls
	stack.Push(scope.NewFrame(scope.KindMethodBody, stack.Top()))

	bag := diag.NewBag("t.bpp")
	res, ok := Resolve(stack, bag, cls, []string{"this"}, position.Position{Line: 1, Column: 1})
	if !ok {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	if res.Code != "__this" {
		t.Errorf("Code = %q, want __this", res.Code)
	}
	if res.TempCount != 0 {
		t.Errorf("TempCount = %d, want 0", res.TempCount)
	}
	if res.Pre != "" || res.Post != "" {
		t.Errorf("expected no temporaries for a bare 'this', got pre=%q post=%q", res.Pre, res.Post)
	}
}

func TestResolveSuperWithNoParent(t *testing.T) {
	prog := newProgram()
	cls, _ := prog.DeclareClass("Widget", position.Position{})
	stack := scope.NewStack(prog)
	stack.Push(scope.NewFrame(scope.KindClassBody, stack.Top()))
	stack.Top().Class = cls
	stack.Push(scope.NewFrame(scope.KindMethodBody, stack.Top()))

	bag := diag.NewBag("t.bpp")
	_, ok := Resolve(stack, bag, cls, []string{"super"}, position.Position{Line: 1, Column: 1})
	if ok {
		t.Fatal("expected super-with-no-parent to fail")
	}
	found := false
	for _, d := range bag.All() {
		if d.Code == diag.CodeNoParentForSuper {
			found = true
		}
	}
	if !found {
		t.Errorf("expected CodeNoParentForSuper diagnostic, got %v", bag.All())
	}
}

// TestResolveChainedMember reproduces the "@this.inner.x" worked
// scenario: two data-member hops off `this`, producing exactly one
// temporary per hop and a final double-dereferenced read.
func TestResolveChainedMember(t *testing.T) {
	prog := newProgram()
	inner, _ := prog.DeclareClass("Inner", position.Position{})
	_ = inner.AddDataMember(&entity.DataMember{Base: entity.Base{Name: "x"}, Type: prog.Primitive})
	inner.Finalize(prog)

	outer, _ := prog.DeclareClass("Outer", position.Position{})
	_ = outer.AddDataMember(&entity.DataMember{Base: entity.Base{Name: "inner"}, Type: inner})
	outer.Finalize(prog)

	stack := scope.NewStack(prog)
	stack.Push(scope.NewFrame(scope.KindClassBody, stack.Top()))
	stack.Top().Class = outer
	stack.Push(scope.NewFrame(scope.KindMethodBody, stack.Top()))

	bag := diag.NewBag("t.bpp")
	res, ok := Resolve(stack, bag, outer, []string{"this", "inner", "x"}, position.Position{Line: 1, Column: 1})
	if !ok {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	if res.TempCount != 2 {
		t.Errorf("TempCount = %d, want 2 (n-1 for a 3-token chain)", res.TempCount)
	}
	if res.Kind != TargetPrimitiveMember {
		t.Errorf("Kind = %v, want TargetPrimitiveMember", res.Kind)
	}
	if !strings.Contains(res.Pre, "${__this}__inner") {
		t.Errorf("Pre = %q, want a first temp reading ${__this}__inner", res.Pre)
	}
	if !strings.Contains(res.Pre, "__x") {
		t.Errorf("Pre = %q, want a second temp reading the first temp and appending __x", res.Pre)
	}
	if got, want := res.ReadValue(), Encase(res.Code, 2); got != want {
		t.Errorf("ReadValue() = %q, want the double-dereferenced form %q", got, want)
	}
	if strings.Count(res.Post, "unset ") != 2 {
		t.Errorf("Post = %q, want exactly two unset lines", res.Post)
	}
}

func TestResolveUndefinedObject(t *testing.T) {
	prog := newProgram()
	stack := scope.NewStack(prog)
	bag := diag.NewBag("t.bpp")
	_, ok := Resolve(stack, bag, nil, []string{"ghost"}, position.Position{Line: 1, Column: 1})
	if ok {
		t.Fatal("expected lookup of an undeclared object to fail")
	}
	if len(bag.All()) != 1 || bag.All()[0].Code != diag.CodeUndefinedObject {
		t.Errorf("diagnostics = %v, want a single CodeUndefinedObject", bag.All())
	}
}

func TestResolveDoubleUnderscoreRejected(t *testing.T) {
	prog := newProgram()
	cls, _ := prog.DeclareClass("Widget", position.Position{})
	obj := &entity.Object{Base: entity.Base{Name: "w"}, Type: cls, Address: "w"}
	stack := scope.NewStack(prog)
	stack.Top().DefineObject(obj)

	bag := diag.NewBag("t.bpp")
	_, ok := Resolve(stack, bag, nil, []string{"w", "__secret"}, position.Position{Line: 1, Column: 1})
	if ok {
		t.Fatal("expected a double-underscore member name to be rejected")
	}
	if bag.All()[0].Code != diag.CodeDoubleUnderscore {
		t.Errorf("Code = %v, want CodeDoubleUnderscore", bag.All()[0].Code)
	}
}

func TestResolveUndefinedMember(t *testing.T) {
	prog := newProgram()
	cls, _ := prog.DeclareClass("Widget", position.Position{})
	cls.Finalize(prog)
	obj := &entity.Object{Base: entity.Base{Name: "w"}, Type: cls, Address: "w"}
	stack := scope.NewStack(prog)
	stack.Top().DefineObject(obj)

	bag := diag.NewBag("t.bpp")
	_, ok := Resolve(stack, bag, nil, []string{"w", "nope"}, position.Position{Line: 1, Column: 1})
	if ok {
		t.Fatal("expected lookup of a nonexistent member to fail")
	}
	if bag.All()[0].Code != diag.CodeUndefinedMember {
		t.Errorf("Code = %v, want CodeUndefinedMember", bag.All()[0].Code)
	}
}

func TestResolvePlainObjectFirstHopIsLiteral(t *testing.T) {
	prog := newProgram()
	cls, _ := prog.DeclareClass("Widget", position.Position{})
	_ = cls.AddDataMember(&entity.DataMember{Base: entity.Base{Name: "x"}, Type: prog.Primitive})
	cls.Finalize(prog)
	obj := &entity.Object{Base: entity.Base{Name: "w"}, Type: cls, Address: "w", IsPointer: false}
	stack := scope.NewStack(prog)
	stack.Top().DefineObject(obj)

	bag := diag.NewBag("t.bpp")
	res, ok := Resolve(stack, bag, nil, []string{"w", "x"}, position.Position{Line: 1, Column: 1})
	if !ok {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	if res.TempCount != 0 {
		t.Errorf("TempCount = %d, want 0: a single hop off a compile-time-known literal address needs no temp", res.TempCount)
	}
	if res.Code != "w__x" {
		t.Errorf("Code = %q, want w__x", res.Code)
	}
	if got, want := res.ReadValue(), "w__x"; got != want {
		t.Errorf("ReadValue() = %q, want bare %q (zero temporaries)", got, want)
	}
}
