package entity

import (
	"testing"

	"github.com/dr8co/bashpp/internal/position"
)

// TestVTableResolvesToMostDerivedOverride reproduces spec.md §8's
// first testable property: for every virtual method, VTable() must
// bind the most-derived override reachable from a class's inheritance
// chain, not whichever definition happened to run first.
func TestVTableResolvesToMostDerivedOverride(t *testing.T) {
	a := NewClass("A", position.Position{})
	if err := a.AddMethod(&Method{
		Base:     Base{Name: "greet"},
		Virtual:  true,
		FuncName: "bpp__A__greet",
	}); err != nil {
		t.Fatal(err)
	}

	b := NewClass("B", position.Position{})
	b.Inherit(a)
	if err := b.AddMethod(&Method{
		Base:     Base{Name: "greet"},
		FuncName: "bpp__B__greet",
	}); err != nil {
		t.Fatal(err)
	}

	c := NewClass("C", position.Position{})
	c.Inherit(b)

	if got := a.VTable()["greet"]; got != "bpp__A__greet" {
		t.Errorf("A.VTable()[greet] = %q, want bpp__A__greet", got)
	}
	if got := b.VTable()["greet"]; got != "bpp__B__greet" {
		t.Errorf("B.VTable()[greet] = %q, want bpp__B__greet", got)
	}
	if got := c.VTable()["greet"]; got != "bpp__B__greet" {
		t.Errorf("C.VTable()[greet] = %q, want bpp__B__greet (inherited override, no re-override in C)", got)
	}

	m, result := c.GetMethod("greet", c)
	if result != MethodFound {
		t.Fatalf("GetMethod(greet) on C = %v, want MethodFound", result)
	}
	if m.LastOverride != "B" {
		t.Errorf("LastOverride = %q, want B", m.LastOverride)
	}
}

// TestFinalizeIsIdempotent reproduces spec.md §8's second testable
// property: finalizing an already-finalized class is a no-op, rather
// than re-synthesizing __delete (and duplicating it in Methods) a
// second time.
func TestFinalizeIsIdempotent(t *testing.T) {
	prog := NewProgram("5.2")
	c := NewClass("Widget", position.Position{})
	prog.Classes["Widget"] = c

	c.Finalize(prog)
	methodCountAfterFirst := len(c.Methods)
	destructorAfterFirst := c.Destructor

	c.Finalize(prog)
	if len(c.Methods) != methodCountAfterFirst {
		t.Errorf("second Finalize changed method count: got %d, want %d", len(c.Methods), methodCountAfterFirst)
	}
	if c.Destructor != destructorAfterFirst {
		t.Error("second Finalize replaced the already-synthesized destructor")
	}

	deleteCount := 0
	for _, m := range c.Methods {
		if m.Name == "__delete" {
			deleteCount++
		}
	}
	if deleteCount != 1 {
		t.Errorf("found %d __delete methods after two Finalize calls, want 1", deleteCount)
	}
}

// TestFinalizeSkipsSynthesisWhenUserDefinitionExists reproduces
// spec.md §8's third testable property: a user-defined toPrimitive
// (added before Finalize runs, as the class-body walk always adds it)
// takes the synthesized default's place exactly once — Finalize must
// not stack its own generated body alongside the user's.
func TestFinalizeSkipsSynthesisWhenUserDefinitionExists(t *testing.T) {
	prog := NewProgram("5.2")
	c := NewClass("Widget", position.Position{})
	prog.Classes["Widget"] = c

	userDefined := &Method{
		Base:       Base{Name: "toPrimitive"},
		Visibility: Public,
		FuncName:   "bpp__Widget__toPrimitive",
	}
	if err := c.AddMethod(userDefined); err != nil {
		t.Fatal(err)
	}

	c.Finalize(prog)

	count := 0
	var found *Method
	for _, m := range c.Methods {
		if m.Name == "toPrimitive" {
			count++
			found = m
		}
	}
	if count != 1 {
		t.Errorf("found %d toPrimitive entries after Finalize, want 1", count)
	}
	if found != userDefined {
		t.Error("Finalize replaced the user-defined toPrimitive with a synthesized one")
	}
}

func TestInheritDowngradesPrivateToInaccessible(t *testing.T) {
	base := NewClass("Base", position.Position{})
	_ = base.AddMethod(&Method{Base: Base{Name: "secret"}, Visibility: Private, FuncName: "bpp__Base__secret"})

	derived := NewClass("Derived", position.Position{})
	derived.Inherit(base)

	_, result := derived.GetMethod("secret", derived)
	if result != MethodInaccessibleResult {
		t.Errorf("GetMethod(secret) on Derived = %v, want MethodInaccessibleResult", result)
	}
}

func TestAddMethodRejectsDataMemberCollision(t *testing.T) {
	c := NewClass("Widget", position.Position{})
	if err := c.AddDataMember(&DataMember{Base: Base{Name: "x"}, Type: nil}); err != nil {
		t.Fatal(err)
	}
	err := c.AddMethod(&Method{Base: Base{Name: "x"}, FuncName: "bpp__Widget__x"})
	if err == nil {
		t.Fatal("expected AddMethod to reject a name already used by a data member")
	}
}
