package scope

import (
	"testing"

	"github.com/dr8co/bashpp/internal/entity"
	"github.com/dr8co/bashpp/internal/position"
)

func TestLookupObjectWalksOuterFrames(t *testing.T) {
	prog := entity.NewProgram("5.2")
	stack := NewStack(prog)

	outerObj := &entity.Object{Base: entity.Base{Name: "x"}, Address: "x"}
	stack.Top().DefineObject(outerObj)

	stack.Push(NewFrame(KindMethodBody, stack.Top()))
	if _, ok := stack.LookupObject("undefined"); ok {
		t.Fatal("expected lookup of an undefined name to fail")
	}
	got, ok := stack.LookupObject("x")
	if !ok || got != outerObj {
		t.Fatalf("LookupObject(x) = %v, %v; want the outer frame's object", got, ok)
	}
}

func TestLookupObjectInnerFrameShadowsOuter(t *testing.T) {
	prog := entity.NewProgram("5.2")
	stack := NewStack(prog)

	outerObj := &entity.Object{Base: entity.Base{Name: "x"}, Address: "outer_x"}
	stack.Top().DefineObject(outerObj)

	stack.Push(NewFrame(KindMethodBody, stack.Top()))
	innerObj := &entity.Object{Base: entity.Base{Name: "x"}, Address: "inner_x"}
	stack.Top().DefineObject(innerObj)

	got, ok := stack.LookupObject("x")
	if !ok || got != innerObj {
		t.Fatalf("LookupObject(x) = %v, %v; want the inner frame's shadowing object", got, ok)
	}
}

func TestCurrentClassAndMethodWalkOutward(t *testing.T) {
	prog := entity.NewProgram("5.2")
	cls, _ := prog.DeclareClass("Widget", position.Position{})
	stack := NewStack(prog)

	if stack.CurrentClass() != nil {
		t.Fatal("expected no current class at program scope")
	}

	classFrame := NewFrame(KindClassBody, stack.Top())
	classFrame.Class = cls
	stack.Push(classFrame)
	if stack.CurrentClass() != cls {
		t.Fatal("expected CurrentClass to find the class body frame")
	}
	if stack.CurrentMethod() != nil {
		t.Fatal("expected no current method inside a bare class body")
	}

	method := &entity.Method{Base: entity.Base{Name: "greet"}}
	methodFrame := NewFrame(KindMethodBody, stack.Top())
	methodFrame.Method = method
	stack.Push(methodFrame)
	if stack.CurrentMethod() != method {
		t.Fatal("expected CurrentMethod to find the method body frame")
	}
	if stack.CurrentClass() != cls {
		t.Fatal("expected CurrentClass to still resolve through the method frame to the enclosing class")
	}
}

func TestInClassOrMethodOrFunctionBody(t *testing.T) {
	prog := entity.NewProgram("5.2")
	stack := NewStack(prog)

	if stack.InClassOrMethodOrFunctionBody() {
		t.Fatal("expected false at bare program scope")
	}

	stack.Push(NewFrame(KindIfBranch, stack.Top()))
	if stack.InClassOrMethodOrFunctionBody() {
		t.Fatal("expected an if-branch frame alone not to count as a method/class/function body")
	}

	stack.Push(NewFrame(KindFunctionBody, stack.Top()))
	if !stack.InClassOrMethodOrFunctionBody() {
		t.Fatal("expected a function body frame (even nested under an if-branch) to count")
	}
}

func TestPopReturnsNilAtProgramFrame(t *testing.T) {
	prog := entity.NewProgram("5.2")
	stack := NewStack(prog)
	if stack.Pop() != nil {
		t.Fatal("expected popping the outermost program frame to return nil")
	}
}

func TestLookupClassFallsBackToProgram(t *testing.T) {
	prog := entity.NewProgram("5.2")
	cls, _ := prog.DeclareClass("Widget", position.Position{})
	stack := NewStack(prog)
	stack.Push(NewFrame(KindMethodBody, stack.Top()))

	got, ok := stack.LookupClass("Widget")
	if !ok || got != cls {
		t.Fatalf("LookupClass(Widget) = %v, %v; want the program-registered class", got, ok)
	}
	if _, ok := stack.LookupClass("Nope"); ok {
		t.Fatal("expected lookup of an undeclared class to fail")
	}
}
