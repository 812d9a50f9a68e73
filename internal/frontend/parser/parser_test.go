package parser

import (
	"testing"

	"github.com/dr8co/bashpp/internal/ast"
)

func TestParseEmptyClass(t *testing.T) {
	p := New("t.bpp", `@class Empty {}`)
	prog := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Statements))
	}
	cd, ok := prog.Statements[0].(*ast.ClassDefinition)
	if !ok {
		t.Fatalf("expected *ast.ClassDefinition, got %T", prog.Statements[0])
	}
	if cd.Name != "Empty" {
		t.Fatalf("got class name %q", cd.Name)
	}
	if len(cd.Body) != 0 {
		t.Fatalf("expected empty body, got %d statements", len(cd.Body))
	}
}

func TestParseClassWithParentsMethodAndDataMember(t *testing.T) {
	src := `@class Dog : Animal, Named {
@public @method bark() {
echo woof
}
@private int age = 0;
}`
	p := New("t.bpp", src)
	prog := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	cd := prog.Statements[0].(*ast.ClassDefinition)
	if cd.Name != "Dog" {
		t.Fatalf("got class name %q", cd.Name)
	}
	if len(cd.Parents) != 2 || cd.Parents[0] != "Animal" || cd.Parents[1] != "Named" {
		t.Fatalf("got parents %v", cd.Parents)
	}
	if len(cd.Body) != 2 {
		t.Fatalf("expected 2 body statements, got %d: %#v", len(cd.Body), cd.Body)
	}

	method, ok := cd.Body[0].(*ast.MethodDefinition)
	if !ok {
		t.Fatalf("expected *ast.MethodDefinition, got %T", cd.Body[0])
	}
	if method.Name != "bark" || method.Visibility != ast.Public || method.Kind != ast.OrdinaryMethod {
		t.Fatalf("unexpected method: %+v", method)
	}
	if len(method.Body) != 1 {
		t.Fatalf("expected 1 statement in method body, got %d", len(method.Body))
	}

	dm, ok := cd.Body[1].(*ast.DataMemberDeclaration)
	if !ok {
		t.Fatalf("expected *ast.DataMemberDeclaration, got %T", cd.Body[1])
	}
	if dm.Name != "age" || dm.Visibility != ast.Private || dm.Type.ClassName != "int" {
		t.Fatalf("unexpected data member: %+v", dm)
	}
}

func TestParseIncludeOnce(t *testing.T) {
	p := New("t.bpp", `@include_once <collections/list>;`)
	prog := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	inc, ok := prog.Statements[0].(*ast.IncludeStatement)
	if !ok {
		t.Fatalf("expected *ast.IncludeStatement, got %T", prog.Statements[0])
	}
	if !inc.Once || !inc.System || inc.Name != "collections/list" {
		t.Fatalf("unexpected include: %+v", inc)
	}
}

func TestParseTopLevelObjectInstantiationAndAssignment(t *testing.T) {
	src := "Dog* rex = @new Dog();\n@rex.bark();\n"
	p := New("t.bpp", src)
	prog := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	if len(prog.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %#v", len(prog.Statements), prog.Statements)
	}
	oi, ok := prog.Statements[0].(*ast.ObjectInstantiation)
	if !ok {
		t.Fatalf("expected *ast.ObjectInstantiation, got %T", prog.Statements[0])
	}
	if oi.Name != "rex" || oi.Type.ClassName != "Dog" || !oi.Type.IsPointer {
		t.Fatalf("unexpected instantiation: %+v", oi)
	}
}
