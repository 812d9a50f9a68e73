// Package emitter implements the per-AST-node compound-construct
// overrides of spec.md §4.3 and the reference-emission-by-construct
// table of §4.4: it walks an internal/ast tree, drives
// internal/entity's class lifecycle, calls internal/resolver for
// every reference chain, and writes the resulting Bash text through
// internal/codegen's buffer discipline.
//
// It is split from internal/codegen (the pure pre/code/post buffer
// primitives) to avoid an import cycle: codegen is a leaf package
// with no knowledge of entities or scope, while this package sits on
// top of codegen, scope, entity, resolver, runtime, and diag. Both
// halves implement spec.md §4.3 "Code emitter" — see DESIGN.md.
//
// The overall shape (one method per AST node kind, switching on
// concrete type) mirrors the teacher's compiler/compiler.go Compile()
// dispatch, generalized from "append a bytecode instruction" to
// "append Bash text, possibly with hoisted setup/teardown".
package emitter

import (
	"fmt"
	"strings"

	"github.com/dr8co/bashpp/internal/ast"
	"github.com/dr8co/bashpp/internal/codegen"
	"github.com/dr8co/bashpp/internal/diag"
	"github.com/dr8co/bashpp/internal/entity"
	"github.com/dr8co/bashpp/internal/position"
	"github.com/dr8co/bashpp/internal/resolver"
	"github.com/dr8co/bashpp/internal/runtime"
	"github.com/dr8co/bashpp/internal/scope"
)

// Emitter holds the state threaded through one file's emission: the
// scope/entity stack, the diagnostic bag, and the set of global
// runtime helpers the output has actually used so far.
type Emitter struct {
	Stack   *scope.Stack
	Bag     *diag.Bag
	Runtime *runtime.Set
}

// New creates an Emitter over an existing program and diagnostic bag.
func New(stack *scope.Stack, bag *diag.Bag) *Emitter {
	return &Emitter{Stack: stack, Bag: bag, Runtime: runtime.NewSet()}
}

// EmitProgram compiles every top-level statement and returns the
// assembled output: the runtime helper prologue (only the helpers
// actually used), followed by the program's own linearized code.
func (e *Emitter) EmitProgram(prog *ast.Program) string {
	ctx := codegen.NewEmissionContext(codegen.KindPlain, nil)
	e.Stack.Top().Emission = ctx
	for _, stmt := range prog.Statements {
		e.emitStatement(ctx, stmt)
	}
	body := ctx.FlushCodeBuffers()
	prologue := e.Runtime.Emit()
	return prologue + body
}

// emitStatement dispatches one statement into ctx.
func (e *Emitter) emitStatement(ctx *codegen.EmissionContext, stmt ast.Statement) {
	switch n := stmt.(type) {
	case *ast.ClassDefinition:
		e.emitClassDefinition(ctx, n)
	case *ast.ObjectInstantiation:
		e.emitObjectInstantiation(ctx, n)
	case *ast.ValueAssignment:
		e.emitValueAssignment(ctx, n)
	case *ast.ArrayAssignment:
		e.emitArrayAssignment(ctx, n)
	case *ast.DeleteStatement:
		e.emitDelete(ctx, n)
	case *ast.RawText:
		ctx.AddCode(n.Text)
	case *ast.MixedLine:
		e.emitMixedLine(ctx, n)
	case *ast.CommandSequence:
		e.emitCommandSequence(ctx, n)
	case *ast.IfStatement:
		e.emitIf(ctx, n)
	case *ast.WhileOrUntilStatement:
		e.emitWhile(ctx, n)
	case *ast.ForStatement:
		e.emitFor(ctx, n)
	case *ast.CaseStatement:
		e.emitCase(ctx, n)
	case *ast.FunctionDefinition:
		e.emitFunctionDefinition(ctx, n)
	case *ast.HeredocBody:
		text := e.emitExpressionValue(ctx, n)
		ctx.AddCode(text + "\n")
	case *ast.IncludeStatement:
		// internal/include expands these into the statement stream
		// before the emitter ever sees the tree; one surviving here
		// means expansion was skipped upstream.
		e.Bag.Error(diag.CodeInternal, spanOf(n), "unexpanded include statement reached the emitter")
	case *ast.MethodDefinition:
		e.Bag.Error(diag.CodeStrayMember, spanOf(n), "method '%s' defined outside any class body", n.Name)
	case *ast.DataMemberDeclaration:
		e.Bag.Error(diag.CodeStrayMember, spanOf(n), "data member '%s' declared outside any class body", n.Name)
	default:
		e.Bag.Error(diag.CodeInternal, spanOf(n), "unhandled statement node %T", n)
	}
}

func spanOf(n ast.Node) position.Span { return n.Span() }

// ---- classes ----

func (e *Emitter) classToTypeRef(t ast.TypeRef) *entity.Class {
	if t.ClassName == "" || t.ClassName == entity.Primitive {
		return e.Stack.Program.Primitive
	}
	c, ok := e.Stack.LookupClass(t.ClassName)
	if !ok {
		return nil
	}
	return c
}

func entityVisibility(v ast.Visibility) entity.Visibility {
	switch v {
	case ast.Protected:
		return entity.Protected
	case ast.Private:
		return entity.Private
	default:
		return entity.Public
	}
}

func funcName(className, methodName string, kind entity.MethodKind) string {
	switch kind {
	case entity.ConstructorMethod:
		return "bpp__" + className + "____constructor"
	case entity.DestructorMethod:
		return "bpp__" + className + "____destructor"
	default:
		return "bpp__" + className + "__" + methodName
	}
}

func (e *Emitter) emitClassDefinition(ctx *codegen.EmissionContext, cd *ast.ClassDefinition) {
	class, err := e.Stack.Program.DeclareClass(cd.Name, cd.Span().Start)
	if err != nil {
		e.Bag.Error(diag.CodeDuplicateDefinition, spanOf(cd), "%s", err.Error())
		return
	}
	for _, pname := range cd.Parents {
		parent, ok := e.Stack.Program.LookupClass(pname)
		if !ok {
			e.Bag.Error(diag.CodeUndefinedClass, spanOf(cd), "undefined parent class '%s'", pname)
			continue
		}
		class.Inherit(parent)
	}

	frame := scope.NewFrame(scope.KindClassBody, e.Stack.Top())
	frame.Class = class
	e.Stack.Push(frame)

	for _, stmt := range cd.Body {
		switch n := stmt.(type) {
		case *ast.DataMemberDeclaration:
			e.declareDataMember(class, n)
		case *ast.MethodDefinition:
			e.declareMethodSignature(class, n)
		}
	}

	class.Finalize(e.Stack.Program)

	for _, stmt := range cd.Body {
		if md, ok := stmt.(*ast.MethodDefinition); ok {
			e.emitMethodBody(ctx, class, md)
		}
	}

	e.Stack.Pop()

	ctx.AddCode(e.renderVTable(class))
	if p := class.Parent(); p != nil {
		ctx.AddCode(fmt.Sprintf("bpp__%s____parent=%q\n", class.Name, p.Name))
	}
	sk := runtime.ClassSkeleton{ClassName: class.Name, Fields: dataMemberNames(class)}
	if class.Constructor != nil {
		sk.ConstructorCall = fmt.Sprintf("%s \"$__addr\" \"$@\"\n", funcName(class.Name, class.Constructor.Name, entity.ConstructorMethod))
	}
	if class.Destructor != nil {
		sk.DestructorCall = fmt.Sprintf("%s \"$__addr\"\n", funcName(class.Name, class.Destructor.Name, entity.DestructorMethod))
	}
	ctx.AddCode(sk.New())
	ctx.AddCode(sk.Copy())
	ctx.AddCode(sk.Delete())
}

func dataMemberNames(c *entity.Class) []string {
	names := make([]string, len(c.DataMembers))
	for i, d := range c.DataMembers {
		names[i] = d.Name
	}
	return names
}

func (e *Emitter) declareDataMember(class *entity.Class, n *ast.DataMemberDeclaration) {
	t := e.classToTypeRef(n.Type)
	if t == nil {
		e.Bag.Error(diag.CodeUndefinedClass, spanOf(n), "undefined type '%s' for data member '%s'", n.Type.ClassName, n.Name)
		return
	}
	dm := &entity.DataMember{
		Base:       entity.Base{Name: n.Name, DefPos: n.Span().Start},
		Type:       t,
		IsPointer:  n.Type.IsPointer,
		IsArray:    n.IsArray,
		Default:    n.Default,
		Visibility: entityVisibility(n.Visibility),
	}
	if t != e.Stack.Program.Primitive && !dm.IsPointer && t == class {
		e.Bag.Error(diag.CodeNonPointerParameter, spanOf(n), "data member '%s' embeds its own class '%s' by value", n.Name, class.Name)
		return
	}
	if err := class.AddDataMember(dm); err != nil {
		e.Bag.Error(diag.CodeDuplicateDefinition, spanOf(n), "%s", err.Error())
	}
}

func (e *Emitter) declareMethodSignature(class *entity.Class, n *ast.MethodDefinition) {
	params := make([]entity.Parameter, 0, len(n.Parameters))
	for _, p := range n.Parameters {
		t := e.classToTypeRef(p.Type)
		if t == nil {
			e.Bag.Error(diag.CodeUndefinedClass, spanOf(n), "undefined parameter type '%s' in method '%s'", p.Type.ClassName, n.Name)
			continue
		}
		if t != e.Stack.Program.Primitive && !p.Type.IsPointer {
			e.Bag.Error(diag.CodeNonPointerParameter, spanOf(n), "parameter '%s' of method '%s' must be a pointer: non-primitive objects pass by address", p.Name, n.Name)
			continue
		}
		params = append(params, entity.Parameter{Name: p.Name, Type: t, IsPointer: p.Type.IsPointer})
	}

	m := &entity.Method{
		Base:        entity.Base{Name: n.Name, DefPos: n.Span().Start},
		Kind:        entity.OrdinaryMethod,
		Parameters:  params,
		Body:        n.Body,
		Visibility:  entityVisibility(n.Visibility),
		Virtual:     n.Virtual,
		Overridable: n.Virtual,
	}

	switch n.Kind {
	case ast.ConstructorMethod:
		m.FuncName = funcName(class.Name, n.Name, entity.ConstructorMethod)
		if err := class.SetConstructor(m); err != nil {
			e.Bag.Error(diag.CodeConstructorRedefined, spanOf(n), "%s", err.Error())
		}
	case ast.DestructorMethod:
		m.FuncName = funcName(class.Name, n.Name, entity.DestructorMethod)
		if err := class.SetDestructor(m); err != nil {
			e.Bag.Error(diag.CodeDestructorRedefined, spanOf(n), "%s", err.Error())
		}
	default:
		m.FuncName = funcName(class.Name, n.Name, entity.OrdinaryMethod)
		if err := class.AddMethod(m); err != nil {
			e.Bag.Error(diag.CodeDuplicateDefinition, spanOf(n), "%s", err.Error())
		}
	}
}

func (e *Emitter) emitMethodBody(ctx *codegen.EmissionContext, class *entity.Class, n *ast.MethodDefinition) {
	m, _ := class.GetMethod(n.Name, class)
	if m == nil {
		if n.Kind == ast.ConstructorMethod {
			m = class.Constructor
		} else if n.Kind == ast.DestructorMethod {
			m = class.Destructor
		}
	}
	if m == nil {
		return // already reported when the signature was declared
	}

	frame := scope.NewFrame(scope.KindMethodBody, e.Stack.Top())
	frame.Class = class
	frame.Method = m
	bodyCtx := codegen.NewEmissionContext(codegen.KindPlain, nil)
	frame.Emission = bodyCtx
	e.Stack.Push(frame)

	bodyCtx.AddCode("__this=\"$1\"\n")
	for i, p := range m.Parameters {
		bodyCtx.AddCode(fmt.Sprintf("local %s=\"$%d\"\n", p.Name, i+2))
	}
	for _, stmt := range n.Body {
		e.emitStatement(bodyCtx, stmt)
	}

	e.Stack.Pop()

	ctx.AddCode(m.FuncName + "() {\n")
	ctx.AddCode(indentLines(bodyCtx.FlushCodeBuffers()))
	ctx.AddCode("}\n")
}

func indentLines(body string) string {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	var out strings.Builder
	for _, l := range lines {
		if l == "" {
			out.WriteString("\n")
			continue
		}
		out.WriteString("    " + l + "\n")
	}
	return out.String()
}

// renderVTable builds the class's associative-array vTable literal,
// chained to its parent's vTable via the "__parent__" key, per
// spec.md §4.5.
func (e *Emitter) renderVTable(class *entity.Class) string {
	var b strings.Builder
	fmt.Fprintf(&b, "declare -gA bpp__%s____vTable=(\n", class.Name)
	for name, fn := range class.VTable() {
		fmt.Fprintf(&b, "    [%s]=%q\n", name, fn)
	}
	if p := class.Parent(); p != nil {
		fmt.Fprintf(&b, "    [__parent__]=%q\n", "bpp__"+p.Name+"____vTable")
	}
	b.WriteString(")\n")
	return b.String()
}

// ---- objects ----

func (e *Emitter) emitObjectInstantiation(ctx *codegen.EmissionContext, n *ast.ObjectInstantiation) {
	class := e.classToTypeRef(n.Type)
	if class == nil {
		e.Bag.Error(diag.CodeUndefinedClass, spanOf(n), "undefined class '%s'", n.Type.ClassName)
		return
	}
	obj := &entity.Object{
		Base:      entity.Base{Name: n.Name, DefPos: n.Span().Start},
		Type:      class,
		IsPointer: n.Type.IsPointer,
		Address:   n.Name,
	}
	e.Stack.Top().DefineObject(obj)

	local := ""
	if e.Stack.InClassOrMethodOrFunctionBody() {
		local = "local "
	}

	if n.AssignFrom == nil {
		if class == e.Stack.Program.Primitive {
			ctx.AddCode(fmt.Sprintf("%s%s=\"\"\n", local, n.Name))
		} else {
			ctx.AddCode(fmt.Sprintf("%s%s=\"$(bpp__%s____new)\"\n", local, n.Name, class.Name))
		}
		return
	}

	value := e.emitExpressionValue(ctx, n.AssignFrom)
	if class == e.Stack.Program.Primitive {
		ctx.AddCode(fmt.Sprintf("%s%s=%s\n", local, n.Name, value))
		return
	}
	if n.Type.IsPointer {
		// A pointer just aliases another object's address: no copy.
		obj.AssignFrom = value
		ctx.AddCode(fmt.Sprintf("%s%s=%s\n", local, n.Name, value))
		return
	}
	// A by-value object initializer invokes the class's ____copy.
	obj.CopyFrom = value
	ctx.AddCode(fmt.Sprintf("%s%s=\"$(bpp__%s____copy %s)\"\n", local, n.Name, class.Name, value))
}

// ---- assignment ----

func (e *Emitter) resolveChain(rc *ast.ReferenceChain) (*resolver.Result, bool) {
	return resolver.Resolve(e.Stack, e.Bag, e.Stack.CurrentClass(), rc.Parts, rc.Span().Start)
}

func (e *Emitter) emitValueAssignment(ctx *codegen.EmissionContext, v *ast.ValueAssignment) {
	res, ok := e.resolveChain(v.Target)
	if !ok {
		return
	}
	if res.Kind == resolver.TargetMethod {
		e.Bag.Error(diag.CodePrimitiveAssignment, spanOf(v), "cannot assign to a method reference")
		return
	}
	ctx.AddCodeToPreviousLine(res.Pre)
	ctx.AddCodeToNextLine(res.Post)

	value := e.emitExpressionValue(ctx, v.Value)
	if v.Append {
		value = shellConcat(res.ReadValue(), value)
	}

	if res.TempCount == 0 {
		ctx.AddCode(fmt.Sprintf("%s=%s\n", res.Code, value))
		return
	}
	ctx.AddCode(fmt.Sprintf("printf -v %q '%%s' %s\n", resolver.Encase(res.Code, 1), value))
}

func shellConcat(a, b string) string {
	return fmt.Sprintf("%s%s", a, b)
}

func (e *Emitter) emitArrayAssignment(ctx *codegen.EmissionContext, a *ast.ArrayAssignment) {
	res, ok := e.resolveChain(a.Target)
	if !ok {
		return
	}
	ctx.AddCodeToPreviousLine(res.Pre)
	ctx.AddCodeToNextLine(res.Post)
	index := e.emitExpressionValue(ctx, a.Index)
	value := e.emitExpressionValue(ctx, a.Value)
	// The target is written as a Bash indexed-array element: directly as
	// name[index]=value when the chain resolved with no temporary, or
	// through eval on the name held by the last temporary otherwise.
	if res.TempCount == 0 {
		ctx.AddCode(fmt.Sprintf("%s[%s]=%s\n", res.Code, index, value))
		return
	}
	target := resolver.Encase(res.Code, 1)
	ctx.AddCode(fmt.Sprintf("eval \"${%s}[%s]=%s\"\n", target, index, shellQuote(value)))
}

func shellQuote(s string) string {
	return "\"" + strings.ReplaceAll(s, `"`, `\"`) + "\""
}

// ---- delete / new / dynamic_cast / typeof ----

func (e *Emitter) emitDelete(ctx *codegen.EmissionContext, d *ast.DeleteStatement) {
	res, ok := e.resolveChain(d.Target)
	if !ok {
		return
	}
	if res.Kind == resolver.TargetPrimitiveMember || (len(d.Target.Parts) == 1 && d.Target.Parts[0] == "this") {
		e.Bag.Error(diag.CodeDeleteThisOrPrimitive, spanOf(d), "cannot @delete 'this' or a primitive value")
		return
	}
	if res.Kind == resolver.TargetMethod {
		e.Bag.Error(diag.CodeDeleteOnMethod, spanOf(d), "cannot @delete a method reference")
		return
	}
	ctx.AddCodeToPreviousLine(res.Pre)
	ctx.AddCodeToNextLine(res.Post)
	class := res.Class
	if class == nil {
		class = e.Stack.Program.Primitive
	}
	ctx.AddCode(fmt.Sprintf("bpp__%s____delete %s\n", class.Name, res.ReadValue()))
}

func (e *Emitter) emitExpressionValue(ctx *codegen.EmissionContext, expr ast.Expression) string {
	switch n := expr.(type) {
	case *ast.RawText:
		return n.Text

	case *ast.StringLiteral:
		return e.emitStringLiteral(ctx, n)

	case *ast.ReferenceChain:
		res, ok := e.resolveChain(n)
		if !ok {
			return `""`
		}
		if res.Kind == resolver.TargetMethod {
			return e.emitMethodCallValue(ctx, n, res)
		}
		ctx.AddCodeToPreviousLine(res.Pre)
		ctx.AddCodeToNextLine(res.Post)
		if n.LengthQuery {
			return "${#" + res.Code + "}"
		}
		return res.ReadValue()

	case *ast.AddressOf:
		res, ok := e.resolveChain(n.Operand)
		if !ok {
			return `""`
		}
		ctx.AddCodeToPreviousLine(res.Pre)
		ctx.AddCodeToNextLine(res.Post)
		return res.Code

	case *ast.PointerDereference:
		return e.emitPointerDereference(ctx, n)

	case *ast.NewExpression:
		return e.emitNewExpression(ctx, n)

	case *ast.DynamicCastExpression:
		return e.emitDynamicCast(ctx, n)

	case *ast.TypeofExpression:
		res, ok := e.resolveChain(n.Operand)
		if !ok {
			return `""`
		}
		ctx.AddCodeToPreviousLine(res.Pre)
		ctx.AddCodeToNextLine(res.Post)
		helper := e.Runtime.Use(runtime.HelperTypeof)
		return fmt.Sprintf(`"$(%s %s)"`, helper, res.ReadValue())

	case *ast.NullPtr:
		return `""`

	case *ast.Supershell:
		return e.emitSupershell(ctx, n)

	case *ast.HeredocBody:
		return e.emitHeredocText(ctx, n)

	default:
		e.Bag.Error(diag.CodeInternal, spanOf(n), "unhandled expression node %T", n)
		return `""`
	}
}

func (e *Emitter) emitPointerDereference(ctx *codegen.EmissionContext, n *ast.PointerDereference) string {
	res, ok := e.resolveChain(n.Operand)
	if !ok {
		return `""`
	}
	ctx.AddCodeToPreviousLine(res.Pre)
	ctx.AddCodeToNextLine(res.Post)
	class := res.Class
	if class == nil {
		return res.ReadValue()
	}
	lookup := e.Runtime.Use(runtime.HelperVTableLookup)
	return fmt.Sprintf(`"$($(%s "bpp__%s____vTable" "toPrimitive") %s)"`, lookup, class.Name, res.ReadValue())
}

// emitMethodCallValue emits a reference chain whose terminal resolution
// is a method (resolver.TargetMethod) as a dynamically dispatched,
// supershell-wrapped call: a uniquely named temp captures the called
// function's stdout, substituted in place of the call, per spec.md
// §4.4's "@obj.method (rvalue)" row. Virtual methods are dispatched
// through the vTable helper already wired for emitPointerDereference's
// toPrimitive lookup; "@super.method" skips the lookup and invokes the
// parent's static function directly, per spec.md §4.5.
func (e *Emitter) emitMethodCallValue(ctx *codegen.EmissionContext, chain *ast.ReferenceChain, res *resolver.Result) string {
	ctx.AddCodeToPreviousLine(res.Pre)
	ctx.AddCodeToNextLine(res.Post)

	receiver := res.ReadValue()
	isSuper := len(chain.Parts) > 0 && chain.Parts[0] == "super"

	var call string
	if !isSuper && res.Method.Virtual && res.ClassHoldingMethod != nil {
		lookup := e.Runtime.Use(runtime.HelperVTableLookup)
		funcVar := fmt.Sprintf("__bpp_vfunc_%d", e.Stack.Program.Counters.NextFunction())
		call = fmt.Sprintf(`%s=$(%s "bpp__%s____vTable" %q); ${%s} %s`,
			funcVar, lookup, res.ClassHoldingMethod.Name, res.Method.Name, funcVar, receiver)
	} else {
		call = fmt.Sprintf("%s %s", res.Method.FuncName, receiver)
	}

	varName := fmt.Sprintf("__bpp_supershell_%d", e.Stack.Program.Counters.NextSupershell())
	if e.Stack.Program.SupportsNativeSupershell() {
		ctx.AddCodeToPreviousLine(fmt.Sprintf("%s=${ %s ;}\n", varName, call))
	} else {
		helper := e.Runtime.Use(runtime.HelperSupershellFallback)
		ctx.AddCodeToPreviousLine(fmt.Sprintf("%s=$(%s bash -c %s)\n", varName, helper, shellQuote(call)))
	}
	return "${" + varName + "}"
}

func (e *Emitter) emitNewExpression(ctx *codegen.EmissionContext, n *ast.NewExpression) string {
	class, ok := e.Stack.LookupClass(n.ClassName)
	if !ok {
		e.Bag.Error(diag.CodeUndefinedClass, spanOf(n), "undefined class '%s' in @new", n.ClassName)
		return `""`
	}
	args := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		args = append(args, e.emitExpressionValue(ctx, a))
	}
	return fmt.Sprintf(`"$(bpp__%s____new %s)"`, class.Name, strings.Join(args, " "))
}

func (e *Emitter) emitDynamicCast(ctx *codegen.EmissionContext, n *ast.DynamicCastExpression) string {
	res, ok := e.resolveChain(n.Operand)
	if !ok {
		return `""`
	}
	ctx.AddCodeToPreviousLine(res.Pre)
	ctx.AddCodeToNextLine(res.Post)
	if res.Kind == resolver.TargetPrimitiveMember ||
		(res.Kind == resolver.TargetMethod && res.Method != nil && res.Method.Name == "toPrimitive") {
		e.Bag.Warn(diag.CodeDynamicCastOnPrimitiv, spanOf(n), "@dynamic_cast applied to a primitive value always fails")
	}
	helper := e.Runtime.Use(runtime.HelperDynamicCast)
	return fmt.Sprintf(`"$(%s %q %s)"`, helper, n.ClassName, res.ReadValue())
}

func (e *Emitter) emitStringLiteral(ctx *codegen.EmissionContext, s *ast.StringLiteral) string {
	inner := codegen.NewEmissionContext(codegen.KindString, nil)
	var text strings.Builder
	for _, part := range s.Parts {
		switch p := part.(type) {
		case *ast.RawText:
			text.WriteString(p.Text)
		case *ast.ReferenceChain:
			res, ok := e.resolveChain(p)
			if !ok {
				continue
			}
			if res.Kind == resolver.TargetMethod {
				text.WriteString(e.emitMethodCallValue(ctx, p, res))
				continue
			}
			inner.AddCodeToPreviousLine(res.Pre)
			inner.AddCodeToNextLine(res.Post)
			if p.LengthQuery {
				text.WriteString("${#" + res.Code + "}")
			} else {
				text.WriteString(res.ReadValue())
			}
		case *ast.PointerDereference:
			text.WriteString(e.emitPointerDereference(ctx, p))
		default:
			text.WriteString(part.String())
		}
	}
	seg := inner.Segment()
	ctx.AddCodeToPreviousLine(seg.Pre)
	ctx.AddCodeToNextLine(seg.Post)
	return `"` + text.String() + `"`
}

// emitMixedLine renders a bare command line carrying embedded
// reference chains, e.g. "echo @this.inner.x" — the unquoted sibling
// of emitStringLiteral. Unlike a string literal, the rendered result
// must not be wrapped in quotes, since it is the command text itself
// rather than a single word argument.
func (e *Emitter) emitMixedLine(ctx *codegen.EmissionContext, m *ast.MixedLine) {
	var text strings.Builder
	for _, part := range m.Parts {
		switch p := part.(type) {
		case *ast.RawText:
			text.WriteString(p.Text)
		case *ast.ReferenceChain:
			res, ok := e.resolveChain(p)
			if !ok {
				continue
			}
			if res.Kind == resolver.TargetMethod {
				text.WriteString(e.emitMethodCallValue(ctx, p, res))
				continue
			}
			ctx.AddCodeToPreviousLine(res.Pre)
			ctx.AddCodeToNextLine(res.Post)
			if p.LengthQuery {
				text.WriteString("${#" + res.Code + "}")
			} else {
				text.WriteString(res.ReadValue())
			}
		case *ast.PointerDereference:
			text.WriteString(e.emitPointerDereference(ctx, p))
		default:
			text.WriteString(part.String())
		}
	}
	ctx.AddCode(text.String() + "\n")
}

func (e *Emitter) emitHeredocText(ctx *codegen.EmissionContext, h *ast.HeredocBody) string {
	var text strings.Builder
	text.WriteString("<<" + h.Delimiter + "\n")
	for _, part := range h.Parts {
		switch p := part.(type) {
		case *ast.RawText:
			text.WriteString(p.Text)
		case *ast.ReferenceChain:
			res, ok := e.resolveChain(p)
			if !ok {
				continue
			}
			ctx.AddCodeToPreviousLine(res.Pre)
			ctx.AddCodeToNextLine(res.Post)
			text.WriteString(res.ReadValue())
		default:
			text.WriteString(part.String())
		}
	}
	text.WriteString("\n" + h.Delimiter)
	return text.String()
}

// ---- supershell ----

func (e *Emitter) emitSupershell(ctx *codegen.EmissionContext, s *ast.Supershell) string {
	bodyCtx := codegen.NewEmissionContext(codegen.KindPlain, nil)
	for _, stmt := range s.Body {
		e.emitStatement(bodyCtx, stmt)
	}
	body := bodyCtx.FlushCodeBuffers()

	varName := fmt.Sprintf("__bpp_supershell_%d", e.Stack.Program.Counters.NextSupershell())
	if e.Stack.Program.SupportsNativeSupershell() {
		ctx.AddCodeToPreviousLine(fmt.Sprintf("%s=${ %s ;}\n", varName, strings.TrimRight(body, "\n")))
	} else {
		helper := e.Runtime.Use(runtime.HelperSupershellFallback)
		ctx.AddCodeToPreviousLine(fmt.Sprintf("%s=$(%s bash -c %s)\n", varName, helper, shellQuote(body)))
	}
	return "${" + varName + "}"
}

// ---- command sequences (&&/||) ----

// emitCommandSequence implements spec.md §4.3's pipeline gating: each
// "&&"/"||"-joined component's pre-code must run only when that
// component actually executes, so each component that has pre- or
// post-code is wrapped in its own "{ pre; component; __bpp_ret=$?;
// post; (exit $__bpp_ret); }" group rather than letting every
// component's pre-code run up front; a component with neither is
// emitted bare.
func (e *Emitter) emitCommandSequence(ctx *codegen.EmissionContext, seq *ast.CommandSequence) {
	for i, item := range seq.Items {
		itemCtx := codegen.NewEmissionContext(codegen.KindPlain, nil)
		e.emitStatement(itemCtx, item.Command)
		comp := itemCtx.Segment()

		if comp.Pre == "" && comp.Post == "" {
			ctx.AddCode(comp.Code)
		} else {
			var b strings.Builder
			b.WriteString("{\n")
			b.WriteString(indentLines(comp.Pre))
			b.WriteString(indentLines(comp.Code))
			b.WriteString("    __bpp_ret=$?\n")
			b.WriteString(indentLines(comp.Post))
			b.WriteString("    (exit $__bpp_ret)\n")
			b.WriteString("}")
			ctx.AddCode(b.String())
		}

		if item.Connective != ast.ConnectiveNone && i < len(seq.Items)-1 {
			ctx.AddCode(" " + string(item.Connective) + " ")
		} else {
			ctx.AddCode("\n")
		}
	}
}

// ---- if / while / for / case ----

// emitIf hoists every branch condition's pre-code above the whole
// if/elif/else chain and every post-code below it, per spec.md §4.3,
// since Bash evaluates "if cond; then" before any of cond's teardown
// can safely run, and the SAME teardown would otherwise need to be
// duplicated into every branch that follows.
func (e *Emitter) emitIf(ctx *codegen.EmissionContext, stmt *ast.IfStatement) {
	var allPre, allPost strings.Builder
	var out strings.Builder

	for i, branch := range stmt.Branches {
		condCtx := codegen.NewEmissionContext(codegen.KindPlain, nil)
		e.emitStatement(condCtx, branch.Condition)
		cond := condCtx.Segment()
		allPre.WriteString(cond.Pre)
		allPost.WriteString(cond.Post)

		keyword := "if"
		if i > 0 {
			keyword = "elif"
		}
		out.WriteString(fmt.Sprintf("%s %s; then\n", keyword, strings.TrimRight(cond.Code, "\n")))
		out.WriteString(indentLines(e.emitBlock(ctx, branch.Body)))
	}

	if stmt.Else != nil {
		out.WriteString("else\n")
		out.WriteString(indentLines(e.emitBlock(ctx, stmt.Else)))
	}
	out.WriteString("fi\n")

	ctx.AddCodeToPreviousLine(allPre.String())
	ctx.AddCode(out.String())
	ctx.AddCodeToNextLine(allPost.String())
}

// emitBlock compiles a nested statement list into its own linearized
// text, used for if/while/for/case bodies where the construct itself
// (not the caller) owns hoisting the condition's pre/post.
func (e *Emitter) emitBlock(ctx *codegen.EmissionContext, body []ast.Statement) string {
	blockCtx := codegen.NewEmissionContext(codegen.KindPlain, nil)
	for _, s := range body {
		e.emitStatement(blockCtx, s)
	}
	return blockCtx.FlushCodeBuffers()
}

// emitWhile re-evaluates the condition's pre-code every iteration. Bash
// re-runs every statement placed in the while-test clause itself each
// pass, not just the final tested command, so on a target that
// supports the native "${ ;}" supershell form (Program.
// SupportsNativeSupershell, spec.md line 131) the condition's setup is
// folded directly into the test clause and re-evaluated for free —
// no separate priming-plus-duplication is needed. Pre-5.3 Bash cannot
// use the native form inside a condition without forking, so that
// target keeps the priming + re-run-at-tail pattern, duplicating
// cond.Pre once above the loop and once at the end of the body.
func (e *Emitter) emitWhile(ctx *codegen.EmissionContext, stmt *ast.WhileOrUntilStatement) {
	condCtx := codegen.NewEmissionContext(codegen.KindPlain, nil)
	e.emitStatement(condCtx, stmt.Condition)
	cond := condCtx.Segment()

	keyword := "while"
	if stmt.Kind == ast.UntilLoop {
		keyword = "until"
	}

	native := e.Stack.Program.SupportsNativeSupershell()

	var out strings.Builder
	if cond.Pre != "" && native {
		out.WriteString(keyword + "\n")
		out.WriteString(indentLines(cond.Pre))
		out.WriteString(indentLines(strings.TrimRight(cond.Code, "\n")))
		out.WriteString("do\n")
	} else {
		if cond.Pre != "" {
			out.WriteString(indentLines(cond.Pre))
		}
		out.WriteString(fmt.Sprintf("%s %s; do\n", keyword, strings.TrimRight(cond.Code, "\n")))
	}
	out.WriteString(indentLines(e.emitBlock(ctx, stmt.Body)))
	if cond.Pre != "" && !native {
		out.WriteString(indentLines(cond.Pre))
	}
	out.WriteString("done\n")

	ctx.AddCode(out.String())
	ctx.AddCodeToNextLine(cond.Post)
}

func (e *Emitter) emitFor(ctx *codegen.EmissionContext, stmt *ast.ForStatement) {
	ctx.AddCode("for " + stmt.Header + "; do\n")
	ctx.AddCode(indentLines(e.emitBlock(ctx, stmt.Body)))
	ctx.AddCode("done\n")
}

func (e *Emitter) emitCase(ctx *codegen.EmissionContext, stmt *ast.CaseStatement) {
	subject := e.emitExpressionValue(ctx, stmt.Subject)
	ctx.AddCode(fmt.Sprintf("case %s in\n", subject))
	for _, arm := range stmt.Patterns {
		ctx.AddCode(fmt.Sprintf("    %s)\n", arm.Pattern))
		ctx.AddCode(indentLines(indentLines(e.emitBlock(ctx, arm.Body))))
		ctx.AddCode("        ;;\n")
	}
	ctx.AddCode("esac\n")
}

func (e *Emitter) emitFunctionDefinition(ctx *codegen.EmissionContext, fn *ast.FunctionDefinition) {
	frame := scope.NewFrame(scope.KindFunctionBody, e.Stack.Top())
	bodyCtx := codegen.NewEmissionContext(codegen.KindPlain, nil)
	frame.Emission = bodyCtx
	e.Stack.Push(frame)
	for _, stmt := range fn.Body {
		e.emitStatement(bodyCtx, stmt)
	}
	e.Stack.Pop()

	ctx.AddCode(fn.Name + "() {\n")
	ctx.AddCode(indentLines(bodyCtx.FlushCodeBuffers()))
	ctx.AddCode("}\n")
}
