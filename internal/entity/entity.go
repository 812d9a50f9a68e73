// Package entity implements the symbol model described in spec.md §3:
// the class/object/data-member/method entity graph, inheritance
// merging, virtual-method overriding, and the class lifecycle
// (create → populate → finalize).
//
// This package owns pure data and the invariants that must hold over
// it; the walk that populates it (scope push/pop, name lookup) lives
// in internal/scope, and the code that reference chains compile to
// lives in internal/resolver and internal/codegen. The split mirrors
// the "Entity graph" vs. "Symbol table & scope stack" line in spec.md
// §2's component table.
package entity

import (
	"strings"

	"github.com/dr8co/bashpp/internal/ast"
	"github.com/dr8co/bashpp/internal/position"
)

// Visibility is a method or data member's accessibility, with the
// extra Inaccessible state spec.md §3 invariant 6 requires: an
// inherited private member is downgraded to Inaccessible rather than
// staying Private, so the resolver can tell "not visible because
// private-and-foreign" apart from "genuinely absent".
type Visibility int

const (
	Public Visibility = iota
	Protected
	Private
	Inaccessible
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	case Inaccessible:
		return "inaccessible"
	default:
		return "unknown"
	}
}

func visibilityFromAST(v ast.Visibility) Visibility {
	switch v {
	case ast.Protected:
		return Protected
	case ast.Private:
		return Private
	default:
		return Public
	}
}

// IsValidIdentifier enforces spec.md §3 invariant 1: identifier names
// contain no double underscore, since "__" is reserved for generated
// names (spec.md §6, "Generated-code naming").
func IsValidIdentifier(name string) bool {
	return !strings.Contains(name, "__")
}

// Base carries the fields every entity shares: its name, definition
// position, further reference positions (for find-references), and a
// weak backlink to its containing class. Weak means nil-able and
// never participates in ownership — see spec.md §3 "Ownership".
type Base struct {
	Name      string
	DefPos    position.Position
	RefPos    []position.Position
	Container *Class // weak; nil at program scope
}

// AddReference records a further use-site of this entity, for
// find-references queries from an eventual IDE front end.
func (b *Base) AddReference(p position.Position) {
	b.RefPos = append(b.RefPos, p)
}

// Primitive is the name of the synthetic class whose instances are
// ordinary shell strings (spec.md §3). Exactly one Class with this
// name exists per Program, at program scope.
const Primitive = "primitive"

// System method names the generator depends on by fixed name
// (spec.md §6, "Runtime helpers the emitter depends on"). This table
// is the explicit registry spec.md §9's Open Question calls for,
// replacing the original's "any name starting with __ is a system
// method" hack. Membership is queried through IsSystemMethod; the
// resolver and emitter do not call it, and AddMethod/AddDataMember do
// not check names against it or against IsValidIdentifier. The only
// "__" check on user code is the resolver's rejection of a chain
// identifier containing "__" (CodeDoubleUnderscore).
var systemMethods = []struct {
	Name          string
	Synthesizable bool // may finalize() generate a default body
}{
	{"toPrimitive", true},
	{"__destructor", true},
	{"__delete", false}, // always synthesized, never user-supplied
	{"__new", false},
	{"__copy", false},
	{"__constructor", false},
}

// IsSystemMethod reports whether name is one of the fixed runtime
// hook names the generator depends on.
func IsSystemMethod(name string) bool {
	for _, m := range systemMethods {
		if m.Name == name {
			return true
		}
	}
	return false
}

// isSynthesizable reports whether finalize() is allowed to generate a
// default body for name when the user supplied none.
func isSynthesizable(name string) bool {
	for _, m := range systemMethods {
		if m.Name == name {
			return m.Synthesizable
		}
	}
	return false
}

// Parameter is a method parameter: a name and a declared type. Per
// spec.md §3 invariant, it must be a pointer unless its type is
// Primitive.
type Parameter struct {
	Name      string
	Type      *Class
	IsPointer bool
}

// MethodKind distinguishes an ordinary method from the at-most-one
// constructor/destructor slot a class carries.
type MethodKind int

const (
	OrdinaryMethod MethodKind = iota
	ConstructorMethod
	DestructorMethod
)

// Method represents one member function of a Class, per spec.md §3.
type Method struct {
	Base
	Kind       MethodKind
	Parameters []Parameter
	Body       []ast.Statement
	Visibility Visibility
	Virtual    bool
	Overridable bool
	Inherited   bool
	// LastOverride is the name of the class that most recently
	// overrode this virtual method; used by the override rule in
	// spec.md §4.1.
	LastOverride string
	// Overridden is a weak backlink to the method this one overrides,
	// used only for cross-file rename propagation in an eventual IDE
	// front end — resolves to nil if the target was torn down.
	Overridden *Method
	// FuncName is the generated function name, e.g. "bpp__Foo__greet".
	FuncName string
}

// DataMember represents one field of a Class, per spec.md §3,
// including the Supplemented Features array-member extension.
type DataMember struct {
	Base
	Type       *Class
	IsPointer  bool
	IsArray    bool
	Default    string
	Visibility Visibility
}

// Class represents one "@class" definition, per spec.md §3.
type Class struct {
	Base
	Methods     []*Method
	DataMembers []*DataMember
	Constructor *Method
	Destructor  *Method
	// Parents is the inheritance chain, nearest-first.
	Parents []*Class
	Finalized bool

	methodIndex     map[string]*Method
	dataMemberIndex map[string]*DataMember
}

// NewClass creates an empty, unfinalized class. It must be registered
// with the owning Program immediately (spec.md §3 "Lifecycle": "added
// to the program's lookup table immediately, to permit forward
// references within its own body").
func NewClass(name string, def position.Position) *Class {
	return &Class{
		Base:            Base{Name: name, DefPos: def},
		methodIndex:     make(map[string]*Method),
		dataMemberIndex: make(map[string]*DataMember),
	}
}

// GetMethodResult is the three-way outcome of a method lookup,
// distinguishing "genuinely absent" from "present but not visible
// from here" per spec.md §4.1.
type GetMethodResult int

const (
	MethodNotFound GetMethodResult = iota
	MethodFound
	MethodInaccessibleResult
)

// GetMethod resolves name against c's method table, applying the
// visibility rule from spec.md §4.1: public is returned
// unconditionally; protected/private only when context is c itself;
// inaccessible (an inherited-private marker) always fails.
func (c *Class) GetMethod(name string, context *Class) (*Method, GetMethodResult) {
	m, ok := c.methodIndex[name]
	if !ok {
		return nil, MethodNotFound
	}
	switch m.Visibility {
	case Public:
		return m, MethodFound
	case Protected, Private:
		if context == c {
			return m, MethodFound
		}
		return nil, MethodInaccessibleResult
	case Inaccessible:
		return nil, MethodInaccessibleResult
	}
	return nil, MethodNotFound
}

// GetDataMember resolves name against c's data-member table with the
// same visibility rule GetMethod uses.
func (c *Class) GetDataMember(name string, context *Class) (*DataMember, GetMethodResult) {
	d, ok := c.dataMemberIndex[name]
	if !ok {
		return nil, MethodNotFound
	}
	switch d.Visibility {
	case Public:
		return d, MethodFound
	case Protected, Private:
		if context == c {
			return d, MethodFound
		}
		return nil, MethodInaccessibleResult
	case Inaccessible:
		return nil, MethodInaccessibleResult
	}
	return nil, MethodNotFound
}

// AddMethodError is returned by AddMethod when a method cannot be
// added as given.
type AddMethodError struct{ Message string }

func (e *AddMethodError) Error() string { return e.Message }

// AddMethod adds m to c, applying spec.md §4.1's overriding rule: if a
// method of the same name already exists and it is inherited+virtual
// with LastOverride != c.Name, replace it, set LastOverride = c.Name,
// and wire the weak Overridden backlink. Otherwise a duplicate
// definition fails. It also enforces invariant 3 (a method name and a
// data-member name cannot collide within one class).
func (c *Class) AddMethod(m *Method) error {
	if _, clash := c.dataMemberIndex[m.Name]; clash {
		return &AddMethodError{Message: "method '" + m.Name + "' collides with a data member of the same name in class '" + c.Name + "'"}
	}
	if existing, ok := c.methodIndex[m.Name]; ok {
		if existing.Inherited && existing.Virtual && existing.LastOverride != c.Name {
			m.Overridden = existing
			m.LastOverride = c.Name
			m.Virtual = true
			m.Container = c
			c.methodIndex[m.Name] = m
			for i, om := range c.Methods {
				if om.Name == m.Name {
					c.Methods[i] = m
					return nil
				}
			}
			c.Methods = append(c.Methods, m)
			return nil
		}
		return &AddMethodError{Message: "duplicate definition of method '" + m.Name + "' in class '" + c.Name + "'"}
	}
	m.Container = c
	c.methodIndex[m.Name] = m
	c.Methods = append(c.Methods, m)
	return nil
}

// AddDataMember adds d to c, enforcing invariant 3 (name collision
// with a method) and invariant 4 (a data member may not declare its
// containing class as its own type unless it is a pointer).
func (c *Class) AddDataMember(d *DataMember) error {
	if _, clash := c.methodIndex[d.Name]; clash {
		return &AddMethodError{Message: "data member '" + d.Name + "' collides with a method of the same name in class '" + c.Name + "'"}
	}
	if _, dup := c.dataMemberIndex[d.Name]; dup {
		return &AddMethodError{Message: "duplicate definition of data member '" + d.Name + "' in class '" + c.Name + "'"}
	}
	if d.Type == c && !d.IsPointer {
		return &AddMethodError{Message: "data member '" + d.Name + "' may not embed its own containing class '" + c.Name + "' by value"}
	}
	d.Container = c
	c.dataMemberIndex[d.Name] = d
	c.DataMembers = append(c.DataMembers, d)
	return nil
}

// SetConstructor installs c's constructor, rejecting a second
// definition per spec.md §7's Structure-error bullet
// ("constructor/destructor redefinition").
func (c *Class) SetConstructor(m *Method) error {
	if c.Constructor != nil {
		return &AddMethodError{Message: "class '" + c.Name + "' already has a constructor"}
	}
	m.Kind = ConstructorMethod
	m.Container = c
	c.Constructor = m
	return nil
}

// SetDestructor installs c's destructor, rejecting a second
// definition the same way SetConstructor does. A user destructor must
// be public per spec.md §3 invariant 7.
func (c *Class) SetDestructor(m *Method) error {
	if c.Destructor != nil {
		return &AddMethodError{Message: "class '" + c.Name + "' already has a destructor"}
	}
	m.Kind = DestructorMethod
	m.Visibility = Public
	m.Container = c
	c.Destructor = m
	return nil
}

// Inherit merges parent into c per spec.md §4.1: prepend parent's
// parent chain, copy methods and data members into self (marked
// Inherited), downgrade private items to Inaccessible, and preserve
// LastOverride on virtual methods unless c itself later overrides
// them (AddMethod handles the "later overrides" half).
func (c *Class) Inherit(parent *Class) {
	merged := append([]*Class{parent}, parent.Parents...)
	c.Parents = append(c.Parents, merged...)

	for _, pm := range parent.Methods {
		copyM := *pm
		copyM.Inherited = true
		if copyM.Visibility == Private {
			copyM.Visibility = Inaccessible
		}
		if copyM.LastOverride == "" && copyM.Virtual {
			copyM.LastOverride = parent.Name
		}
		c.methodIndex[pm.Name] = &copyM
		c.Methods = append(c.Methods, &copyM)
	}
	for _, pd := range parent.DataMembers {
		copyD := *pd
		if copyD.Visibility == Private {
			copyD.Visibility = Inaccessible
		}
		c.dataMemberIndex[pd.Name] = &copyD
		c.DataMembers = append(c.DataMembers, &copyD)
	}
}

// Parent returns c's nearest parent class, or nil at the root.
func (c *Class) Parent() *Class {
	if len(c.Parents) == 0 {
		return nil
	}
	return c.Parents[0]
}

// VTable computes the method-name → generated-function-name mapping
// visible from c, per spec.md §4.5 and the bit-exact layout in §6.
// Entries come from the most-derived override reachable from c's
// inheritance chain, which AddMethod/Inherit already guarantee by
// construction (spec.md §8's first testable property).
func (c *Class) VTable() map[string]string {
	table := make(map[string]string)
	for _, m := range c.Methods {
		if m.Virtual {
			table[m.Name] = m.FuncName
		}
	}
	return table
}

// Finalize idempotently closes class definition per spec.md §3
// invariant 7 and 8: synthesizes a default toPrimitive if none is
// defined or inherited and a default __destructor if none was set,
// each independently, and registers a bodiless public virtual
// __delete method entry (its Bash body is rendered by the emitter
// from runtime.ClassSkeleton). After Finalize, no
// methods/members may be added (enforced by callers, not here).
func (c *Class) Finalize(program *Program) {
	if c.Finalized {
		return
	}
	c.Finalized = true

	if _, result := c.GetMethod("toPrimitive", c); result != MethodFound {
		if _, exists := c.methodIndex["toPrimitive"]; !exists && isSynthesizable("toPrimitive") {
			_ = c.AddMethod(&Method{
				Base:       Base{Name: "toPrimitive"},
				Kind:       OrdinaryMethod,
				Visibility: Public,
				FuncName:   "bpp__" + c.Name + "__toPrimitive",
			})
		}
	}
	if c.Destructor == nil {
		_ = c.SetDestructor(&Method{
			Base:     Base{Name: "__destructor"},
			FuncName: "bpp__" + c.Name + "____destructor",
		})
	}

	del := &Method{
		Base:       Base{Name: "__delete"},
		Kind:       OrdinaryMethod,
		Visibility: Public,
		Virtual:    true,
		FuncName:   "bpp__" + c.Name + "____delete",
	}
	// AddMethod would reject __delete as a duplicate on re-finalize;
	// Finalize is guarded idempotent above so this only runs once.
	c.methodIndex["__delete"] = del
	c.Methods = append(c.Methods, del)
}

// Object represents one instantiated variable, per spec.md §3.
type Object struct {
	Base
	Type       *Class
	IsPointer  bool
	Address    string
	AssignFrom string
	CopyFrom   string
}

// Program is the root scope: owned classes, the singleton Primitive
// class, and the global counters spec.md §9's "Counters" note asks to
// be collapsed into one struct threaded through emission.
type Program struct {
	Classes   map[string]*Class
	Primitive *Class
	Counters  Counters
	// TargetBashVersion selects the ≥5.3 native supershell form vs.
	// the helper-function fallback, per spec.md §4.3/§4.6.
	TargetBashVersion string
}

// Counters are the monotonically increasing IDs used to name
// generated temporaries, helper functions, and casts uniquely.
type Counters struct {
	Supershell   int
	Assignment   int
	Function     int
	DynamicCast  int
	Typeof       int
	Object       int
}

// NextSupershell returns the next unique supershell helper suffix.
func (c *Counters) NextSupershell() int { c.Supershell++; return c.Supershell - 1 }

// NextAssignment returns the next unique assignment-temporary suffix.
func (c *Counters) NextAssignment() int { c.Assignment++; return c.Assignment - 1 }

// NextFunction returns the next unique anonymous-function suffix.
func (c *Counters) NextFunction() int { c.Function++; return c.Function - 1 }

// NextDynamicCast returns the next unique dynamic-cast temporary suffix.
func (c *Counters) NextDynamicCast() int { c.DynamicCast++; return c.DynamicCast - 1 }

// NextTypeof returns the next unique typeof temporary suffix.
func (c *Counters) NextTypeof() int { c.Typeof++; return c.Typeof - 1 }

// NextObject returns the next unique anonymous-object suffix.
func (c *Counters) NextObject() int { c.Object++; return c.Object - 1 }

// NewProgram creates a Program with the singleton primitive class
// already registered at program scope.
func NewProgram(targetBashVersion string) *Program {
	prim := NewClass(Primitive, position.Position{})
	prim.Finalized = true
	p := &Program{
		Classes:           map[string]*Class{Primitive: prim},
		Primitive:         prim,
		TargetBashVersion: targetBashVersion,
	}
	return p
}

// DeclareClass registers an empty class at program scope immediately,
// per spec.md §3 "Lifecycle", so the class body can refer to itself.
func (p *Program) DeclareClass(name string, def position.Position) (*Class, error) {
	if _, exists := p.Classes[name]; exists {
		return nil, &AddMethodError{Message: "class '" + name + "' is already defined"}
	}
	c := NewClass(name, def)
	p.Classes[name] = c
	return c, nil
}

// LookupClass finds a class by name at program scope.
func (p *Program) LookupClass(name string) (*Class, bool) {
	c, ok := p.Classes[name]
	return c, ok
}

// SupportsNativeSupershell reports whether p.TargetBashVersion is
// ≥5.3 and therefore emits the native "${ ...; }" supershell form
// instead of the helper-function fallback (spec.md §4.3/§4.6).
func (p *Program) SupportsNativeSupershell() bool {
	return compareBashVersion(p.TargetBashVersion, "5.3") >= 0
}

// compareBashVersion compares two "MAJOR.MINOR" version strings,
// returning -1, 0, or 1. Malformed input sorts as older.
func compareBashVersion(a, b string) int {
	pa, pb := splitVersion(a), splitVersion(b)
	for i := 0; i < 2; i++ {
		if pa[i] != pb[i] {
			if pa[i] < pb[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func splitVersion(v string) [2]int {
	var out [2]int
	parts := strings.SplitN(v, ".", 2)
	for i := 0; i < len(parts) && i < 2; i++ {
		n := 0
		for _, r := range parts[i] {
			if r < '0' || r > '9' {
				break
			}
			n = n*10 + int(r-'0')
		}
		out[i] = n
	}
	return out
}
