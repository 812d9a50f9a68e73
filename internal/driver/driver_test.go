package driver

import (
	"os"
	"strings"
	"testing"
)

func TestCompileEmptyClassProducesNoErrors(t *testing.T) {
	d := New(Options{TargetBash: "5.1"})
	res, err := d.Compile("empty.bpp", `@class Empty {}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.HasErrors {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics.All())
	}
	if res.Output == "" {
		t.Fatal("expected non-empty output for a valid program")
	}
}

func TestCompileUndefinedClassSuppressesOutput(t *testing.T) {
	d := New(Options{TargetBash: "5.1"})
	res, err := d.Compile("bad.bpp", `Nope* x = @new Nope();`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.HasErrors {
		t.Fatal("expected diagnostics for an undefined class")
	}
	if res.Output != "" {
		t.Fatalf("expected suppressed output, got %q", res.Output)
	}
	found := false
	for _, d := range res.Diagnostics.All() {
		if strings.Contains(d.Message, "undefined class") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an 'undefined class' diagnostic, got %v", res.Diagnostics.All())
	}
}

func TestCompileIncludeOnceSkipsDuplicateInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.bpp", `@class Util {}`)

	src := "@include_once \"util.bpp\";\n@include_once \"util.bpp\";\n"
	d := New(Options{TargetBash: "5.1"})
	res, err := d.Compile(dir+"/main.bpp", src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.HasErrors {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics.All())
	}
}

// TestCompileInheritedOverrideDispatchesThroughVTable reproduces
// spec.md §8 scenario 2 (inherited override): B overrides A's virtual
// "greet", and a call through a B-typed reference must go through the
// generated vTable-lookup helper rather than treating the receiver's
// bare address as a command to execute.
func TestCompileInheritedOverrideDispatchesThroughVTable(t *testing.T) {
	d := New(Options{TargetBash: "5.3"})
	src := `@class A {
@public @virtual @method greet {
echo A;
}
}
@class B : A {
@public @method greet {
echo B;
}
}
B* obj = @new B();
@obj.greet;
`
	res, err := d.Compile("vtable.bpp", src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.HasErrors {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics.All())
	}
	if !strings.Contains(res.Output, "bpp____vTable__lookup") {
		t.Fatalf("expected the vTable-lookup helper to be emitted, got:\n%s", res.Output)
	}
	if !strings.Contains(res.Output, `"bpp__B____vTable"`) {
		t.Fatalf("expected the call to look up against B's vTable, got:\n%s", res.Output)
	}
	if !strings.Contains(res.Output, `"greet"`) {
		t.Fatalf("expected the method name to be passed to the lookup, got:\n%s", res.Output)
	}
	if strings.Contains(res.Output, "\nobj\n") {
		t.Fatalf("receiver address must not be executed directly as a bare command, got:\n%s", res.Output)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := dir + "/" + name
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
