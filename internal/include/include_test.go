package include

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dr8co/bashpp/internal/ast"
)

func writeTemp(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("@class Nothing {}\n"), 0o644); err != nil {
		t.Fatalf("writeTemp: %v", err)
	}
	return p
}

func TestResolveLocalInclude(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "lib.bpp")

	r := NewResolver(dir, nil)
	target, err := r.Resolve("lib.bpp", false, false, false, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !target.Process {
		t.Error("first resolution of a fresh path should be processed")
	}
	if target.Dynamic {
		t.Error("plain @include should not be dynamic")
	}
}

func TestIncludeOnceSkipsSecondResolution(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "lib.bpp")

	r := NewResolver(dir, nil)
	if _, err := r.Resolve("lib.bpp", false, true, false, ""); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := r.Resolve("lib.bpp", false, true, false, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if second.Process {
		t.Error("@include_once should not reprocess an already-seen path")
	}
}

func TestIncludeOnceAllowsDifferentSpelling(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	writeTemp(t, sub, "lib.bpp")

	r := NewResolver(dir, nil)
	if _, err := r.Resolve("sub/lib.bpp", false, true, false, ""); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := r.Resolve(filepath.Join(dir, "sub", "lib.bpp"), false, true, false, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if second.Process {
		t.Error("two spellings of the same canonical path should count as the same include")
	}
}

func TestResolveSystemIncludeSearchesPathList(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeTemp(t, second, "std.bpp")

	r := NewResolver(t.TempDir(), []string{first, second})
	target, err := r.Resolve("std.bpp", true, false, false, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Dir(target.Path) != second {
		t.Errorf("resolved to %q, want a file under %q", target.Path, second)
	}
}

func TestResolveMissingFileErrors(t *testing.T) {
	r := NewResolver(t.TempDir(), nil)
	if _, err := r.Resolve("missing.bpp", false, false, false, ""); err == nil {
		t.Error("expected an error resolving a nonexistent local include")
	}
}

func TestResolveStatementDynamicFromAsClause(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "lib.bpp")

	r := NewResolver(dir, nil)
	stmt := &ast.IncludeStatement{Name: "lib.bpp", DynamicAs: "out/lib.sh"}
	target, err := r.ResolveStatement(stmt)
	if err != nil {
		t.Fatalf("ResolveStatement: %v", err)
	}
	if !target.Dynamic {
		t.Error("a DynamicAs override should mark the include dynamic")
	}
	if target.AsPath != "out/lib.sh" {
		t.Errorf("AsPath = %q, want out/lib.sh", target.AsPath)
	}
}
