package runtime

import (
	"strings"
	"testing"
)

func TestSetEmitsOnlyUsedHelpers(t *testing.T) {
	s := NewSet()
	name := s.Use(HelperTypeof)
	if name != "bpp____typeof" {
		t.Errorf("Use(HelperTypeof) = %q, want bpp____typeof", name)
	}
	out := s.Emit()
	if !strings.Contains(out, "bpp____typeof()") {
		t.Errorf("Emit() missing the used helper's body: %q", out)
	}
	if strings.Contains(out, "bpp____dynamic__cast()") {
		t.Errorf("Emit() included an unused helper: %q", out)
	}
}

func TestSetEmitsEachHelperOnce(t *testing.T) {
	s := NewSet()
	s.Use(HelperVTableLookup)
	s.Use(HelperVTableLookup)
	out := s.Emit()
	if strings.Count(out, "bpp____vTable__lookup()") != 1 {
		t.Errorf("helper emitted more than once: %q", out)
	}
}

func TestClassSkeletonNewDeclaresEveryField(t *testing.T) {
	sk := ClassSkeleton{ClassName: "Widget", Fields: []string{"x", "y"}}
	out := sk.New()
	if !strings.Contains(out, "bpp__Widget____new()") {
		t.Errorf("New() missing function header: %q", out)
	}
	if !strings.Contains(out, "__addr}__x=") || !strings.Contains(out, "__addr}__y=") {
		t.Errorf("New() missing a field declaration: %q", out)
	}
}

func TestClassSkeletonDeleteUnsetsEveryField(t *testing.T) {
	sk := ClassSkeleton{ClassName: "Widget", Fields: []string{"x", "y"}}
	out := sk.Delete()
	if !strings.Contains(out, `unset "${__addr}__x"`) || !strings.Contains(out, `unset "${__addr}__y"`) {
		t.Errorf("Delete() missing an unset: %q", out)
	}
}
