package device

import (
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	for _, req := range []string{"", "auto", "CPU", " cpu "} {
		d, err := Resolve(req)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", req, err)
		}
		if d.Kind != KindCPU {
			t.Fatalf("Resolve(%q) = %s, want cpu", req, d.Kind)
		}
		if d.Fallback {
			t.Fatalf("Resolve(%q) reported a fallback", req)
		}
	}
}

func TestResolveCUDAFallsBack(t *testing.T) {
	d, err := Resolve("cuda")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Kind != KindCPU || !d.Fallback || d.Requested != KindCUDA {
		t.Fatalf("unexpected device: %+v", d)
	}
	if !strings.Contains(d.String(), "requested cuda") {
		t.Fatalf("String() should mention the fallback: %s", d)
	}
}

func TestResolveUnknown(t *testing.T) {
	if _, err := Resolve("tpu"); err == nil {
		t.Fatal("expected error for unknown device")
	}
}
