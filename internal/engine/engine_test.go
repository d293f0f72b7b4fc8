package engine

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
	"github.com/danielpatrickdp/baler/go-codec/internal/model"
	"gonum.org/v1/gonum/mat"
)

func TestLatentWidth(t *testing.T) {
	cases := []struct {
		n     int
		ratio float64
		want  int
	}{
		{10, 2, 5},
		{10, 3, 3},
		{7, 2, 3},
		{5, 1, 5},
		{3, 0.5, 6},
	}
	for _, c := range cases {
		got, err := LatentWidth(c.n, c.ratio)
		if err != nil {
			t.Fatalf("LatentWidth(%d, %v): %v", c.n, c.ratio, err)
		}
		if got != c.want {
			t.Errorf("LatentWidth(%d, %v) = %d, want %d", c.n, c.ratio, got, c.want)
		}
		again, _ := LatentWidth(c.n, c.ratio)
		if again != got {
			t.Errorf("LatentWidth(%d, %v) not deterministic", c.n, c.ratio)
		}
	}
}

func TestLatentWidthRejects(t *testing.T) {
	for _, c := range []struct {
		n     int
		ratio float64
	}{{10, 0}, {10, -1}, {3, 4}, {0, 2}} {
		if _, err := LatentWidth(c.n, c.ratio); !errors.Is(err, faults.ErrConfigMismatch) {
			t.Errorf("LatentWidth(%d, %v): expected config mismatch, got %v", c.n, c.ratio, err)
		}
	}
}

func TestCheckArch(t *testing.T) {
	m, _ := model.New(model.Arch{Name: "linear_AE", NFeatures: 10, ZDim: 5}, 1)
	if err := CheckArch(m, 10, 2); err != nil {
		t.Fatalf("CheckArch: %v", err)
	}
	if err := CheckArch(m, 10, 3); !errors.Is(err, faults.ErrConfigMismatch) {
		t.Fatalf("expected mismatch for ratio 3, got %v", err)
	}
	if err := CheckArch(m, 12, 2.4); !errors.Is(err, faults.ErrConfigMismatch) {
		t.Fatalf("expected mismatch for feature count, got %v", err)
	}
}

func TestCompressDecompressShapes(t *testing.T) {
	m, _ := model.New(model.Arch{Name: "george_SAE_small", NFeatures: 6, ZDim: 3}, 1)
	e := New(m, 7) // several batches plus a partial one

	x := mat.NewDense(20, 6, nil)
	for i := 0; i < 20; i++ {
		for j := 0; j < 6; j++ {
			x.Set(i, j, float64(i*j)/120)
		}
	}
	latent, err := e.Compress(x)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if r, c := latent.Dims(); r != 20 || c != 3 {
		t.Fatalf("latent dims %dx%d, want 20x3", r, c)
	}
	out, err := e.Decompress(latent)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if r, c := out.Dims(); r != 20 || c != 6 {
		t.Fatalf("output dims %dx%d, want 20x6", r, c)
	}

	// batching must not change the result
	whole, _ := m.Encode(x)
	if !mat.EqualApprox(whole, latent, 1e-12) {
		t.Fatal("batched encode differs from a single pass")
	}
}

func TestShapeErrorsCarryStage(t *testing.T) {
	m, _ := model.New(model.Arch{Name: "linear_AE", NFeatures: 6, ZDim: 3}, 1)
	e := New(m, 0)

	_, err := e.Compress(mat.NewDense(2, 5, nil))
	if !errors.Is(err, faults.ErrShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
	if stage, _ := faults.StageOf(err); stage != faults.StageCompress {
		t.Fatalf("expected compress stage, got %s", stage)
	}

	_, err = e.Decompress(mat.NewDense(2, 4, nil))
	if !errors.Is(err, faults.ErrShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
	if stage, _ := faults.StageOf(err); stage != faults.StageDecompress {
		t.Fatalf("expected decompress stage, got %s", stage)
	}
}
