package embedding

import (
	"context"
	"math"
	"testing"
)

func TestPseudoEmbedder_Deterministic(t *testing.T) {
	e := NewPseudoEmbedder(64)
	a := e.Vector("hello")
	b := e.Vector("hello")
	if len(a) != 64 {
		t.Fatalf("len=%d, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("slot %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestPseudoEmbedder_KnownValues(t *testing.T) {
	e := NewPseudoEmbedder(64)
	got := e.Vector("hello")
	want := []float64{0.178100442511635, 0.851435301747158, 0.6501382848859388, 0.4302862973983368, 0.13641279468986037}
	for i, w := range want {
		if math.Abs(got[i]-w) > 1e-12 {
			t.Errorf("slot %d = %v, want %v", i, got[i], w)
		}
	}

	single := e.Vector("a")
	if math.Abs(single[0]-0.1583171206225681) > 1e-12 {
		t.Errorf("slot 0 for %q = %v", "a", single[0])
	}
	if math.Abs(single[1]+0.002512970168612192) > 1e-12 {
		t.Errorf("slot 1 for %q = %v", "a", single[1])
	}
}

func TestPseudoEmbedder_MeanCentered(t *testing.T) {
	e := NewPseudoEmbedder(16)
	for _, text := range []string{"hello", "I feel anxious before competition", "ß∂ƒ 😀"} {
		var sum float64
		for _, v := range e.Vector(text) {
			sum += v
		}
		if math.Abs(sum) > 1e-9 {
			t.Errorf("%q: sum=%v, want ~0", text, sum)
		}
	}
}

func TestPseudoEmbedder_DifferentTexts(t *testing.T) {
	e := NewPseudoEmbedder(64)
	a, b := e.Vector("calm"), e.Vector("tense")
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts should produce different vectors")
	}
}

func TestPseudoEmbedder_EmptyTextIsZero(t *testing.T) {
	v := NewPseudoEmbedder(8).Vector("")
	for i, x := range v {
		if x != 0 {
			t.Errorf("slot %d = %v, want 0", i, x)
		}
	}
}

func TestPseudoEmbedder_DefaultDimensions(t *testing.T) {
	e := NewPseudoEmbedder(0)
	if e.Dimensions() != DefaultFallbackDimensions {
		t.Errorf("Dimensions()=%d", e.Dimensions())
	}
	v, err := e.Embed(context.Background(), "x")
	if err != nil || len(v) != DefaultFallbackDimensions {
		t.Errorf("Embed: len=%d err=%v", len(v), err)
	}
}
