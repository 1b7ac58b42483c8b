package face

import (
	"testing"
	"time"
)

func TestSampler_BetweenBounds(t *testing.T) {
	s := NewSampler(1)
	min, max := 3*time.Second, 6*time.Second
	for i := 0; i < 1000; i++ {
		d := s.Between(min, max)
		if d < min || d > max {
			t.Fatalf("Between returned %v outside [%v, %v]", d, min, max)
		}
	}
}

func TestSampler_BetweenDegenerate(t *testing.T) {
	s := NewSampler(1)
	if got := s.Between(5*time.Second, 5*time.Second); got != 5*time.Second {
		t.Errorf("degenerate range returned %v", got)
	}
	if got := s.Between(5*time.Second, time.Second); got != 5*time.Second {
		t.Errorf("inverted range returned %v, want min", got)
	}
}

func TestSampler_ChanceExtremes(t *testing.T) {
	s := NewSampler(2)
	for i := 0; i < 100; i++ {
		if s.Chance(0) {
			t.Fatal("Chance(0) returned true")
		}
		if !s.Chance(1) {
			t.Fatal("Chance(1) returned false")
		}
	}
}

func TestSampler_PickExpressionNeverExcluded(t *testing.T) {
	s := NewSampler(3)
	weights := Weights()
	for i := 0; i < 500; i++ {
		got := s.PickExpression(weights, ExpressionHappy)
		if got == ExpressionHappy {
			t.Fatal("excluded expression was picked")
		}
		if _, ok := weights[got]; !ok {
			t.Fatalf("picked %q which has no weight", got)
		}
	}
}

func TestSampler_PickExpressionEmptyFallback(t *testing.T) {
	s := NewSampler(4)
	only := map[Expression]int{ExpressionHappy: 10}
	if got := s.PickExpression(only, ExpressionHappy); got != ExpressionNormal {
		t.Errorf("empty candidate set returned %q, want normal", got)
	}
}

func TestSampler_SeededDeterminism(t *testing.T) {
	a := NewSampler(77)
	b := NewSampler(77)
	weights := Weights()
	for i := 0; i < 50; i++ {
		if x, y := a.PickExpression(weights, ""), b.PickExpression(weights, ""); x != y {
			t.Fatalf("draw %d diverged: %q vs %q", i, x, y)
		}
	}
}
