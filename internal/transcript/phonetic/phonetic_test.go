package phonetic_test

import (
	"testing"

	"github.com/voxkit-ai/voxkit/internal/transcript/phonetic"
)

func TestMatch_PhoneticallySimilarWord(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	got, conf, ok := m.Match("lattey", []string{"latte", "espresso"})
	if !ok {
		t.Fatal("expected a match for lattey against latte")
	}
	if got != "latte" {
		t.Errorf("matched term = %q; want latte", got)
	}
	if conf <= 0 || conf > 1 {
		t.Errorf("confidence = %v; want in (0, 1]", conf)
	}
}

func TestMatch_ExactWordMatches(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	got, conf, ok := m.Match("espresso", []string{"latte", "espresso"})
	if !ok || got != "espresso" {
		t.Fatalf("Match = %q, %v, %v; want espresso matched", got, conf, ok)
	}
	if conf < 0.99 {
		t.Errorf("confidence for exact match = %v; want ~1", conf)
	}
}

func TestMatch_DissimilarWordRejected(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	got, conf, ok := m.Match("sundays", []string{"macchiato"})
	if ok {
		t.Fatalf("Match = %q, %v; want no match for dissimilar word", got, conf)
	}
	if got != "sundays" {
		t.Errorf("unmatched input should be returned unchanged; got %q", got)
	}
	if conf != 0 {
		t.Errorf("confidence = %v; want 0 when unmatched", conf)
	}
}

func TestMatch_EmptyInputs(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	if _, _, ok := m.Match("word", nil); ok {
		t.Error("empty vocabulary should never match")
	}
	if _, _, ok := m.Match("   ", []string{"latte"}); ok {
		t.Error("blank input should never match")
	}
}

func TestMatch_HigherThresholdRejectsLooseMatch(t *testing.T) {
	t.Parallel()

	strict := phonetic.New(phonetic.WithPhoneticThreshold(0.99))
	if got, _, ok := strict.Match("lattey", []string{"latte"}); ok {
		t.Errorf("Match = %q; want rejection under a 0.99 threshold", got)
	}
}
