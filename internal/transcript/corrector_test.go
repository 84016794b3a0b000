package transcript_test

import (
	"testing"

	"github.com/voxkit-ai/voxkit/internal/transcript"
)

func TestCorrect_SingleWordTerm(t *testing.T) {
	t.Parallel()

	c := transcript.NewCorrector([]string{"latte"})
	got := c.Correct("one lattey please")
	if got != "one latte please" {
		t.Errorf("Correct = %q; want \"one latte please\"", got)
	}
}

func TestCorrect_MultiWordTermWinsOverSingle(t *testing.T) {
	t.Parallel()

	c := transcript.NewCorrector([]string{"flat white"})
	got := c.Correct("flat wight please")
	if got != "flat white please" {
		t.Errorf("Correct = %q; want \"flat white please\"", got)
	}
}

func TestCorrect_UnrelatedTextUnchanged(t *testing.T) {
	t.Parallel()

	c := transcript.NewCorrector([]string{"macchiato"})
	in := "do you open on sundays"
	if got := c.Correct(in); got != in {
		t.Errorf("Correct = %q; want unchanged %q", got, in)
	}
}

func TestCorrect_EmptyLexiconIsIdentity(t *testing.T) {
	t.Parallel()

	c := transcript.NewCorrector(nil)
	in := "anything at all"
	if got := c.Correct(in); got != in {
		t.Errorf("Correct = %q; want unchanged %q", got, in)
	}
}

func TestCorrect_NilCorrectorIsIdentity(t *testing.T) {
	t.Parallel()

	var c *transcript.Corrector
	if got := c.Correct("hello"); got != "hello" {
		t.Errorf("Correct on nil = %q; want hello", got)
	}
}

func TestCorrect_EmptyTextUnchanged(t *testing.T) {
	t.Parallel()

	c := transcript.NewCorrector([]string{"latte"})
	if got := c.Correct(""); got != "" {
		t.Errorf("Correct(\"\") = %q; want empty", got)
	}
}
