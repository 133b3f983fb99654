package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"atscheck/internal/types"
)

func TestString_CollapsesHorizontalWhitespace(t *testing.T) {
	assert.Equal(t, "Line with multiple spaces", String("Line    with \t\t multiple   spaces"))
}

func TestString_ConvertsNonBreakingSpaces(t *testing.T) {
	assert.Equal(t, "Jane Doe", String("Jane\u00a0Doe"))
	assert.Equal(t, "Jane Doe", String("Jane\u00a0\u00a0 Doe"))
}

func TestString_CollapsesBlankLines(t *testing.T) {
	assert.Equal(t, "Line 1\n\nLine 2", String("Line 1\n\n\n\n\nLine 2"))
	assert.Equal(t, "Line 1\n\nLine 2", String("Line 1\n  \n\t\n \nLine 2"))
	assert.Equal(t, "Line 1\nLine 2", String("Line 1\nLine 2"))
}

func TestString_NormalizesLineEndings(t *testing.T) {
	assert.Equal(t, "Line 1\nLine 2\nLine 3", String("Line 1\r\nLine 2\rLine 3"))
}

func TestString_TrimsEdges(t *testing.T) {
	assert.Equal(t, "content", String("\n\n   content  \n\n"))
}

func TestString_FoldsCompatibilityForms(t *testing.T) {
	assert.Equal(t, "efficient", String("e\ufb03cient"))
	assert.Equal(t, "Go", String("\uff27\uff4f"))
}

func TestString_DropsInvisibleCharacters(t *testing.T) {
	assert.Equal(t, "Python", String("Py\u200bthon\ufeff"))
	assert.Equal(t, "ab", String("a\x00b"))
}

func TestString_Empty(t *testing.T) {
	assert.Equal(t, "", String(""))
	assert.Equal(t, "", String(" \n\t\n "))
}

func TestString_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"  JANE   DOE \r\n\r\n\r\n\u2022 Built things fast\n\n\n\nSkills:\tGo,  Python",
		"e\u200b\u0301 accent and e\u0301 combined",
		"a\u00a0b c\u0085d",
		"\ufb01nance \uff11\uff12\uff13\u00a0\u00a0 spaced",
		"\n \n \n x \n \n \n",
		"tab\tseparated\tcolumns    with     gaps",
	}
	for _, in := range inputs {
		once := String(in)
		assert.Equal(t, once, String(once), "input %q", in)
	}
}

func TestNormalize_JoinsBlocks(t *testing.T) {
	raw := types.RawDocument{
		Blocks: []types.TextBlock{{Page: 1, Text: "Page one  text"}, {Page: 2, Text: "Page two"}},
		Pages:  2,
	}
	assert.Equal(t, "Page one text\nPage two", Normalize(raw))
}

func TestLines(t *testing.T) {
	assert.Nil(t, Lines(""))
	assert.Equal(t, []string{"a", "b", "c"}, Lines("a\nb\n\nc"))
}

func BenchmarkString(b *testing.B) {
	input := "JANE DOE\r\n\r\n\r\nSenior   Engineer at Example\n\u2022 Reduced latency by 40%\n\n\n\nSkills: Go, Python, Kubernetes\n"
	for range 6 {
		input += input
	}
	for b.Loop() {
		String(input)
	}
}
