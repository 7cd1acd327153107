package textx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanDocument_StripsNoise(t *testing.T) {
	in := "Intro **bold** text\nPage 1 of 10\n\n\n\nNext   paragraph\t\n"
	out := CleanDocument(in)

	assert.NotContains(t, out, "Page 1 of 10")
	assert.NotContains(t, out, "**")
	assert.NotContains(t, out, "\n\n\n")
	assert.True(t, strings.HasPrefix(out, "Intro bold text"))
}

func TestCleanDocument_SqueezesBlankLines(t *testing.T) {
	out := CleanDocument("a\n\n\n\nb")
	assert.Equal(t, "a\n\nb", out)
}

func TestCleanQuery(t *testing.T) {
	assert.Equal(t, "what is machine learning", CleanQuery("what is: machine learning?!"))
	assert.Equal(t, "môn học là gì", CleanQuery("  môn học   là gì?  "))
}

func TestSplitText_ShortInputSingleChunk(t *testing.T) {
	chunks := SplitText("short text", 500, 50)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestSplitText_RespectsSizeAndCoversInput(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("sentence number goes here. ")
	}
	chunks := SplitText(b.String(), 500, 50)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 500)
		assert.NotEmpty(t, c)
	}
	// every part of the input must appear in some chunk
	assert.Contains(t, chunks[0], "sentence number")
	assert.Contains(t, chunks[len(chunks)-1], "sentence number")
}

func TestSplitText_ZeroSize(t *testing.T) {
	assert.Nil(t, SplitText("anything", 0, 0))
}
