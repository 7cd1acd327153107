// Package textx provides text normalization and chunking helpers used when
// forwarding documents and questions to the vector index.
package textx

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	pageNumberRe = regexp.MustCompile(`Page \d+ of \d+`)
	markdownRe   = regexp.MustCompile("\\*\\*|__|~~|```")
	specialRe    = regexp.MustCompile(`[^\p{L}\p{N}\s_]`)
	spacesRe     = regexp.MustCompile(`\s+`)
)

// CleanDocument prepares raw document text for ingestion: strips page
// numbering, simple markdown markers, per-line whitespace, and squeezes runs
// of blank lines down to one.
func CleanDocument(text string) string {
	text = pageNumberRe.ReplaceAllString(text, "")
	text = markdownRe.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				cleaned = append(cleaned, line)
			}
			blank = true
			continue
		}
		cleaned = append(cleaned, line)
		blank = false
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

// CleanQuery normalizes a search query: NFC so combining diacritics match the
// indexed form, special characters removed, whitespace collapsed.
func CleanQuery(text string) string {
	text = norm.NFC.String(text)
	text = specialRe.ReplaceAllString(text, "")
	return strings.TrimSpace(spacesRe.ReplaceAllString(text, " "))
}

// separators are tried in order when looking for a chunk boundary.
var separators = []string{"\n\n", "\n", ".", " "}

// SplitText splits text into chunks of at most size runes, overlapping by
// overlap runes. Boundaries prefer paragraph, line, sentence, then word
// breaks; a chunk is cut mid-word only when no separator falls inside it.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	var chunks []string

	for start := 0; start < len(runes); {
		end := start + size
		if end >= len(runes) {
			chunk := strings.TrimSpace(string(runes[start:]))
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := end
		window := string(runes[start:end])
		for _, sep := range separators {
			if idx := strings.LastIndex(window, sep); idx > 0 {
				cut = start + len([]rune(window[:idx+len(sep)]))
				break
			}
		}

		chunk := strings.TrimSpace(string(runes[start:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}

	return chunks
}
