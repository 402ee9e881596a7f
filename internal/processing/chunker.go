package processing

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	pageMarkerRe = regexp.MustCompile(`Page \d+`)
)

// CleanText collapses whitespace and strips page-number artifacts left
// behind by PDF extraction.
func CleanText(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = pageMarkerRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ChunkText splits cleaned text into overlapping chunks. A chunk prefers
// to end at a sentence boundary when one falls past its half-way point.
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 || text == "" {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end < len(text) {
			if idx := strings.LastIndex(text[start:end], ". "); idx != -1 && idx > size/2 {
				end = start + idx + 1
			}
		} else {
			end = len(text)
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= len(text) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}
