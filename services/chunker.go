package services

import "unicode/utf8"

// DefaultChunkSize is the chunk length in characters when none is configured.
const DefaultChunkSize = 1000

// ChunkText splits text into contiguous slices of at most maxChars
// characters. Joining the result with no separator reproduces text
// exactly. Slices never split a multi-byte character.
func ChunkText(text string, maxChars int) []string {
	if text == "" {
		return nil
	}
	if maxChars <= 0 {
		maxChars = DefaultChunkSize
	}

	chunks := make([]string, 0, utf8.RuneCountInString(text)/maxChars+1)
	start, count := 0, 0
	for i := range text {
		if count == maxChars {
			chunks = append(chunks, text[start:i])
			start, count = i, 0
		}
		count++
	}
	chunks = append(chunks, text[start:])

	return chunks
}
