package review

// splitChunks cuts text into at most maxChunks contiguous, non-overlapping
// slices of at most chunkChars characters each, in original order. Content
// beyond the last chunk boundary is dropped: analyzing a bounded prefix of
// very large documents is a deliberate cost cap, not an oversight.
func splitChunks(text string, chunkChars, maxChunks int) []string {
	if chunkChars < 1 || maxChunks < 1 {
		return nil
	}
	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes) && len(chunks) < maxChunks; start += chunkChars {
		end := start + chunkChars
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
