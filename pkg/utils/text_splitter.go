package utils

// SplitText splits text into chunks of at most chunkSize runes, overlapping
// consecutive chunks by overlap runes so sentences cut at a boundary stay
// retrievable from both sides. Character-based on purpose: it must never
// depend on the embedding model's tokenizer.
func SplitText(text string, chunkSize int, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize
	}

	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
