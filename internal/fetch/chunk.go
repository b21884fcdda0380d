package fetch

import "strings"

// DefaultChunkBytes is the target chunk size for extraction input. Chunks
// split on line boundaries so a listing is never cut mid-record unless a
// single line alone exceeds the budget.
const DefaultChunkBytes = 50 * 1024

// Chunks splits cleaned text into pieces of at most size bytes, breaking on
// newlines. A single oversized line is hard-split as a last resort.
func Chunks(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkBytes
	}
	if len(text) <= size {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	var buf strings.Builder
	for _, line := range strings.Split(text, "\n") {
		for len(line) > size {
			if buf.Len() > 0 {
				chunks = append(chunks, buf.String())
				buf.Reset()
			}
			chunks = append(chunks, line[:size])
			line = line[size:]
		}

		needed := len(line)
		if buf.Len() > 0 {
			needed++ // newline separator
		}
		if buf.Len()+needed > size {
			chunks = append(chunks, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)
	}
	if strings.TrimSpace(buf.String()) != "" {
		chunks = append(chunks, buf.String())
	}
	return chunks
}
