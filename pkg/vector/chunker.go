package vector

import "strings"

// defaultSeparators is the split hierarchy, from largest semantic unit to
// smallest. Splits are attempted in order.
var defaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", "; ", ", ", " "}

// Splitter splits text into overlapping chunks by recursively trying
// separators, largest first.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

// NewSplitter returns a splitter with the transcript defaults
// (500-character chunks, 200-character overlap).
func NewSplitter() *Splitter {
	return &Splitter{ChunkSize: 500, Overlap: 200}
}

// Split chunks text. Every returned chunk is at most ChunkSize characters;
// consecutive chunks share up to Overlap trailing/leading characters.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if s.ChunkSize <= 0 {
		s.ChunkSize = 500
	}
	if s.Overlap < 0 || s.Overlap >= s.ChunkSize {
		s.Overlap = s.ChunkSize / 5
	}
	return s.merge(s.split(text, defaultSeparators))
}

// split recursively breaks text into pieces no longer than ChunkSize.
func (s *Splitter) split(text string, seps []string) []string {
	if len(text) <= s.ChunkSize {
		return []string{text}
	}
	if len(seps) == 0 {
		// Last resort: hard cut.
		var out []string
		for len(text) > s.ChunkSize {
			out = append(out, text[:s.ChunkSize])
			text = text[s.ChunkSize:]
		}
		if text != "" {
			out = append(out, text)
		}
		return out
	}

	parts := strings.SplitAfter(text, seps[0])
	var out []string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if len(p) > s.ChunkSize {
			out = append(out, s.split(p, seps[1:])...)
		} else {
			out = append(out, p)
		}
	}
	return out
}

// merge greedily packs pieces into chunks up to ChunkSize, seeding each new
// chunk with the tail of the previous one for overlap.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var cur strings.Builder
	seeded := 0

	for _, p := range pieces {
		if cur.Len() == seeded && cur.Len()+len(p) > s.ChunkSize {
			// The overlap seed alone would push this chunk over the limit;
			// drop it rather than emit an oversized chunk.
			cur.Reset()
			seeded = 0
		}
		if cur.Len() > seeded && cur.Len()+len(p) > s.ChunkSize {
			chunk := cur.String()
			if trimmed := strings.TrimSpace(chunk); trimmed != "" {
				chunks = append(chunks, trimmed)
			}
			tail := chunk
			if len(tail) > s.Overlap {
				tail = tail[len(tail)-s.Overlap:]
			}
			cur.Reset()
			cur.WriteString(tail)
			seeded = cur.Len()
		}
		cur.WriteString(p)
	}

	if trimmed := strings.TrimSpace(cur.String()); trimmed != "" && cur.Len() > seeded {
		chunks = append(chunks, trimmed)
	}
	return chunks
}
