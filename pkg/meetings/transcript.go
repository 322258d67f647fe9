package meetings

import "strings"

// FormatTranscript renders segments as plain text, one line per segment:
//
//	[speaker]: the words they said
//
// Segments with no words are skipped.
func FormatTranscript(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		words := make([]string, 0, len(seg.Words))
		for _, w := range seg.Words {
			if w.Text != "" {
				words = append(words, w.Text)
			}
		}
		if len(words) == 0 {
			continue
		}
		speaker := seg.Speaker
		if speaker == "" {
			speaker = "unknown"
		}
		b.WriteString("[")
		b.WriteString(speaker)
		b.WriteString("]: ")
		b.WriteString(strings.Join(words, " "))
		b.WriteString("\n")
	}
	return b.String()
}
