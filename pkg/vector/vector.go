// Package vector provides text chunking, embedding and similarity search
// primitives for meeting transcripts.
package vector

import (
	"context"
	"encoding/binary"
	"math"
)

// Chunk is one embedded slice of a transcript.
type Chunk struct {
	ID        string
	UserID    string
	MeetingID string
	Content   string
	Embedding []float32
}

// Index stores embedded chunks and answers similarity queries.
type Index interface {
	// Upsert inserts or replaces chunks by ID.
	Upsert(ctx context.Context, chunks []Chunk) error

	// Search returns the topK chunks most similar to the query embedding,
	// restricted to the given meeting, best match first.
	Search(ctx context.Context, embedding []float32, meetingID string, topK int) ([]Chunk, error)
}

// Embedder turns texts into embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Cosine returns the cosine similarity of two vectors. Mismatched lengths
// or zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// EncodeEmbedding serializes a vector as little-endian float32 bytes for
// BLOB storage.
func EncodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeEmbedding deserializes a vector produced by EncodeEmbedding.
func DecodeEmbedding(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
