package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/herkey/asha/internal/embedding"
	"github.com/herkey/asha/internal/models"
	"github.com/herkey/asha/internal/vector"
)

func benchItems(n int) []vector.Item {
	items := make([]vector.Item, n)
	for i := range items {
		items[i] = vector.Item{ID: fmt.Sprintf("s%d", i), Text: fmt.Sprintf("session %d", i)}
	}
	return items
}

func benchVectors(n, dim, groups int) [][]float32 {
	vecs := make([][]float32, n)
	for i := range vecs {
		v := make([]float32, dim)
		g := i % groups
		v[g%dim] = 10 * float32(g+1)
		v[(g+1)%dim] = float32(i) * 0.01
		vecs[i] = v
	}
	return vecs
}

func BenchmarkStoreQueryFlat(b *testing.B) {
	s := vector.NewStore(vector.Options{})
	vecs := benchVectors(1000, 32, 8)
	if err := s.Build(vecs, benchItems(1000)); err != nil {
		b.Fatal(err)
	}
	query := vecs[17]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Query(query, 10)
	}
}

func BenchmarkStoreQueryClustered(b *testing.B) {
	s := vector.NewStore(vector.Options{FlatThreshold: 16})
	vecs := benchVectors(48, 4, 4)
	if err := s.Build(vecs, benchItems(48)); err != nil {
		b.Fatal(err)
	}
	query := vecs[17]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Query(query, 10)
	}
}

func BenchmarkMockEmbedderEmbed(b *testing.B) {
	e := embedding.NewMockEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}

func BenchmarkSessionSearchText(b *testing.B) {
	s := &models.Session{
		Title:       "Salary Negotiation Workshop",
		Description: "Research market pay and negotiate your offer with confidence",
		Host:        "Priya Nair",
		Tags:        []string{"salary", "negotiation"},
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.SearchText()
	}
}
