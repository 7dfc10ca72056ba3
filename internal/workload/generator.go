package workload

import (
	"math/rand/v2"
	"slices"
	"sync/atomic"

	"Bookstore/internal/inventory"
)

const (
	generatedPrice  = 5.0
	generatedCopies = 5
)

var (
	titleWords = []string{
		"Silent", "Crimson", "Winter", "Hidden", "Broken", "Golden", "Last", "Distant",
		"River", "Garden", "Empire", "Shadow", "Harbor", "Promise", "Mirror", "Orchard",
	}
	firstNames = []string{"Ada", "Jorge", "Mina", "Tomas", "Ines", "Kofi", "Lena", "Ravi"}
	lastNames  = []string{"Moreau", "Okafor", "Lindqvist", "Tanaka", "Silva", "Novak", "Haddad", "Byrne"}
)

// Generator hands out stock books with sequential isbns. It is safe for
// concurrent use.
type Generator struct {
	next atomic.Int64
}

func NewGenerator(base int) *Generator {
	g := &Generator{}
	g.next.Store(int64(base))
	return g
}

// NextStockBooks returns n new titles with isbns never handed out before.
func (g *Generator) NextStockBooks(n int) []inventory.StockBook {
	out := make([]inventory.StockBook, 0, n)
	for range n {
		out = append(out, inventory.StockBook{
			ISBN:      int(g.next.Add(1) - 1),
			Title:     randomTitle(),
			Author:    randomAuthor(),
			Price:     generatedPrice,
			NumCopies: generatedCopies,
		})
	}
	return out
}

// SampleISBNs returns min(n, len(isbns)) distinct entries of isbns in random
// order. isbns is not modified.
func SampleISBNs(isbns []int, n int) []int {
	out := slices.Clone(isbns)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if n < len(out) {
		out = out[:n]
	}
	return out
}

func randomTitle() string {
	return pick(titleWords) + " " + pick(titleWords)
}

func randomAuthor() string {
	return pick(firstNames) + " " + pick(lastNames)
}

func pick(words []string) string {
	return words[rand.IntN(len(words))]
}
