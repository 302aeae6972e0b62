package lexical

import "math"

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// bm25 is an Okapi BM25 scorer over a tokenized corpus. The idf variant
// ln(1 + (N-df+0.5)/(df+0.5)) keeps scores non-negative so a zero score
// always means "no query term present".
type bm25 struct {
	termFreqs []map[string]int
	docLens   []int
	avgLen    float64
	idf       map[string]float64
	n         int
}

func newBM25(tokenized [][]string) *bm25 {
	b := &bm25{
		termFreqs: make([]map[string]int, len(tokenized)),
		docLens:   make([]int, len(tokenized)),
		idf:       make(map[string]float64),
		n:         len(tokenized),
	}
	df := make(map[string]int)
	total := 0
	for i, tokens := range tokenized {
		freq := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freq[tok]++
		}
		for tok := range freq {
			df[tok]++
		}
		b.termFreqs[i] = freq
		b.docLens[i] = len(tokens)
		total += len(tokens)
	}
	if b.n > 0 {
		b.avgLen = float64(total) / float64(b.n)
	}
	for tok, n := range df {
		b.idf[tok] = math.Log(1 + (float64(b.n)-float64(n)+0.5)/(float64(n)+0.5))
	}
	return b
}

// scores returns one BM25 score per corpus entry for the given query
// tokens, in corpus order.
func (b *bm25) scores(query []string) []float64 {
	out := make([]float64, b.n)
	if b.avgLen == 0 {
		return out
	}
	for _, tok := range query {
		idf, ok := b.idf[tok]
		if !ok {
			continue
		}
		for i, freqs := range b.termFreqs {
			tf := float64(freqs[tok])
			if tf == 0 {
				continue
			}
			norm := 1 - bm25B + bm25B*float64(b.docLens[i])/b.avgLen
			out[i] += idf * tf * (bm25K1 + 1) / (tf + bm25K1*norm)
		}
	}
	return out
}
