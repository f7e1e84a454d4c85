// Package search ranks a free-text query against the index using tiers in
// strict precedence: face identity, exact keyword, fuzzy keyword, semantic
// similarity. Earlier tiers claim files exclusively, so a file appears at
// most once in the result list.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/screenscorch/screenscorch/internal/faces"
	"github.com/screenscorch/screenscorch/internal/index"
)

// ErrIndexNotReady signals that no index has been built yet. Callers prompt
// for indexing instead of treating this as a crash.
var ErrIndexNotReady = errors.New("index not ready: run the indexer first")

// Match type labels carried on results.
const (
	MatchExact    = "Exact Keyword"
	MatchFuzzy    = "Fuzzy Keyword"
	MatchSemantic = "Semantic Match"
)

// Result is one ranked hit: the matched record plus which tier claimed it
// and the tier-specific score.
type Result struct {
	index.Record
	MatchType string `json:"match_type"`
	Score     string `json:"score"`
}

// TextEmbedder supplies query embeddings for the semantic tier.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Options are the ranking tunables; zero values fall back to defaults.
type Options struct {
	FaceTolerance  float64 // maximum Euclidean distance for a face match
	FuzzyThreshold int     // minimum partial-ratio score (0-100)
	TopK           int     // semantic tier result count
}

// Ranker evaluates queries against a store snapshot. It reads the store
// only; records are never mutated.
type Ranker struct {
	embedder TextEmbedder
	opts     Options
}

// New creates a ranker. Defaults: tolerance 0.6, fuzzy threshold 85, top-k 5.
func New(embedder TextEmbedder, opts Options) *Ranker {
	if opts.FaceTolerance <= 0 {
		opts.FaceTolerance = 0.6
	}
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = 85
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	return &Ranker{embedder: embedder, opts: opts}
}

// Search returns the ranked results for a query. Tiers run in precedence
// order over records not yet claimed; output is the concatenation of the
// tiers' internal orderings.
func (r *Ranker) Search(ctx context.Context, query string, known faces.Known, store *index.Store) ([]Result, error) {
	if store == nil || store.Len() == 0 {
		return nil, ErrIndexNotReady
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	// Face-identity branch: a query that names a known face skips every
	// other tier entirely.
	if name, ref, ok := known.Lookup(query); ok {
		return r.faceMatches(store, name, ref), nil
	}

	claimed := make(map[string]bool)
	results := r.exactTier(store, query, claimed)
	results = append(results, r.fuzzyTier(store, query, claimed)...)

	semantic, err := r.semanticTier(ctx, store, query, claimed)
	if err != nil {
		return nil, err
	}
	return append(results, semantic...), nil
}

// faceMatches returns every record with at least one face within tolerance
// of the reference embedding, in store order. Binary score: a face either
// matches or it does not.
func (r *Ranker) faceMatches(store *index.Store, name string, ref []float32) []Result {
	label := "Face Match: " + faces.DisplayName(name)
	var results []Result
	for _, rec := range store.Records() {
		for _, emb := range rec.FaceEmbeddings {
			if faces.EuclideanDistance(ref, emb) <= r.opts.FaceTolerance {
				results = append(results, Result{Record: rec, MatchType: label, Score: "High"})
				break
			}
		}
	}
	return results
}

// exactTier matches records whose OCR text literally contains the query,
// case-insensitive. All matches are definitionally equal quality.
func (r *Ranker) exactTier(store *index.Store, query string, claimed map[string]bool) []Result {
	needle := strings.ToLower(query)
	var results []Result
	for _, rec := range store.Records() {
		if strings.Contains(strings.ToLower(rec.Text), needle) {
			claimed[rec.FilePath] = true
			results = append(results, Result{Record: rec, MatchType: MatchExact, Score: "100%"})
		}
	}
	return results
}

// fuzzyTier matches unclaimed records by partial-ratio similarity, sorted by
// score descending with ties broken by store order.
func (r *Ranker) fuzzyTier(store *index.Store, query string, claimed map[string]bool) []Result {
	needle := strings.ToLower(query)

	type scored struct {
		rec   index.Record
		score int
	}
	var matches []scored
	for _, rec := range store.Records() {
		if claimed[rec.FilePath] || rec.Text == "" {
			continue
		}
		score := fuzzy.PartialRatio(needle, strings.ToLower(rec.Text))
		if score >= r.opts.FuzzyThreshold {
			matches = append(matches, scored{rec: rec, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		claimed[m.rec.FilePath] = true
		results = append(results, Result{
			Record:    m.rec,
			MatchType: MatchFuzzy,
			Score:     fmt.Sprintf("%d%%", m.score),
		})
	}
	return results
}

// semanticTier ranks the remaining records by cosine similarity between the
// query embedding and each record's visual embedding, exact top-k.
func (r *Ranker) semanticTier(ctx context.Context, store *index.Store, query string, claimed map[string]bool) ([]Result, error) {
	queryEmb, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	type scored struct {
		rec   index.Record
		score float64
	}
	var candidates []scored
	for _, rec := range store.Records() {
		if claimed[rec.FilePath] || len(rec.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, scored{
			rec:   rec,
			score: CosineSimilarity(queryEmb, rec.Embedding),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > r.opts.TopK {
		candidates = candidates[:r.opts.TopK]
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		claimed[c.rec.FilePath] = true
		results = append(results, Result{
			Record:    c.rec,
			MatchType: MatchSemantic,
			Score:     fmt.Sprintf("%.2f", c.score),
		})
	}
	return results, nil
}
