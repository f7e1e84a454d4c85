// Package faces manages the known-faces database: a mapping from a
// normalized person name to one reference face embedding.
package faces

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/google/renameio"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Known maps a normalized name to its reference face embedding.
type Known map[string][]float32

// Load reads the known-faces file. A missing or unparsable file yields an
// empty map; the parse error is returned for the caller to warn about,
// mirroring the index store's soft-fail policy.
func Load(path string) (Known, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Known{}, nil
	}
	if err != nil {
		return Known{}, fmt.Errorf("failed to read known faces: %w", err)
	}

	var known Known
	if err := json.Unmarshal(data, &known); err != nil {
		return Known{}, fmt.Errorf("failed to parse known faces: %w", err)
	}
	return known, nil
}

// Save adds or overwrites one face under its normalized name and writes the
// whole file back atomically. Last write wins for a repeated name. A file
// that exists but cannot be parsed aborts the save; overwriting it would
// drop every previously tagged face.
func Save(path, name string, embedding []float32) error {
	known, err := Load(path)
	if err != nil {
		return fmt.Errorf("refusing to overwrite known faces: %w", err)
	}
	known[Normalize(name)] = embedding

	data, err := json.MarshalIndent(known, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal known faces: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write known faces: %w", err)
	}
	return nil
}

// Names returns the known names sorted alphabetically.
func (k Known) Names() []string {
	names := make([]string, 0, len(k))
	for name := range k {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves a raw query to a known face. Matching is exact after
// normalization on both sides.
func (k Known) Lookup(query string) (name string, embedding []float32, ok bool) {
	name = Normalize(query)
	embedding, ok = k[name]
	return name, embedding, ok
}

// DisplayName renders a normalized name for output ("jan novak" -> "Jan Novak").
func DisplayName(name string) string {
	return cases.Title(language.Und).String(name)
}

// EuclideanDistance computes the L2 distance between two face embeddings.
// Mismatched or empty vectors report +Inf so they can never match.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
