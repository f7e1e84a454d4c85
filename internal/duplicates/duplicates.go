// Package duplicates partitions indexed files into exact-duplicate groups
// (identical content digest) and near-duplicate groups (perceptual hashes
// within a Hamming threshold). The store is read-only input; groups carry
// full records so callers can show thumbnails.
package duplicates

import (
	"bytes"
	"errors"
	"image"
	"os"

	"golang.org/x/image/draw"

	"github.com/screenscorch/screenscorch/internal/fingerprint"
	"github.com/screenscorch/screenscorch/internal/index"
)

// ErrIndexNotReady signals that no index has been built yet.
var ErrIndexNotReady = errors.New("index not ready: run the indexer first")

// Group is an ordered set of records considered equivalent under one of the
// duplicate relations; always has at least two members.
type Group []index.Record

// Report is the outcome of one duplicate scan.
type Report struct {
	Exact []Group `json:"exact"`
	Near  []Group `json:"near"`

	// LowInfo lists images dominated by a single color, candidates for
	// cleanup alongside duplicates.
	LowInfo []index.Record `json:"low_info,omitempty"`
}

// Scanner runs duplicate scans with fixed tunables.
type Scanner struct {
	nearThreshold int     // maximum Hamming distance for near-duplicates
	lowInfoRatio  float64 // dominant-color fraction marking low-information images
}

// NewScanner creates a scanner. Defaults: Hamming threshold 10, low-info
// ratio 0.98.
func NewScanner(nearThreshold int, lowInfoRatio float64) *Scanner {
	if nearThreshold <= 0 {
		nearThreshold = 10
	}
	if lowInfoRatio <= 0 {
		lowInfoRatio = 0.98
	}
	return &Scanner{nearThreshold: nearThreshold, lowInfoRatio: lowInfoRatio}
}

// Find scans the store for exact and near duplicates plus low-information
// images. Files that vanished from disk or fail to read are skipped, never
// fatal; per-phase progress goes to onStatus.
func (s *Scanner) Find(store *index.Store, onStatus func(string)) (*Report, error) {
	if store == nil || store.Len() == 0 {
		return nil, ErrIndexNotReady
	}
	status := func(msg string) {
		if onStatus != nil {
			onStatus(msg)
		}
	}

	report := &Report{}

	status("Scanning for exact duplicates...")
	report.Exact = s.exactGroups(store)

	status("Scanning for near-duplicates (this may take time)...")
	report.Near = s.nearGroups(store)

	status("Scanning for low-information images...")
	report.LowInfo = s.lowInfo(store)

	status("Duplicate scan complete")
	return report, nil
}

// exactGroups hashes every existing file's content and groups identical
// digests, keeping groups of two or more in first-seen order.
func (s *Scanner) exactGroups(store *index.Store) []Group {
	byDigest := make(map[string][]index.Record)
	var order []string
	for _, rec := range store.Records() {
		digest, err := fingerprint.ContentHash(rec.FilePath)
		if err != nil {
			continue // vanished or unreadable
		}
		if _, seen := byDigest[digest]; !seen {
			order = append(order, digest)
		}
		byDigest[digest] = append(byDigest[digest], rec)
	}

	var groups []Group
	for _, digest := range order {
		if members := byDigest[digest]; len(members) > 1 {
			groups = append(groups, Group(members))
		}
	}
	return groups
}

// nearGroups clusters perceptual hashes greedily in store order: each
// unclaimed record collects every other unclaimed record within the
// threshold. The resulting groups are connectivity chains from this first
// pass, not mutual-similarity classes: if A-B and B-C are within threshold
// but A-C is not, all three still share a group.
func (s *Scanner) nearGroups(store *index.Store) []Group {
	type hashed struct {
		rec  index.Record
		hash uint64
	}
	var hashes []hashed
	for _, rec := range store.Records() {
		data, err := os.ReadFile(rec.FilePath)
		if err != nil {
			continue
		}
		hash, err := fingerprint.PerceptualHash(data)
		if err != nil {
			continue // corrupt image, skip
		}
		hashes = append(hashes, hashed{rec: rec, hash: hash})
	}

	var groups []Group
	claimed := make(map[string]bool)
	for i, h1 := range hashes {
		if claimed[h1.rec.FilePath] {
			continue
		}
		group := Group{h1.rec}
		for j, h2 := range hashes {
			if i == j || claimed[h2.rec.FilePath] {
				continue
			}
			if fingerprint.Similar(h1.hash, h2.hash, s.nearThreshold) {
				group = append(group, h2.rec)
			}
		}
		if len(group) > 1 {
			groups = append(groups, group)
			for _, member := range group {
				claimed[member.FilePath] = true
			}
		}
	}
	return groups
}

// lowInfo flags images whose dominant color covers more than the configured
// fraction of a downsampled view.
func (s *Scanner) lowInfo(store *index.Store) []index.Record {
	var flagged []index.Record
	for _, rec := range store.Records() {
		data, err := os.ReadFile(rec.FilePath)
		if err != nil {
			continue
		}
		ratio, err := dominantColorRatio(data)
		if err != nil {
			continue
		}
		if ratio > s.lowInfoRatio {
			flagged = append(flagged, rec)
		}
	}
	return flagged
}

// dominantColorRatio reports the fraction of pixels sharing the most common
// color in a 100x100 downsample of the image.
func dominantColorRatio(data []byte) (float64, error) {
	// Image format decoders are registered by the fingerprint package.
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}

	const sample = 100
	dst := image.NewRGBA(image.Rect(0, 0, sample, sample))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	counts := make(map[[4]uint8]int)
	best := 0
	for y := range sample {
		for x := range sample {
			off := dst.PixOffset(x, y)
			key := [4]uint8{dst.Pix[off], dst.Pix[off+1], dst.Pix[off+2], dst.Pix[off+3]}
			counts[key]++
			if counts[key] > best {
				best = counts[key]
			}
		}
	}
	return float64(best) / float64(sample*sample), nil
}
