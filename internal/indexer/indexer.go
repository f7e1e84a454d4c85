// Package indexer implements the incremental indexing engine: it walks the
// input set, re-extracts only files whose filesystem fingerprint changed,
// prunes records for deleted files and persists the updated store.
package indexer

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/screenscorch/screenscorch/internal/extract"
	"github.com/screenscorch/screenscorch/internal/fingerprint"
	"github.com/screenscorch/screenscorch/internal/index"
)

// imageExtensions is the allow-list applied when enumerating a directory.
// Explicit file lists bypass it: the caller already selected images.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".webp": true,
}

// Inputs selects what to index: a directory root walked recursively, or an
// explicit list of files used verbatim. Files wins when both are set.
type Inputs struct {
	Root  string
	Files []string
}

// Stats summarizes one indexing run.
type Stats struct {
	Processed int // files extracted (new or changed)
	Skipped   int // files with an unchanged fingerprint
	Failed    int // files whose extraction failed
	Pruned    int // records removed for vanished files
	Total     int // records in the store after the run
}

// Engine drives incremental index builds. It is safe to invoke from one
// goroutine at a time; the caller serializes runs.
type Engine struct {
	store       *index.Store
	extractor   extract.Extractor
	thumbDir    string
	thumbMaxDim int
}

// New creates an engine writing through the given store.
func New(store *index.Store, extractor extract.Extractor, thumbDir string, thumbMaxDim int) *Engine {
	return &Engine{
		store:       store,
		extractor:   extractor,
		thumbDir:    thumbDir,
		thumbMaxDim: thumbMaxDim,
	}
}

// Build runs one incremental pass: enumerate, extract what changed, prune
// what vanished, persist. A failure on a single file never aborts the run;
// onStatus receives per-file progress and onDone fires after persistence as
// a synchronization signal for the caller.
func (e *Engine) Build(ctx context.Context, inputs Inputs, onStatus func(string), onDone func()) (*Stats, error) {
	status := func(msg string) {
		if onStatus != nil {
			onStatus(msg)
		}
	}

	candidates, err := enumerate(inputs)
	if err != nil {
		return nil, err
	}
	status(fmt.Sprintf("Found %d images to check", len(candidates)))

	stats := &Stats{}
	for i, path := range candidates {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		info, err := os.Stat(path)
		if err != nil {
			stats.Failed++
			status(fmt.Sprintf("Skipping %s: %v", filepath.Base(path), err))
			continue
		}
		modTime := info.ModTime().UnixNano()
		fileSize := info.Size()

		if existing, ok := e.store.Get(path); ok {
			storedMod, storedSize := index.ChangeFingerprint(existing)
			if storedMod == modTime && storedSize == fileSize {
				stats.Skipped++
				continue
			}
			// Changed on disk: the stale record is dropped before
			// re-extraction so a failed extraction never leaves old
			// signals attached to new bytes.
			e.store.Remove(path)
		}

		status(fmt.Sprintf("Processing [%d/%d]: %s", i+1, len(candidates), filepath.Base(path)))

		rec, err := e.extractFile(ctx, path, modTime, fileSize)
		if err != nil {
			stats.Failed++
			status(fmt.Sprintf("Skipping %s: %v", filepath.Base(path), err))
			continue
		}
		e.store.Upsert(rec)
		stats.Processed++
	}

	stats.Pruned = e.store.Prune(func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	})
	stats.Total = e.store.Len()

	if err := e.store.Persist(); err != nil {
		return stats, fmt.Errorf("failed to persist index: %w", err)
	}

	status(fmt.Sprintf("Indexing complete: %d processed, %d skipped, %d failed, %d pruned, %d total",
		stats.Processed, stats.Skipped, stats.Failed, stats.Pruned, stats.Total))

	if onDone != nil {
		onDone()
	}
	return stats, nil
}

// extractFile runs the full extraction pipeline for one file and builds a
// complete record carrying the freshly observed change fingerprint.
func (e *Engine) extractFile(ctx context.Context, path string, modTime, fileSize int64) (index.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return index.Record{}, fmt.Errorf("failed to read file: %w", err)
	}

	width, height, err := fingerprint.Dimensions(data)
	if err != nil {
		return index.Record{}, err
	}

	text, err := e.extractor.ExtractText(ctx, data)
	if err != nil {
		return index.Record{}, fmt.Errorf("OCR failed: %w", err)
	}

	embedding, err := e.extractor.EmbedImage(ctx, data)
	if err != nil {
		return index.Record{}, fmt.Errorf("embedding failed: %w", err)
	}

	faces, err := e.extractor.DetectFaces(ctx, data)
	if err != nil {
		return index.Record{}, fmt.Errorf("face detection failed: %w", err)
	}
	faceEmbeddings := make([][]float32, 0, len(faces))
	faceLocations := make([]index.Box, 0, len(faces))
	for _, f := range faces {
		faceEmbeddings = append(faceEmbeddings, f.Embedding)
		faceLocations = append(faceLocations, index.Box{
			Top:    int(f.BBox[1]),
			Right:  int(f.BBox[2]),
			Bottom: int(f.BBox[3]),
			Left:   int(f.BBox[0]),
		})
	}

	thumbPath, err := e.writeThumbnail(path, data)
	if err != nil {
		return index.Record{}, err
	}

	return index.Record{
		FilePath:       path,
		ThumbnailPath:  thumbPath,
		Text:           strings.TrimSpace(text),
		Embedding:      embedding,
		FaceEmbeddings: faceEmbeddings,
		FaceLocations:  faceLocations,
		Width:          width,
		Height:         height,
		ModTime:        modTime,
		FileSize:       fileSize,
	}, nil
}

// writeThumbnail stores a thumbnail under a name derived from the source
// path, so repeated runs overwrite rather than accumulate.
func (e *Engine) writeThumbnail(path string, data []byte) (string, error) {
	thumb, err := fingerprint.Thumbnail(data, e.thumbMaxDim)
	if err != nil {
		return "", fmt.Errorf("thumbnail failed: %w", err)
	}
	thumbPath := filepath.Join(e.thumbDir, ThumbnailName(path))
	if err := os.WriteFile(thumbPath, thumb, 0o644); err != nil {
		return "", fmt.Errorf("failed to write thumbnail: %w", err)
	}
	return thumbPath, nil
}

// ThumbnailName derives the deterministic thumbnail filename for a source
// image path.
func ThumbnailName(path string) string {
	sum := sha1.Sum([]byte(path))
	return hex.EncodeToString(sum[:]) + ".jpg"
}

// enumerate resolves the input set to absolute candidate paths.
func enumerate(inputs Inputs) ([]string, error) {
	if len(inputs.Files) > 0 {
		files := make([]string, 0, len(inputs.Files))
		for _, f := range inputs.Files {
			abs, err := filepath.Abs(f)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve %s: %w", f, err)
			}
			files = append(files, abs)
		}
		return files, nil
	}

	root, err := filepath.Abs(inputs.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", inputs.Root, err)
	}
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if imageExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return files, nil
}
