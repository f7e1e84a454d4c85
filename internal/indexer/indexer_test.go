package indexer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/tiff"

	"github.com/screenscorch/screenscorch/internal/extract"
	"github.com/screenscorch/screenscorch/internal/index"
)

// spyExtractor fulfils the extraction pipeline without a sidecar and counts
// how many files were actually extracted.
type spyExtractor struct {
	calls int
	text  string
	faces []extract.Face
	fail  bool
}

func (s *spyExtractor) ExtractText(ctx context.Context, imageData []byte) (string, error) {
	s.calls++
	if s.fail {
		return "", context.DeadlineExceeded
	}
	return s.text, nil
}

func (s *spyExtractor) EmbedImage(ctx context.Context, imageData []byte) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (s *spyExtractor) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (s *spyExtractor) DetectFaces(ctx context.Context, imageData []byte) ([]extract.Face, error) {
	return s.faces, nil
}

func writeTestImage(t *testing.T, path string, shade uint8) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for y := range 10 {
		for x := range 20 {
			img.Set(x, y, color.RGBA{R: shade, G: shade, B: shade, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestEngine(t *testing.T, spy *spyExtractor) (*Engine, *index.Store, string) {
	t.Helper()
	appDir := t.TempDir()
	thumbDir := filepath.Join(appDir, "thumbnails")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		t.Fatal(err)
	}
	store := index.New(filepath.Join(appDir, "master_index.json"))
	return New(store, spy, thumbDir, 64), store, thumbDir
}

func TestBuild_ReindexIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "a.png"), 10)
	writeTestImage(t, filepath.Join(dir, "b.png"), 200)

	spy := &spyExtractor{text: "hello"}
	engine, store, _ := newTestEngine(t, spy)
	ctx := context.Background()

	stats, err := engine.Build(ctx, Inputs{Root: dir}, nil, nil)
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	if stats.Processed != 2 || stats.Skipped != 0 || stats.Total != 2 {
		t.Fatalf("first run stats = %+v; want 2 processed, 0 skipped, 2 total", stats)
	}
	if spy.calls != 2 {
		t.Fatalf("extractions = %d; want 2", spy.calls)
	}

	stats, err = engine.Build(ctx, Inputs{Root: dir}, nil, nil)
	if err != nil {
		t.Fatalf("second Build failed: %v", err)
	}
	if stats.Processed != 0 || stats.Skipped != 2 {
		t.Errorf("second run stats = %+v; want 0 processed, 2 skipped", stats)
	}
	if spy.calls != 2 {
		t.Errorf("unchanged files were re-extracted: %d calls", spy.calls)
	}
	if store.Len() != 2 {
		t.Errorf("store has %d records; want 2", store.Len())
	}
}

func TestBuild_DetectsChangedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writeTestImage(t, path, 10)

	spy := &spyExtractor{}
	engine, store, _ := newTestEngine(t, spy)
	ctx := context.Background()

	if _, err := engine.Build(ctx, Inputs{Root: dir}, nil, nil); err != nil {
		t.Fatal(err)
	}

	// Same size, different mod time.
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	stats, err := engine.Build(ctx, Inputs{Root: dir}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Processed != 1 || stats.Skipped != 0 {
		t.Errorf("stats = %+v; want the touched file re-processed", stats)
	}

	rec, ok := store.Get(path)
	if !ok {
		t.Fatal("record missing after re-index")
	}
	if rec.ModTime != later.UnixNano() {
		t.Error("record did not pick up the new mod time")
	}
}

func TestBuild_PrunesDeletedFiles(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.png")
	gone := filepath.Join(dir, "gone.png")
	writeTestImage(t, keep, 10)
	writeTestImage(t, gone, 20)

	spy := &spyExtractor{}
	engine, store, thumbDir := newTestEngine(t, spy)
	ctx := context.Background()

	if _, err := engine.Build(ctx, Inputs{Root: dir}, nil, nil); err != nil {
		t.Fatal(err)
	}
	goneThumb := filepath.Join(thumbDir, ThumbnailName(gone))
	if _, err := os.Stat(goneThumb); err != nil {
		t.Fatalf("thumbnail not written: %v", err)
	}

	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}

	stats, err := engine.Build(ctx, Inputs{Root: dir}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Pruned != 1 || stats.Total != 1 {
		t.Errorf("stats = %+v; want 1 pruned, 1 total", stats)
	}
	if _, ok := store.Get(gone); ok {
		t.Error("record for deleted file survived")
	}
	if _, err := os.Stat(goneThumb); !os.IsNotExist(err) {
		t.Error("orphaned thumbnail not deleted")
	}
}

func TestBuild_NarrowerInputsKeepExistingRecords(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writeTestImage(t, a, 10)
	writeTestImage(t, b, 200)

	spy := &spyExtractor{}
	engine, store, _ := newTestEngine(t, spy)
	ctx := context.Background()

	if _, err := engine.Build(ctx, Inputs{Root: dir}, nil, nil); err != nil {
		t.Fatal(err)
	}

	// Re-run over a single file. The other record must survive pruning
	// because its file still exists on disk.
	stats, err := engine.Build(ctx, Inputs{Files: []string{a}}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Pruned != 0 || stats.Total != 2 {
		t.Errorf("stats = %+v; want 0 pruned, 2 total", stats)
	}
	if _, ok := store.Get(b); !ok {
		t.Error("record outside the run's scope was pruned")
	}
}

func TestBuild_FaceDataStaysAligned(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "group.png")
	writeTestImage(t, path, 50)

	spy := &spyExtractor{faces: []extract.Face{
		{BBox: [4]float64{1, 2, 3, 4}, Embedding: []float32{0.9}},
		{BBox: [4]float64{5, 6, 7, 8}, Embedding: []float32{0.8}},
	}}
	engine, store, _ := newTestEngine(t, spy)

	if _, err := engine.Build(context.Background(), Inputs{Root: dir}, nil, nil); err != nil {
		t.Fatal(err)
	}

	rec, ok := store.Get(path)
	if !ok {
		t.Fatal("record missing")
	}
	if len(rec.FaceEmbeddings) != 2 || len(rec.FaceLocations) != 2 {
		t.Fatalf("face arrays misaligned: %d embeddings, %d locations",
			len(rec.FaceEmbeddings), len(rec.FaceLocations))
	}
	// BBox is (x1, y1, x2, y2); the stored box is css-order (top right bottom left).
	box := rec.FaceLocations[0]
	if box.Left != 1 || box.Top != 2 || box.Right != 3 || box.Bottom != 4 {
		t.Errorf("box = %+v; want left 1, top 2, right 3, bottom 4", box)
	}
	if rec.FaceEmbeddings[1][0] != 0.8 {
		t.Error("face embedding order does not match location order")
	}
}

func TestBuild_SingleFailureDoesNotAbort(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "good.png"), 10)
	if err := os.WriteFile(filepath.Join(dir, "bad.png"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	spy := &spyExtractor{}
	engine, store, _ := newTestEngine(t, spy)

	stats, err := engine.Build(context.Background(), Inputs{Root: dir}, nil, nil)
	if err != nil {
		t.Fatalf("Build aborted on a single bad file: %v", err)
	}
	if stats.Processed != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v; want 1 processed, 1 failed", stats)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d records; want 1", store.Len())
	}
}

func TestBuild_PersistsAndSignalsDone(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "a.png"), 10)

	spy := &spyExtractor{text: "persisted"}
	engine, store, _ := newTestEngine(t, spy)

	done := false
	if _, err := engine.Build(context.Background(), Inputs{Root: dir}, nil, func() { done = true }); err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Error("onDone not called")
	}

	loaded, err := index.Load(store.Path())
	if err != nil {
		t.Fatalf("reloading persisted index failed: %v", err)
	}
	if loaded.Len() != 1 {
		t.Errorf("persisted index has %d records; want 1", loaded.Len())
	}
}

func TestBuild_SkipsNonImageExtensions(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "shot.png"), 10)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("text"), 0o644); err != nil {
		t.Fatal(err)
	}

	spy := &spyExtractor{}
	engine, _, _ := newTestEngine(t, spy)

	stats, err := engine.Build(context.Background(), Inputs{Root: dir}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Processed != 1 || stats.Failed != 0 {
		t.Errorf("stats = %+v; want the txt file ignored", stats)
	}
}

func TestBuild_IndexesEveryAllowedFormat(t *testing.T) {
	// The walk allow-list and the registered decoders must stay in sync:
	// an admitted extension whose decoder is missing would fail extraction
	// on every run forever, since no record is stored to skip against.
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "shot.png"), 10)

	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for y := range 10 {
		for x := range 20 {
			img.Set(x, y, color.RGBA{R: 120, G: 120, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	tiffPath := filepath.Join(dir, "scan.tiff")
	if err := os.WriteFile(tiffPath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	spy := &spyExtractor{}
	engine, store, _ := newTestEngine(t, spy)

	stats, err := engine.Build(context.Background(), Inputs{Root: dir}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Processed != 2 || stats.Failed != 0 {
		t.Errorf("stats = %+v; want both formats processed, none failed", stats)
	}
	rec, ok := store.Get(tiffPath)
	if !ok {
		t.Fatal("tiff record missing")
	}
	if rec.Width != 20 || rec.Height != 10 {
		t.Errorf("tiff dimensions = %dx%d; want 20x10", rec.Width, rec.Height)
	}
}

func TestBuild_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "a.png"), 10)

	engine, _, _ := newTestEngine(t, &spyExtractor{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Build(ctx, Inputs{Root: dir}, nil, nil); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestThumbnailName(t *testing.T) {
	a := ThumbnailName("/home/user/shot.png")
	b := ThumbnailName("/home/user/shot.png")
	c := ThumbnailName("/home/user/other.png")

	if a != b {
		t.Error("thumbnail name not deterministic")
	}
	if a == c {
		t.Error("different paths share a thumbnail name")
	}
	if !strings.HasSuffix(a, ".jpg") {
		t.Errorf("thumbnail name %q missing .jpg suffix", a)
	}
}
