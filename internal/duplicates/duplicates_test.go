package duplicates

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/screenscorch/screenscorch/internal/index"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func solidImage(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := range 40 {
		for x := range 40 {
			img.Set(x, y, c)
		}
	}
	return img
}

func noiseImage(seed int64) image.Image {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := range 40 {
		for x := range 40 {
			img.Set(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return img
}

func storeFor(paths ...string) *index.Store {
	s := index.New("unused")
	for _, p := range paths {
		s.Upsert(index.Record{FilePath: p})
	}
	return s
}

func TestFind_IndexNotReady(t *testing.T) {
	scanner := NewScanner(0, 0)
	if _, err := scanner.Find(nil, nil); err != ErrIndexNotReady {
		t.Errorf("nil store: err = %v; want ErrIndexNotReady", err)
	}
	if _, err := scanner.Find(index.New("unused"), nil); err != ErrIndexNotReady {
		t.Errorf("empty store: err = %v; want ErrIndexNotReady", err)
	}
}

func TestFind_ExactDuplicates(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	c := filepath.Join(dir, "c.png")

	noisy := noiseImage(1)
	writePNG(t, a, noisy)
	writePNG(t, b, noisy) // identical bytes to a
	writePNG(t, c, noiseImage(2))

	scanner := NewScanner(0, 0)
	report, err := scanner.Find(storeFor(a, b, c), nil)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}

	if len(report.Exact) != 1 {
		t.Fatalf("got %d exact groups; want 1", len(report.Exact))
	}
	group := report.Exact[0]
	if len(group) != 2 {
		t.Fatalf("group has %d members; want 2", len(group))
	}
	if group[0].FilePath != a || group[1].FilePath != b {
		t.Errorf("group = %s, %s; want store order %s, %s",
			group[0].FilePath, group[1].FilePath, a, b)
	}
}

func TestFind_ExactSkipsVanishedFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	writePNG(t, a, noiseImage(1))

	// One record points at a file that no longer exists.
	store := storeFor(a, filepath.Join(dir, "vanished.png"))

	scanner := NewScanner(0, 0)
	report, err := scanner.Find(store, nil)
	if err != nil {
		t.Fatalf("vanished file must not be fatal: %v", err)
	}
	if len(report.Exact) != 0 {
		t.Errorf("got %d exact groups; want 0", len(report.Exact))
	}
}

func TestFind_NearDuplicates(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	c := filepath.Join(dir, "c.png")

	// a and b share the same pixels via different encodes (still exact
	// dupes byte-wise is fine; perceptually they are distance 0). c is
	// unrelated noise.
	base := noiseImage(3)
	writePNG(t, a, base)
	writePNG(t, b, base)
	writePNG(t, c, noiseImage(4))

	scanner := NewScanner(10, 0)
	report, err := scanner.Find(storeFor(a, b, c), nil)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}

	if len(report.Near) != 1 {
		t.Fatalf("got %d near groups; want 1", len(report.Near))
	}
	group := report.Near[0]
	if len(group) != 2 {
		t.Fatalf("near group has %d members; want 2", len(group))
	}
	for _, rec := range group {
		if rec.FilePath == c {
			t.Error("unrelated image pulled into near-duplicate group")
		}
	}
}

func TestFind_NearGroupsDisjoint(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	base := noiseImage(5)
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		p := filepath.Join(dir, name)
		writePNG(t, p, base)
		paths = append(paths, p)
	}

	scanner := NewScanner(10, 0)
	report, err := scanner.Find(storeFor(paths...), nil)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, group := range report.Near {
		for _, rec := range group {
			if seen[rec.FilePath] {
				t.Errorf("file %s appears in more than one near group", rec.FilePath)
			}
			seen[rec.FilePath] = true
		}
	}
	if len(report.Near) != 1 || len(report.Near[0]) != 3 {
		t.Errorf("three identical images should form one group of 3, got %+v", report.Near)
	}
}

func TestFind_LowInfo(t *testing.T) {
	dir := t.TempDir()
	blank := filepath.Join(dir, "blank.png")
	busy := filepath.Join(dir, "busy.png")
	writePNG(t, blank, solidImage(color.RGBA{R: 255, G: 255, B: 255, A: 255}))
	writePNG(t, busy, noiseImage(6))

	scanner := NewScanner(10, 0.98)
	report, err := scanner.Find(storeFor(blank, busy), nil)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}

	if len(report.LowInfo) != 1 {
		t.Fatalf("got %d low-info records; want 1", len(report.LowInfo))
	}
	if report.LowInfo[0].FilePath != blank {
		t.Errorf("flagged %s; want the solid-color image", report.LowInfo[0].FilePath)
	}
}

func TestFind_StatusPhases(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	writePNG(t, a, noiseImage(7))

	var messages []string
	scanner := NewScanner(0, 0)
	if _, err := scanner.Find(storeFor(a), func(msg string) {
		messages = append(messages, msg)
	}); err != nil {
		t.Fatal(err)
	}
	if len(messages) < 4 {
		t.Errorf("got %d status messages; want one per phase plus completion", len(messages))
	}
}
