package index

import "testing"

func TestVisualIndex_Similar(t *testing.T) {
	s := New("unused")
	s.Upsert(Record{FilePath: "/red.png", Embedding: []float32{1, 0, 0}})
	s.Upsert(Record{FilePath: "/reddish.png", Embedding: []float32{0.9, 0.1, 0}})
	s.Upsert(Record{FilePath: "/blue.png", Embedding: []float32{0, 0, 1}})
	s.Upsert(Record{FilePath: "/no-embedding.png"})

	v := BuildVisualIndex(s)
	if v.Len() != 3 {
		t.Fatalf("Len = %d; want 3 (record without embedding skipped)", v.Len())
	}

	neighbors, err := v.Similar([]float32{1, 0, 0}, 2, "/red.png")
	if err != nil {
		t.Fatalf("Similar failed: %v", err)
	}
	if len(neighbors) != 2 {
		t.Fatalf("got %d neighbors; want 2", len(neighbors))
	}
	for _, n := range neighbors {
		if n.Record.FilePath == "/red.png" {
			t.Error("excluded path returned as its own neighbor")
		}
	}
	if neighbors[0].Record.FilePath != "/reddish.png" {
		t.Errorf("nearest = %s; want /reddish.png", neighbors[0].Record.FilePath)
	}
	if neighbors[0].Distance >= neighbors[1].Distance {
		t.Errorf("distances not ascending: %f then %f",
			neighbors[0].Distance, neighbors[1].Distance)
	}
}

func TestVisualIndex_Empty(t *testing.T) {
	v := BuildVisualIndex(New("unused"))
	if _, err := v.Similar([]float32{1, 0, 0}, 5, ""); err == nil {
		t.Error("expected error for empty visual index")
	}
}
