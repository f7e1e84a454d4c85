// Package index maintains the durable per-file record set that every other
// component reads. Records are created and replaced only by the indexing
// engine; search and duplicate scanning treat the store as read-only.
package index

// Box is a face bounding box in original-image pixel coordinates.
type Box struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Record aggregates every derived signal for one indexed file. FilePath is
// the primary key; existence on disk is not guaranteed at read time.
type Record struct {
	FilePath      string `json:"file_path"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`

	// Text is the OCR output, possibly empty.
	Text string `json:"text"`

	// Embedding is the visual embedding of the image, comparable against
	// text embeddings from the same model family via cosine similarity.
	Embedding []float32 `json:"embedding,omitempty"`

	// FaceEmbeddings and FaceLocations are index-aligned: entry i in both
	// refers to the same physical face.
	FaceEmbeddings [][]float32 `json:"face_embeddings,omitempty"`
	FaceLocations  []Box       `json:"face_locations,omitempty"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// ModTime (unix nanoseconds) and FileSize snapshot the filesystem
	// metadata at extraction time; used as the change-detection fingerprint.
	ModTime  int64 `json:"mod_time"`
	FileSize int64 `json:"file_size"`
}

// ChangeFingerprint returns the (mod time, file size) tuple used for
// incremental change detection. A record is re-extracted whenever the tuple
// observed on disk differs from the stored one.
func ChangeFingerprint(r Record) (modTime, fileSize int64) {
	return r.ModTime, r.FileSize
}
