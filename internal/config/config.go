package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	// AppDir is the application-private directory holding the index file,
	// the known-faces file and the thumbnail directory.
	AppDir string

	Embedding EmbeddingConfig
	OCR       OCRConfig
	Tuning    TuningConfig `yaml:"tuning"`
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
}

type OCRConfig struct {
	Provider     string // sidecar (default), openai, gemini or ollama
	OpenAIToken  string
	GeminiAPIKey string
	OllamaURL    string
	OllamaModel  string
}

type TuningConfig struct {
	FaceTolerance   float64 `yaml:"face_tolerance"`
	FuzzyThreshold  int     `yaml:"fuzzy_threshold"`
	NearThreshold   int     `yaml:"near_threshold"`
	TopK            int     `yaml:"top_k"`
	ThumbnailMaxDim int     `yaml:"thumbnail_max_dim"`
	LowInfoRatio    float64 `yaml:"low_info_ratio"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	appDir := os.Getenv("SCREENSCORCH_DIR")
	if appDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		appDir = filepath.Join(home, ".screenscorch")
	}
	cfg.AppDir = appDir

	cfg.Embedding = EmbeddingConfig{
		URL: os.Getenv("EMBEDDING_URL"),
	}
	cfg.OCR = OCRConfig{
		Provider:     os.Getenv("OCR_PROVIDER"),
		OpenAIToken:  os.Getenv("OPENAI_TOKEN"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		OllamaURL:    os.Getenv("OLLAMA_URL"),
		OllamaModel:  os.Getenv("OLLAMA_MODEL"),
	}

	cfg.Tuning.FaceTolerance = envFloat("SCREENSCORCH_FACE_TOLERANCE", cfg.Tuning.FaceTolerance)
	cfg.Tuning.FuzzyThreshold = envInt("SCREENSCORCH_FUZZY_THRESHOLD", cfg.Tuning.FuzzyThreshold)
	cfg.Tuning.NearThreshold = envInt("SCREENSCORCH_NEAR_THRESHOLD", cfg.Tuning.NearThreshold)
	cfg.Tuning.TopK = envInt("SCREENSCORCH_TOP_K", cfg.Tuning.TopK)

	return &cfg
}

// IndexFile returns the path of the master index file.
func (c *Config) IndexFile() string {
	return filepath.Join(c.AppDir, "master_index.json")
}

// KnownFacesFile returns the path of the known-faces file.
func (c *Config) KnownFacesFile() string {
	return filepath.Join(c.AppDir, "known_faces.json")
}

// ThumbnailDir returns the directory where thumbnails are stored.
func (c *Config) ThumbnailDir() string {
	return filepath.Join(c.AppDir, "thumbnails")
}

// EnsureDirs creates the application directories if they do not exist.
func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(c.AppDir, 0o755); err != nil {
		return err
	}
	return os.MkdirAll(c.ThumbnailDir(), 0o755)
}
