package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.EmbeddingDim != 4096 {
		t.Fatalf("EmbeddingDim = %d, want 4096", cfg.EmbeddingDim)
	}
	if cfg.ChunkSize != 1000 {
		t.Fatalf("ChunkSize = %d, want 1000", cfg.ChunkSize)
	}
	if cfg.SimilarityFloor != 0.3 {
		t.Fatalf("SimilarityFloor = %v, want 0.3", cfg.SimilarityFloor)
	}
	if cfg.SearchLimit != 20 {
		t.Fatalf("SearchLimit = %d, want 20", cfg.SearchLimit)
	}
	if cfg.PreviewLength != 200 {
		t.Fatalf("PreviewLength = %d, want 200", cfg.PreviewLength)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte("embedding_dim: 768\nchunk_size: 500\napi_port: \"9999\"\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.EmbeddingDim != 768 || cfg.ChunkSize != 500 || cfg.APIPort != "9999" {
		t.Fatalf("cfg = %+v, want file values applied", cfg)
	}
	// Untouched keys keep their defaults.
	if cfg.SearchLimit != 20 {
		t.Fatalf("SearchLimit = %d, want default 20", cfg.SearchLimit)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("embedding_dim: 768\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("EMBEDDING_DIM", "1024")
	t.Setenv("SIMILARITY_FLOOR", "0.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.EmbeddingDim != 1024 {
		t.Fatalf("EmbeddingDim = %d, want env override 1024", cfg.EmbeddingDim)
	}
	if cfg.SimilarityFloor != 0.5 {
		t.Fatalf("SimilarityFloor = %v, want 0.5", cfg.SimilarityFloor)
	}
}

func TestLoadRejectsInvalidDimension(t *testing.T) {
	t.Setenv("EMBEDDING_DIM", "-1")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative dimension")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
