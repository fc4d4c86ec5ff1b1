package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Chunking.MaxTokens != 1000 {
		t.Errorf("expected MaxTokens=1000, got %d", cfg.Chunking.MaxTokens)
	}
	if cfg.Chunking.OverlapTokens != 120 {
		t.Errorf("expected OverlapTokens=120, got %d", cfg.Chunking.OverlapTokens)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("unexpected embedding model %s", cfg.Embedding.Model)
	}
	if cfg.Embedding.BatchSize != 100 {
		t.Errorf("expected BatchSize=100, got %d", cfg.Embedding.BatchSize)
	}
	if cfg.Store.Backend != "bolt" {
		t.Errorf("expected bolt backend, got %s", cfg.Store.Backend)
	}
	if cfg.Ask.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Ask.TopK)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "docqa.yaml")

	content := `
chunking:
  max_tokens: 400
  strategy: char
ask:
  top_k: 3
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Chunking.MaxTokens != 400 {
		t.Errorf("expected MaxTokens=400, got %d", cfg.Chunking.MaxTokens)
	}
	if cfg.Chunking.Strategy != "char" {
		t.Errorf("expected char strategy, got %s", cfg.Chunking.Strategy)
	}
	if cfg.Ask.TopK != 3 {
		t.Errorf("expected TopK=3, got %d", cfg.Ask.TopK)
	}
	// Untouched sections keep defaults.
	if cfg.Embedding.BatchSize != 100 {
		t.Errorf("expected default BatchSize=100, got %d", cfg.Embedding.BatchSize)
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "docqa.yaml")

	content := `
store:
  backend: qdrant
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Store.Backend != "qdrant" {
		t.Errorf("expected qdrant backend, got %s", cfg.Store.Backend)
	}
}

func TestStoreDBPath(t *testing.T) {
	cfg := DefaultConfig()

	path := cfg.StoreDBPath("/home/user/project")
	expected := filepath.Join("/home/user/project", ".docqa", "vectors.db")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}

	cfg.Store.Path = "/tmp/custom.db"
	if cfg.StoreDBPath("/home/user/project") != "/tmp/custom.db" {
		t.Error("explicit store path ignored")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "docqa.yaml")

	cfg := DefaultConfig()
	cfg.Ask.TopK = 7
	if err := cfg.Save(configPath); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Ask.TopK != 7 {
		t.Errorf("expected TopK=7 after round trip, got %d", loaded.Ask.TopK)
	}
}
