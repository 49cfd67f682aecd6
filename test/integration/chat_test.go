// Package integration provides end-to-end tests (requires real storage and indices).
package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/chat"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/session"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestIntegration_IndexThenChat(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "docs")
	writeFile(t, filepath.Join(corpus, "install.md"),
		"# Install\nDownload the ISO and boot from a live USB to install.")
	writeFile(t, filepath.Join(corpus, "guides", "network.md"),
		"# Network\nNetworking is configured with netplan YAML files.")

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Corpus.Path = corpus
	cfg.Storage.DatabasePath = filepath.Join(dir, "db.sqlite")
	cfg.Storage.VectorIndexPath = filepath.Join(dir, "vectors.bin")
	cfg.Storage.KeywordIndexPath = filepath.Join(dir, "bleve")
	cfg.Embedding.Dimensions = 16
	// Mock embeddings only match exact text reliably; keyword fallback carries
	// the retrieval in this test.
	cfg.Retrieval.MinScore = 0.99

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	embedder := embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	vecIndex, err := vector.NewFlatIndex(cfg.Embedding.Dimensions)
	if err != nil {
		t.Fatal(err)
	}
	kwIndex, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
	if err != nil {
		t.Fatal(err)
	}
	defer kwIndex.Close()

	idx := indexer.New(store, embedder, vecIndex, kwIndex, cfg, nil)
	ctx := context.Background()

	stats, err := idx.Rebuild(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Documents != 2 {
		t.Fatalf("documents = %d, want 2", stats.Documents)
	}

	completer := &llm.MockCompleter{}
	sessions := session.NewMemoryStore(time.Hour)
	svc := chat.NewService(sessions, embedder, vecIndex, kwIndex, store, completer, cfg)

	sid := svc.NewSession()
	resp, err := svc.Answer(ctx, sid, "netplan")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Response == "" {
		t.Error("empty answer")
	}
	system := completer.Calls[0][0].Content
	if !strings.Contains(system, "netplan") {
		t.Errorf("context missing the network chunk: %q", system)
	}

	// Second question in the same session carries the first exchange.
	if _, err := svc.Answer(ctx, sid, "live USB"); err != nil {
		t.Fatal(err)
	}
	second := completer.Calls[1]
	if len(second) != 4 {
		t.Errorf("second prompt has %d messages, want system + 2 history + user", len(second))
	}
}

func TestIntegration_VectorIndexSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "docs")
	writeFile(t, filepath.Join(corpus, "doc.md"), "# Doc\nSome persistent content.")

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Corpus.Path = corpus
	cfg.Storage.DatabasePath = filepath.Join(dir, "db.sqlite")
	cfg.Storage.VectorIndexPath = filepath.Join(dir, "vectors.bin")
	cfg.Storage.KeywordIndexPath = filepath.Join(dir, "bleve")
	cfg.Embedding.Dimensions = 16

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	embedder := embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	vecIndex, err := vector.NewFlatIndex(cfg.Embedding.Dimensions)
	if err != nil {
		t.Fatal(err)
	}
	kwIndex, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
	if err != nil {
		t.Fatal(err)
	}

	idx := indexer.New(store, embedder, vecIndex, kwIndex, cfg, nil)
	if _, err := idx.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	size := vecIndex.Size()
	if size == 0 {
		t.Fatal("nothing indexed")
	}
	if err := kwIndex.Close(); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	// Simulated restart: fresh index instances loading from disk.
	reloaded, err := vector.NewFlatIndex(cfg.Embedding.Dimensions)
	if err != nil {
		t.Fatal(err)
	}
	if err := reloaded.Load(cfg.Storage.VectorIndexPath); err != nil {
		t.Fatal(err)
	}
	if reloaded.Size() != size {
		t.Errorf("reloaded size = %d, want %d", reloaded.Size(), size)
	}
	reopened, err := keyword.OpenBleveIndex(cfg.Storage.KeywordIndexPath)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	hits, err := reopened.Search(context.Background(), "persistent", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Errorf("keyword hits after reopen = %+v", hits)
	}
}
