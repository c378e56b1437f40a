package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-bot/internal/config"
	"quiz-bot/internal/domain"
)

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	results := domain.NewResults()
	results.Totals["alice"] = 4
	results.Totals["bob"] = 2

	printStats(&buf, results, 5, true)

	out := buf.String()
	assert.Contains(t, out, "Participants: 2")
	assert.Contains(t, out, "Mean score:   3.00 / 5")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("alice")), bytes.Index(buf.Bytes(), []byte("bob")))
}

func TestPrintStatsEmpty(t *testing.T) {
	var buf bytes.Buffer
	printStats(&buf, domain.NewResults(), 5, false)
	assert.Contains(t, buf.String(), "No participants yet")
}

func TestReportCatalogMissingAsset(t *testing.T) {
	cat := domain.Catalog{
		Questions: []domain.Question{{ID: "q1", Options: domain.QuestionOptions{ImagePath: "img/q1.png"}}},
		Documents: []domain.Document{{ID: "d1", Path: "docs/d1.pdf"}},
	}
	assets := fstest.MapFS{"docs/d1.pdf": {Data: []byte("%PDF")}}

	var buf bytes.Buffer
	err := reportCatalog(&buf, cat, assets)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCatalog))
	assert.Contains(t, buf.String(), "missing image img/q1.png")

	assets["img/q1.png"] = &fstest.MapFile{Data: []byte("png")}
	buf.Reset()
	require.NoError(t, reportCatalog(&buf, cat, assets))
	assert.Contains(t, buf.String(), "catalog ok: 1 questions, 1 documents")
}

func TestBuildWithFileBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Results.Path = filepath.Join(t.TempDir(), "results.json")
	cfg.Session.IdleTimeout = "1m"

	c, err := build(context.Background(), cfg, newLogger(cfg))
	require.NoError(t, err)
	defer c.close()

	require.NotNil(t, c.sweeper)
	q, err := c.service.StartQuiz(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, c.catalog.Questions[0].ID, q.ID)
}

func TestBuildRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Results.Backend = "cassandra"

	_, err := build(context.Background(), cfg, newLogger(cfg))
	assert.ErrorContains(t, err, "unknown results backend")
}
