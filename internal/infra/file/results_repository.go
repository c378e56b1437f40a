// Package file stores quiz results in a single JSON document on disk.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"quiz-bot/internal/domain"
)

// ResultsRepository keeps every user's latest attempt in one JSON file of the shape
// {"results": {user: {question: [answers]}}, "totals": {user: score}}.
type ResultsRepository struct {
	path string
	mu   sync.Mutex
}

func NewResultsRepository(path string) *ResultsRepository {
	return &ResultsRepository{path: path}
}

// Path returns the location of the results file.
func (r *ResultsRepository) Path() string {
	return r.path
}

// ReadAll loads the whole document. A missing or corrupt file yields
// domain.ErrResultsUnavailable.
func (r *ResultsRepository) ReadAll(_ context.Context) (domain.Results, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	results, err := r.load()
	if err != nil {
		return domain.Results{}, fmt.Errorf("%w: %v", domain.ErrResultsUnavailable, err)
	}
	return results, nil
}

// Put overwrites userID's entry and rewrites the file atomically. A missing file is
// treated as an empty store; a corrupt one is left untouched and reported.
func (r *ResultsRepository) Put(_ context.Context, userID string, answers domain.AttemptAnswers, score int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	results, err := r.load()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		results = domain.NewResults()
	case err != nil:
		return fmt.Errorf("%w: refusing to overwrite %s: %v", domain.ErrPersistenceWrite, r.path, err)
	}

	results.Results[userID] = answers.Clone()
	results.Totals[userID] = score

	if err := r.write(results); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceWrite, err)
	}
	return nil
}

func (r *ResultsRepository) load() (domain.Results, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return domain.Results{}, err
	}
	var results domain.Results
	if err := json.Unmarshal(data, &results); err != nil {
		return domain.Results{}, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return results, nil
}

func (r *ResultsRepository) write(results domain.Results) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}
