package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"quiz-bot/internal/domain"
)

//go:embed default.yaml
var defaultCatalog []byte

// Default returns the catalog compiled into the binary.
func Default() (domain.Catalog, error) {
	return Parse(defaultCatalog, ".yaml")
}

// Load reads a catalog from a YAML or JSON file, picking the decoder by extension.
func Load(path string) (domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes and validates catalog bytes. ext is ".json", ".yaml" or ".yml".
func Parse(data []byte, ext string) (domain.Catalog, error) {
	var c domain.Catalog
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &c); err != nil {
			return domain.Catalog{}, fmt.Errorf("decode catalog: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return domain.Catalog{}, fmt.Errorf("decode catalog: %w", err)
		}
	default:
		return domain.Catalog{}, fmt.Errorf("unsupported catalog format %q", ext)
	}

	if err := Validate(c); err != nil {
		return domain.Catalog{}, err
	}
	return c, nil
}

// Validate checks the structural rules every catalog must satisfy.
func Validate(c domain.Catalog) error {
	if len(c.Questions) == 0 {
		return domain.ErrEmptyCatalog
	}

	seen := make(map[string]struct{}, len(c.Questions))
	for i, q := range c.Questions {
		if q.ID == "" {
			return fmt.Errorf("%w: missing id of question %d", domain.ErrInvalidCatalog, i)
		}
		if _, ok := seen[q.ID]; ok {
			return fmt.Errorf("%w: duplicate question id %q", domain.ErrInvalidCatalog, q.ID)
		}
		seen[q.ID] = struct{}{}

		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("%w: missing text of question %q", domain.ErrInvalidCatalog, q.ID)
		}
		if len(q.Answers) < 2 {
			return fmt.Errorf("%w: question %q needs at least two answers", domain.ErrInvalidCatalog, q.ID)
		}
		if len(q.CorrectAnswer) == 0 {
			return fmt.Errorf("%w: question %q has no correct answer", domain.ErrInvalidCatalog, q.ID)
		}

		candidates := make(map[string]struct{}, len(q.Answers))
		for _, a := range q.Answers {
			candidates[a] = struct{}{}
		}
		for _, a := range q.CorrectAnswer {
			if _, ok := candidates[a]; !ok {
				return fmt.Errorf("%w: correct answer %q of question %q is not a candidate", domain.ErrInvalidCatalog, a, q.ID)
			}
		}
	}

	docs := make(map[string]struct{}, len(c.Documents))
	for i, d := range c.Documents {
		if d.ID == "" || d.Title == "" || d.Path == "" {
			return fmt.Errorf("%w: document %d needs id, title and path", domain.ErrInvalidCatalog, i)
		}
		if _, ok := docs[d.ID]; ok {
			return fmt.Errorf("%w: duplicate document id %q", domain.ErrInvalidCatalog, d.ID)
		}
		docs[d.ID] = struct{}{}
	}
	return nil
}
