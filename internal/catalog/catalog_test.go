package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-bot/internal/domain"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 5, c.Len())
	assert.Len(t, c.Documents, 5)

	q, ok := c.Question("q_1")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"3) трипаносома", "5) лямблия кишечная"}, q.CorrectAnswer)

	q3, _ := c.Question("q_3")
	assert.True(t, q3.Options.RepeatAnswers)

	q10, _ := c.Question("q_10")
	assert.Equal(t, "q_10.jpg", q10.Options.ImagePath)
	assert.Equal(t, 4, c.Index("q_10"))
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	data := `{
		"questions": [
			{"id": "q1", "text": "Pick A", "answers": ["A", "B"], "correctAnswer": ["A"]},
			{"id": "q2", "text": "X then Y", "answers": ["X", "Y", "Z"], "correctAnswer": ["X", "Y"],
			 "options": {"checkAnswerOrder": true}}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	assert.True(t, c.Questions[1].Options.CheckAnswerOrder)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() domain.Catalog {
		return domain.Catalog{
			Questions: []domain.Question{
				{ID: "q1", Text: "Q1", Answers: []string{"A", "B"}, CorrectAnswer: []string{"A"}},
			},
			Documents: []domain.Document{{ID: "d1", Title: "Doc", Path: "doc.pdf"}},
		}
	}

	testCases := []struct {
		name   string
		mutate func(c *domain.Catalog)
		target error
	}{
		{name: "empty", mutate: func(c *domain.Catalog) { c.Questions = nil }, target: domain.ErrEmptyCatalog},
		{name: "missing id", mutate: func(c *domain.Catalog) { c.Questions[0].ID = "" }, target: domain.ErrInvalidCatalog},
		{name: "duplicate id", mutate: func(c *domain.Catalog) {
			c.Questions = append(c.Questions, c.Questions[0])
		}, target: domain.ErrInvalidCatalog},
		{name: "missing text", mutate: func(c *domain.Catalog) { c.Questions[0].Text = " " }, target: domain.ErrInvalidCatalog},
		{name: "one answer", mutate: func(c *domain.Catalog) { c.Questions[0].Answers = []string{"A"} }, target: domain.ErrInvalidCatalog},
		{name: "no correct answer", mutate: func(c *domain.Catalog) { c.Questions[0].CorrectAnswer = nil }, target: domain.ErrInvalidCatalog},
		{name: "correct answer not a candidate", mutate: func(c *domain.Catalog) {
			c.Questions[0].CorrectAnswer = []string{"C"}
		}, target: domain.ErrInvalidCatalog},
		{name: "document without path", mutate: func(c *domain.Catalog) { c.Documents[0].Path = "" }, target: domain.ErrInvalidCatalog},
	}

	require.NoError(t, Validate(valid()))

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			assert.ErrorIs(t, Validate(c), tc.target)
		})
	}
}
