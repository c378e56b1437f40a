package domain

import (
	"encoding/json"
	"time"
)

// QuestionOptions tweaks how a question is rendered and scored.
type QuestionOptions struct {
	// RepeatAnswers restates every candidate answer in the question text.
	RepeatAnswers bool `json:"repeatAnswers,omitempty" yaml:"repeat_answers"`
	// CheckAnswerOrder requires the selection to match CorrectAnswer element by element.
	CheckAnswerOrder bool `json:"checkAnswerOrder,omitempty" yaml:"check_answer_order"`
	// ImagePath is sent as a photo before the question, relative to the assets dir.
	ImagePath string `json:"imagePath,omitempty" yaml:"image_path"`
}

// Question models a multiple-choice or multi-select question.
type Question struct {
	ID            string          `json:"id" yaml:"id"`
	Text          string          `json:"text" yaml:"text"`
	Answers       []string        `json:"answers" yaml:"answers"`
	CorrectAnswer []string        `json:"correctAnswer" yaml:"correct_answer"`
	Options       QuestionOptions `json:"options" yaml:"options"`
}

// Document is a static reference file users can request.
type Document struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Path  string `json:"path" yaml:"path"`
}

// Catalog is the ordered, read-only list of questions plus reference documents.
type Catalog struct {
	Questions []Question `json:"questions" yaml:"questions"`
	Documents []Document `json:"documents" yaml:"documents"`
}

// Len returns the number of questions.
func (c Catalog) Len() int {
	return len(c.Questions)
}

// Index returns the position of the question with the given id, or -1.
func (c Catalog) Index(questionID string) int {
	for i := range c.Questions {
		if c.Questions[i].ID == questionID {
			return i
		}
	}
	return -1
}

// Question looks a question up by id.
func (c Catalog) Question(questionID string) (Question, bool) {
	idx := c.Index(questionID)
	if idx < 0 {
		return Question{}, false
	}
	return c.Questions[idx], true
}

// Document looks a reference document up by id.
func (c Catalog) Document(documentID string) (Document, bool) {
	for _, doc := range c.Documents {
		if doc.ID == documentID {
			return doc, true
		}
	}
	return Document{}, false
}

// AttemptAnswers maps a question id to the answers selected for it, in selection order.
type AttemptAnswers map[string][]string

// Clone returns a deep copy.
func (a AttemptAnswers) Clone() AttemptAnswers {
	out := make(AttemptAnswers, len(a))
	for questionID, answers := range a {
		out[questionID] = append([]string(nil), answers...)
	}
	return out
}

// Results is the persisted document: every user's latest attempt and its score.
type Results struct {
	Results map[string]AttemptAnswers `json:"results"`
	Totals  map[string]int            `json:"totals"`
}

// NewResults returns an empty, writable Results value.
func NewResults() Results {
	return Results{
		Results: make(map[string]AttemptAnswers),
		Totals:  make(map[string]int),
	}
}

// UnmarshalJSON accepts the legacy "total" key next to "totals".
func (r *Results) UnmarshalJSON(data []byte) error {
	var raw struct {
		Results map[string]AttemptAnswers `json:"results"`
		Totals  map[string]int            `json:"totals"`
		Total   map[string]int            `json:"total"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Results = raw.Results
	r.Totals = raw.Totals
	if r.Totals == nil {
		r.Totals = raw.Total
	}
	if r.Results == nil {
		r.Results = make(map[string]AttemptAnswers)
	}
	if r.Totals == nil {
		r.Totals = make(map[string]int)
	}
	return nil
}

// AggregateStats is derived from Results.Totals.
type AggregateStats struct {
	ParticipantCount int     `json:"participantCount"`
	MeanScore        float64 `json:"meanScore"`
}

// HasParticipants is false for the "no participants yet" case.
func (s AggregateStats) HasParticipants() bool {
	return s.ParticipantCount > 0
}

// AnswerProgress is what the adapter needs to re-render the current question.
type AnswerProgress struct {
	// Attempt is a short token of the session the progress belongs to.
	Attempt    string   `json:"attempt"`
	QuestionID string   `json:"questionId"`
	Index      int      `json:"index"`
	Selected   []string `json:"selected"`
	Remaining  []string `json:"remaining"`
}

// QuestionGrade is the per-question line of a final report.
type QuestionGrade struct {
	QuestionID string `json:"questionId"`
	Number     int    `json:"number"`
	Answered   bool   `json:"answered"`
	Correct    bool   `json:"correct"`
}

// AttemptResult summarizes a completed attempt.
type AttemptResult struct {
	UserID    string          `json:"userId"`
	Answers   AttemptAnswers  `json:"answers"`
	Grades    []QuestionGrade `json:"grades"`
	Score     int             `json:"score"`
	Total     int             `json:"total"`
	Persisted bool            `json:"persisted"`
}

// AdvanceResult holds either the next question or the finished attempt.
type AdvanceResult struct {
	Attempt  string         `json:"attempt,omitempty"`
	Next     *Question      `json:"next,omitempty"`
	Index    int            `json:"index"`
	Finished *AttemptResult `json:"finished,omitempty"`
}

// UserResults is the "show results" view for one user.
type UserResults struct {
	Attempt   *AttemptResult `json:"attempt,omitempty"`
	Aggregate AggregateStats `json:"aggregate"`
}

// SessionSnapshot is the serializable form of an in-progress session.
type SessionSnapshot struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Current   int            `json:"current"`
	Answers   AttemptAnswers `json:"answers"`
	StartedAt time.Time      `json:"startedAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
