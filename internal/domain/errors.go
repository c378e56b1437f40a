package domain

import "errors"

var (
	// ErrInvalidState is returned when a user acts without an active quiz session.
	ErrInvalidState = errors.New("no active quiz session")
	// ErrResultsUnavailable indicates the results store is missing or unreadable.
	ErrResultsUnavailable = errors.New("results unavailable")
	// ErrPersistenceWrite indicates a finished attempt could not be written.
	ErrPersistenceWrite = errors.New("results could not be persisted")
	// ErrUnknownAnswer indicates a submitted answer is not a candidate of the current question.
	ErrUnknownAnswer = errors.New("answer is not offered for the current question")
	// ErrDocumentNotFound indicates a requested reference document does not exist.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrEmptyCatalog is returned when the catalog has no questions.
	ErrEmptyCatalog = errors.New("catalog has no questions")
	// ErrInvalidCatalog wraps catalog validation failures.
	ErrInvalidCatalog = errors.New("invalid catalog")
)
