package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestConsoleHandlerKeepsAttrsAndGroups(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	log := slog.New(NewConsoleHandler(&buf, slog.LevelInfo))

	log.With("component", "bot").WithGroup("quiz").Info("answer recorded", "user", "42", "question", "q_1")

	line := buf.String()
	assert.Contains(t, line, "INFO:")
	assert.Contains(t, line, "answer recorded")
	assert.Contains(t, line, "component=bot")
	assert.Contains(t, line, "quiz.user=42")
	assert.Contains(t, line, "quiz.question=q_1")
}

func TestConsoleHandlerFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewConsoleHandler(&buf, slog.LevelWarn))

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Error("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}
