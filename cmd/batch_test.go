package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/research-agent/internal/model"
)

func TestReadQuestions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.txt")
	content := `
# pending research
how do freight costs respond to electrification?

what drives grid storage adoption?
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	questions, err := readQuestions(path, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"how do freight costs respond to electrification?",
		"what drives grid storage adoption?",
	}, questions)
}

func TestReadQuestionsLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\n"), 0o644))

	questions, err := readQuestions(path, 2)
	require.NoError(t, err)
	assert.Len(t, questions, 2)
}

func TestReadQuestionsMissingFile(t *testing.T) {
	_, err := readQuestions(filepath.Join(t.TempDir(), "absent.txt"), 0)
	assert.Error(t, err)
}

func TestQuestionSlug(t *testing.T) {
	assert.Equal(t, "how-do-freight-costs-respond-to-electrification", questionSlug("How do freight costs respond to electrification?"))
	assert.Equal(t, "grid-storage-2020", questionSlug("  Grid -- storage: 2020?! "))
	assert.Equal(t, "question", questionSlug("???"))
}

func TestWriteBatchResult(t *testing.T) {
	dir := t.TempDir()
	result := &model.ResearchResult{RunID: "run-1", Report: "findings"}

	require.NoError(t, writeBatchResult(dir, 0, "What drives grid storage adoption?", result))

	data, err := os.ReadFile(filepath.Join(dir, "001-what-drives-grid-storage-adoption.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "run-1"`)
}
