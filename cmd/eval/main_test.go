package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/ner-recall/internal/core/domain"
	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
)

var benchmarkFiles = map[string]string{
	"data_description.csv": "file,population,occurences,labelled,positive\n" +
		"news.csv,news,60,10,2\n" +
		"forum.csv,forum,40,10,1\n",
	"news.csv": "text,span\n" +
		"Anna went home,\"{'start': 0, 'end': 4, 'text': 'Anna', 'labels': ['PER']}\"\n" +
		"Flew to Oslo,\"{'start': 8, 'end': 12, 'text': 'Oslo', 'labels': ['LOC']}\"\n",
	"forum.csv": "text,span\n" +
		"I work at Acme,\"{'start': 10, 'end': 14, 'text': 'Acme', 'labels': ['ORG']}\"\n",
	"lexicon.csv": "phrase,label\nAnna,PER\nOslo,LOC\n",
	"taggers.yaml": "taggers:\n" +
		"  - name: lexicon\n" +
		"    type: gazetteer\n" +
		"    layers: [ner]\n" +
		"    lexicon: lexicon.csv\n",
}

func setupCLI(t *testing.T) string {
	t.Helper()

	for _, key := range []string{"DESCRIPTION_FILE", "TAGGER_PLAN_FILE", "RESULTS_FILE", "METRICS_PORT", "ADD_CORRECT_COUNT", "IGNORE_TAGGER_ERRORS"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	t.Setenv("LOG_LEVEL", "error")

	dir := t.TempDir()
	for name, content := range benchmarkFiles {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	dir := setupCLI(t)

	out, err := execute(t, "validate", "-d", filepath.Join(dir, "data_description.csv"), "--check-duplicates")
	require.NoError(t, err)
	assert.Contains(t, out, "is valid: 3 units in 2 populations")
}

func TestValidateCommand_Broken(t *testing.T) {
	dir := setupCLI(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "forum.csv"), []byte("text,span\n"), 0o600))

	_, err := execute(t, "validate", "-d", filepath.Join(dir, "data_description.csv"))
	require.ErrorIs(t, err, apperrors.ErrSizeMismatch)
}

func TestStatsCommand(t *testing.T) {
	dir := setupCLI(t)

	out, err := execute(t, "stats", "-d", filepath.Join(dir, "data_description.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "Total estimated positives: 16.0")
	assert.Contains(t, out, "0.375000")
	assert.Contains(t, out, "0.250000")
}

func TestPlanCommand(t *testing.T) {
	dir := setupCLI(t)

	out, err := execute(t, "plan", "-d", filepath.Join(dir, "data_description.csv"), "--expected", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, "600")
	assert.Contains(t, out, "400")

	_, err = execute(t, "plan", "-d", filepath.Join(dir, "data_description.csv"))
	require.Error(t, err)
}

func TestEvaluateAndLeaderboardCommands(t *testing.T) {
	dir := setupCLI(t)
	results := filepath.Join(dir, "results.jsonl")

	out, err := execute(t, "evaluate",
		"-d", filepath.Join(dir, "data_description.csv"),
		"--plan", filepath.Join(dir, "taggers.yaml"),
		"--results", results,
		"--json",
	)
	require.NoError(t, err)

	var board []domain.LeaderboardEntry
	require.NoError(t, json.Unmarshal([]byte(out), &board))
	require.Len(t, board, 1)
	assert.Equal(t, "lexicon", board[0].EvalName)
	assert.InDelta(t, 0.75, board[0].Recall, 1e-9)
	require.NotNil(t, board[0].Counts)
	assert.Equal(t, domain.Counts{Correct: 2, Incorrect: 1}, *board[0].Counts)

	out, err = execute(t, "leaderboard", results)
	require.NoError(t, err)
	assert.Contains(t, out, "lexicon")
	assert.Contains(t, out, "0.7500")
}

func TestEvaluateCommand_UnknownTagger(t *testing.T) {
	dir := setupCLI(t)

	_, err := execute(t, "evaluate",
		"-d", filepath.Join(dir, "data_description.csv"),
		"--plan", filepath.Join(dir, "taggers.yaml"),
		"--only", "nothing",
	)
	require.ErrorIs(t, err, errNoTaggers)
}

func TestLeaderboardCommand_NoFile(t *testing.T) {
	setupCLI(t)

	_, err := execute(t, "leaderboard")
	require.ErrorIs(t, err, errNoResultsFile)
}

func TestOverlapsCommand(t *testing.T) {
	dir := setupCLI(t)

	out, err := execute(t, "overlaps", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Duplicate texts: 0 of 3")
}
