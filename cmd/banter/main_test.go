package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "banter.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

const memoryConfig = `
store:
  driver: memory
conversation:
  response_delay: 0s
matching:
  temperature: 0
`

func TestAsk(t *testing.T) {
	path := writeConfig(t, memoryConfig)

	out, err := execute(t, "--config", path, "ask", "сколько", "будет", "2+2*3")
	require.NoError(t, err)
	assert.Equal(t, "Result: 8\n", out)
}

func TestAsk_SQLitePersistsHistory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "banter.db")
	path := writeConfig(t, "store:\n  driver: sqlite\n  path: "+dbPath+"\nconversation:\n  response_delay: 0s\n")

	_, err := execute(t, "--config", path, "ask", "сколько будет 1+1")
	require.NoError(t, err)

	sess, err := openSession(t.Context(), cfg, false)
	require.NoError(t, err)
	defer sess.Close()

	history := sess.engine.History()
	require.Len(t, history, 2)
	assert.Equal(t, "сколько будет 1+1", history[0].Text)
	assert.Equal(t, "Result: 2", history[1].Text)
}

func TestRank(t *testing.T) {
	path := writeConfig(t, memoryConfig)

	out, err := execute(t, "--config", path, "rank", "--limit", "3", "сколько будет 2+2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.True(t, strings.HasPrefix(lines[0], "ENTRY"))
	assert.Contains(t, out, "candidate: math_1")
}

func TestInvalidConfig(t *testing.T) {
	path := writeConfig(t, "stemmer: porter\n")

	_, err := execute(t, "--config", path, "ask", "привет")
	assert.ErrorContains(t, err, "invalid config")
}

func TestKnowledgeFile(t *testing.T) {
	knowledge := filepath.Join(t.TempDir(), "knowledge.yaml")
	require.NoError(t, os.WriteFile(knowledge, []byte(`
entries:
  - id: tea
    patterns: ["чай", "tea"]
    responses: ["Green, please 🍵"]
    weight: 1
`), 0644))
	path := writeConfig(t, memoryConfig+"knowledge_file: "+knowledge+"\n")

	out, err := execute(t, "--config", path, "ask", "чай")
	require.NoError(t, err)
	assert.Equal(t, "Green, please 🍵\n", out)
}
