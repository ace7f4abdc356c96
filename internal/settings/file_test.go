package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hookFragment(hookType, command string) map[string]any {
	return map[string]any{
		"hooks": map[string]any{hookType: []any{command}},
	}
}

func readDoc(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestMergeFile_CreatesMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	result, err := MergeFile(path, hookFragment("stop", "cmd --stop-hook"), FileOptions{})

	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Empty(t, result.BackupPath)

	doc := readDoc(t, path)
	hooks := doc["hooks"].(map[string]any)
	assert.Equal(t, []any{"cmd --stop-hook"}, hooks["stop"])
}

func TestMergeFile_SecondCallIsNoOp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	update := hookFragment("notification", "cmd --notification-hook")

	first, err := MergeFile(path, update, FileOptions{CreateBackup: true})
	require.NoError(t, err)
	assert.True(t, first.Changed)

	second, err := MergeFile(path, update, FileOptions{CreateBackup: true})
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Empty(t, second.BackupPath)

	// No backup was created for the no-op call.
	entries, err := os.ReadDir(filepath.Join(dir, "backups"))
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestMergeFile_PreservesSiblingKeysAndExistingHooks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	original := `{"theme": "dark", "hooks": {"stop": ["existing-tool --flag"]}}`
	require.NoError(t, os.WriteFile(path, []byte(original), 0600))

	result, err := MergeFile(path, hookFragment("stop", "/opt/show-toast.sh --stop-hook"), FileOptions{CreateBackup: true})
	require.NoError(t, err)
	require.True(t, result.Changed)

	doc := readDoc(t, path)
	assert.Equal(t, "dark", doc["theme"])
	hooks := doc["hooks"].(map[string]any)
	assert.Equal(t,
		[]any{"existing-tool --flag", "/opt/show-toast.sh --stop-hook"},
		hooks["stop"])

	// Backup holds the untouched original text.
	require.NotEmpty(t, result.BackupPath)
	backup, err := os.ReadFile(result.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, original, string(backup))
}

func TestMergeFile_ToleratesComments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	original := "{\n  // my theme\n  \"theme\": \"dark\" /* keep */\n}"
	require.NoError(t, os.WriteFile(path, []byte(original), 0600))

	result, err := MergeFile(path, hookFragment("stop", "cmd"), FileOptions{})
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, "dark", readDoc(t, path)["theme"])
}

func TestMergeFile_InvalidJSONC(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{ not json"), 0600))

	_, err := MergeFile(path, hookFragment("stop", "cmd"), FileOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSONC")

	// Force treats the broken file as empty and overwrites it.
	result, err := MergeFile(path, hookFragment("stop", "cmd"), FileOptions{Force: true})
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, []any{"cmd"}, readDoc(t, path)["hooks"].(map[string]any)["stop"])
}

func TestMergeFile_EmptyUpdateOnMissingFileWritesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	result, err := MergeFile(path, map[string]any{}, FileOptions{})
	require.NoError(t, err)
	assert.False(t, result.Changed)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMergeFile_RejectsInvariantViolation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"other": 1}`), 0600))

	_, err := MergeFile(path, map[string]any{"hooks": "broken"}, FileOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invariant")

	// Target file untouched after the failure.
	assert.Equal(t, map[string]any{"other": float64(1)}, readDoc(t, path))
}

func TestMergeFile_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	_, err := MergeFile(path, hookFragment("stop", "cmd"), FileOptions{})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), ".wsltoast-settings-")
	}
}
