package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"cv_10.txt":        "tenth cv",
		"cv_2.txt":         "second cv",
		"cv_1.txt":         "first cv",
		"interview_1.txt":  "first interview",
		"interview_10.txt": "tenth interview",
		"notes.txt":        "ignored",
		"cv_x.txt":         "ignored",
		NetworkFile: `[
			{"name": "First", "skills": [{"name": "Go"}, "Rust"], "experience": [{"title": "Dev", "employer": "Acme", "period": "2 years"}]},
			{"full_name": "Second", "education": [{"degree": "BSc", "school": "MIT", "year": 2015}]}
		]`,
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "cv_99.txt"), 0o755))

	sources, err := LoadSources(dir)
	require.NoError(t, err)
	require.Len(t, sources, 3)

	assert.Equal(t, "1", sources[0].ID)
	assert.Equal(t, "first cv", sources[0].CVText)
	assert.Equal(t, "first interview", sources[0].InterviewText)
	require.NotNil(t, sources[0].Network)
	assert.Equal(t, "First", sources[0].Network.Name)
	assert.Equal(t, []string{"Go", "Rust"}, sources[0].Network.Skills)
	assert.Equal(t, []Job{{Title: "Dev", Company: "Acme", Duration: "2 years"}}, sources[0].Network.Experience)

	assert.Equal(t, "2", sources[1].ID)
	assert.Empty(t, sources[1].InterviewText)
	require.NotNil(t, sources[1].Network)
	assert.Equal(t, "Second", sources[1].Network.Name)
	assert.Equal(t, []Education{{Degree: "BSc", Institution: "MIT", GraduationYear: "2015"}}, sources[1].Network.Education)

	assert.Equal(t, "10", sources[2].ID)
	assert.Equal(t, "tenth interview", sources[2].InterviewText)
	assert.Nil(t, sources[2].Network)
}

func TestLoadSourcesErrors(t *testing.T) {
	empty := t.TempDir()
	_, err := LoadSources(empty)
	assert.ErrorIs(t, err, ErrNoSources)

	_, err = LoadSources(filepath.Join(empty, "missing"))
	assert.Error(t, err)

	broken := t.TempDir()
	writeFiles(t, broken, map[string]string{
		"cv_1.txt":  "cv",
		NetworkFile: "{not json",
	})
	_, err = LoadSources(broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), NetworkFile)
}

func TestNormalizeKeepsCanonicalKeys(t *testing.T) {
	record := &NetworkRecord{}
	err := decodeRecord(map[string]any{
		"name": "Canonical",
		"experience": []any{
			map[string]any{"Job Title": "Lead", "title": "Ignored alias", "Duration": 5},
		},
	}, record)
	require.NoError(t, err)

	assert.Equal(t, "Canonical", record.Name)
	require.Len(t, record.Experience, 1)
	assert.Equal(t, "Lead", record.Experience[0].Title)
	assert.Equal(t, "5", record.Experience[0].Duration)
}

func TestInsightsFrom(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, insightsFrom([]any{"a", "b"}))
	assert.Equal(t, []string{"c"}, insightsFrom(map[string]any{"summary": "text", "insights": []any{"c"}}))
	assert.Nil(t, insightsFrom(map[string]any{"summary": "text"}))
	assert.Equal(t, []string{"single"}, insightsFrom("single"))
}

func TestProfileFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	in := []*Profile{{ID: "1", Name: "Alice", Skills: []string{"Go"}, Education: []Education{{Degree: "MSc"}}}}

	require.NoError(t, WriteFile(path, in))
	out, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Alice", out[0].Name)
	assert.Equal(t, []string{"MSc"}, out[0].Degrees())

	emptyPath := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(emptyPath, nil, 0o644))
	out, err = ReadFile(emptyPath)
	require.NoError(t, err)
	assert.Empty(t, out)
}
