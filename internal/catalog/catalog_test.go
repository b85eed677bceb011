package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbreak/feedbreak/internal/apperr"
	"github.com/feedbreak/feedbreak/internal/store"
)

const sample = `
users:
  - device_id: device_001
    name: Joana
    age: 12
    interests: [football, drawing]
    education_level: middle school
contents:
  - title: Basic maths
    description: Sums and differences
    category: maths
    difficulty: 1
    videos:
      - url: https://www.youtube.com/watch?v=abc123XYZ00
        title: Addition
        duration_seconds: 180
        expected_concepts: [sum, subtraction]
      - url: https://youtu.be/def456UVW11
        title: Multiplication
        checkpoint_interval: 2
    questions:
      - text: What is 2 + 2 and why?
        expected_concepts: [sum]
      - text: Explain multiplication with an example.
        points: 20
        difficulty: 3
  - title: Archived
    active: false
`

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, c.Users, 1)
	require.Len(t, c.Contents, 2)
	assert.Equal(t, []string{"football", "drawing"}, c.Users[0].Interests)
	assert.Len(t, c.Contents[0].Videos, 2)
	require.NotNil(t, c.Contents[1].Active)
	assert.False(t, *c.Contents[1].Active)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "contents:\n  - title: x\n    colour: red\n"},
		{"missing title", "contents:\n  - description: x\n"},
		{"missing device id", "users:\n  - name: x\n"},
		{"empty video url", "contents:\n  - title: x\n    videos:\n      - title: y\n"},
		{"empty question", "contents:\n  - title: x\n    questions:\n      - points: 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}

	_, err := Parse(strings.NewReader("contents:\n  - description: x\n"))
	assert.True(t, apperr.IsValidation(err))
}

func TestParseEmpty(t *testing.T) {
	c, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, c.Contents)
}

func TestImport(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	c, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	sum, err := Import(ctx, s, c, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{Users: 1, Contents: 2, Videos: 2, Questions: 2}, sum)

	u, err := s.FindUserByDeviceID(ctx, "device_001")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Joana", u.Name)

	contents, err := s.ListContents(ctx, false)
	require.NoError(t, err)
	require.Len(t, contents, 2)
	var maths *store.Content
	for _, ct := range contents {
		if ct.Title == "Basic maths" {
			maths = ct
		}
	}
	require.NotNil(t, maths)

	videos, err := s.ContentVideos(ctx, maths.ID)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "abc123XYZ00", videos[0].ExternalID)
	assert.Equal(t, "def456UVW11", videos[1].ExternalID)
	assert.Equal(t, 2, videos[1].CheckpointInterval)

	questions, err := s.ContentQuestions(ctx, maths.ID)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, 1, questions[0].Difficulty)
	assert.Equal(t, 10, questions[0].Points)
	assert.Equal(t, 3, questions[1].Difficulty)
	assert.Equal(t, 20, questions[1].Points)
	assert.Equal(t, store.GeneratedManual, questions[1].GeneratedBy)

	again, err := Import(ctx, s, c, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{SkippedUsers: 1, SkippedContents: 2}, again)
}

func TestImportRollsBack(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	c := &Catalog{
		Contents: []Content{
			{Title: "Good", Videos: []Video{{URL: "ok1"}}},
			{Title: "Bad", Videos: []Video{{URL: "ok2", CheckpointInterval: -4}}},
		},
	}
	_, err := Import(ctx, s, c, nil)
	require.Error(t, err)

	contents, err := s.ListContents(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, contents)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, c.Contents, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
