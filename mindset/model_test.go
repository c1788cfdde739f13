package mindset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleDoc = `
model('assistant') {
  description: "helpful default"
  activation_condition: 'always'
  source_uri: "file://assistant.jellyfish"
  version: "1.0.0"
  trust_score: 0.92
  confidence_threshold: 0.5
  priority: 10
  immutable: true
  tags: [general, friendly, "multi word"]
  models: ["base.fish", "extra.fish"]
  created_at: 1700000000
  updated_at: 1700000100
  unknown_key: ignored
}

model('cold-start') {
  description: "minimal record"
}
`

func TestParseHandlesMultipleRecords(t *testing.T) {
	models, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)
	require.Len(t, models, 2)

	m := models[0]
	require.Equal(t, "assistant", m.Name)
	require.Equal(t, "helpful default", m.Description)
	require.Equal(t, "always", m.ActivationCondition)
	require.Equal(t, 0.92, m.TrustScore)
	require.Equal(t, int64(10), m.Priority)
	require.True(t, m.Immutable)
	require.Equal(t, []string{"general", "friendly", "multi word"}, m.Tags)
	require.Equal(t, []string{"base.fish", "extra.fish"}, m.Models)
	require.Equal(t, uint64(1700000000), m.CreatedAt)
	require.Equal(t, uint64(1700000100), m.UpdatedAt)

	require.Equal(t, "cold-start", models[1].Name)
	require.Empty(t, models[1].Tags)
}

func TestParseTruncatesOversizedLists(t *testing.T) {
	doc := "model('lots') {\n  tags: ["
	for i := 0; i < MaxTags+5; i++ {
		if i > 0 {
			doc += ", "
		}
		doc += "\"t\""
	}
	doc += "]\n}\n"

	models, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, models[0].Tags, MaxTags)
}

func TestParseRejectsUnterminatedRecord(t *testing.T) {
	_, err := Parse([]byte("model('broken') {\n  description: \"x\"\n"))
	require.Error(t, err)
}

func TestParseFileWrapsIOError(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.jellyfish"))
	require.Error(t, err)
}

func TestHashChainFileIsDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.fish")
	require.NoError(t, os.WriteFile(path, []byte("signature=\"JFS1\"\n"), 0o644))

	h1, err := HashChainFile(path)
	require.NoError(t, err)
	h2, err := HashChainFile(path)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Len(t, h1, 64)
}
