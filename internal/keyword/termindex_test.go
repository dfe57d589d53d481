package keyword

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermIndex_DocFrequency(t *testing.T) {
	idx, err := NewTermIndex("")
	require.NoError(t, err)
	defer func() {
		_ = idx.Close()
	}()

	require.NoError(t, idx.IndexTitle(1, "Rust async runtime deep dive"))
	require.NoError(t, idx.IndexTitle(2, "Writing a Rust web server"))
	require.NoError(t, idx.IndexTitle(3, "机器学习入门指南"))

	n, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	df, err := idx.DocFrequency("rust")
	require.NoError(t, err)
	assert.Equal(t, 2, df)

	df, err = idx.DocFrequency("学习")
	require.NoError(t, err)
	assert.Equal(t, 1, df)

	stats, err := idx.CorpusStats([]string{"rust", "server", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalDocs)
	assert.Equal(t, 1, stats.DocFrequencies["server"])
	assert.Equal(t, 0, stats.DocFrequencies["missing"])

	require.NoError(t, idx.Delete(2))
	df, err = idx.DocFrequency("rust")
	require.NoError(t, err)
	assert.Equal(t, 1, df)
}

func TestTermIndex_ReopensOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titles")
	idx, err := NewTermIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.IndexTitle(7, "Kubernetes operators"))
	require.NoError(t, idx.Close())

	idx, err = NewTermIndex(path)
	require.NoError(t, err)
	defer func() {
		_ = idx.Close()
	}()
	df, err := idx.DocFrequency("kubernetes")
	require.NoError(t, err)
	assert.Equal(t, 1, df)
}

func TestExtractor_WithTermIndex(t *testing.T) {
	idx, err := NewTermIndex("")
	require.NoError(t, err)
	defer func() {
		_ = idx.Close()
	}()
	for i, title := range []string{"golang generics", "golang modules", "golang testing", "wasm in golang"} {
		require.NoError(t, idx.IndexTitle(int64(i+1), title))
	}
	e := NewExtractor(WithIDFSource(idx))
	got, ok := e.ExtractTopKeyword("golang wasm")
	require.True(t, ok)
	assert.Equal(t, "wasm", got)
}
