package genes_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zymatik-com/annonars/internal/genes"
	"github.com/zymatik-com/annonars/internal/query"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

func buildFixture(t *testing.T) *genes.Index {
	t.Helper()

	path := filepath.Join(t.TempDir(), "genes.annonars")

	db, err := store.Open(path, false)
	require.NoError(t, err)
	require.NoError(t, db.CreateColumnFamilies(store.MetaBucket, store.DataBucket))
	require.NoError(t, db.PutMeta(store.MetaDBName, "genes"))

	rec := records.GeneRecord{HGNC: records.HGNCCore{HGNCID: "HGNC:1100", Symbol: "BRCA1", Name: "BRCA1 DNA repair associated"}}
	enc, err := rec.Encode()
	require.NoError(t, err)
	require.NoError(t, db.Put(store.DataBucket, []byte("HGNC:1100"), enc))
	require.NoError(t, db.Close())

	ds, err := query.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })

	idx, err := genes.Build(ds)
	require.NoError(t, err)

	return idx
}

func TestLookupExactVsMiss(t *testing.T) {
	idx := buildFixture(t)

	rec, ok := idx.Lookup("BRCA1")
	require.True(t, ok)
	require.Equal(t, "HGNC:1100", rec.HGNC.HGNCID)

	_, ok = idx.Lookup("BRCA")
	require.False(t, ok)
}

func TestSearchSubstringScore(t *testing.T) {
	idx := buildFixture(t)

	results := idx.Search("BRCA", nil)
	require.Len(t, results, 1)
	require.InDelta(t, 0.8, results[0].Score, 1e-9)
}

func TestSearchExactScoresOne(t *testing.T) {
	idx := buildFixture(t)

	results := idx.Search("BRCA1", nil)
	require.Len(t, results, 1)
	require.Equal(t, 1.0, results[0].Score)
}
