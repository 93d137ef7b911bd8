package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zymatik-com/annonars/internal/store"
)

func TestPutGetAndMeta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := store.Open(path, false)
	require.NoError(t, err)

	require.NoError(t, db.CreateColumnFamilies(store.MetaBucket, store.DataBucket))
	require.NoError(t, db.PutMeta(store.MetaDBName, "clinvar-minimal"))
	require.NoError(t, db.Put(store.DataBucket, []byte("k1"), []byte("v1")))

	v, err := db.Get(store.DataBucket, []byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	missing, err := db.Get(store.DataBucket, []byte("nope"))
	require.NoError(t, err)
	assert.Nil(t, missing)

	name, err := db.GetMeta(store.MetaDBName)
	require.NoError(t, err)
	assert.Equal(t, "clinvar-minimal", name)

	_, err = db.GetMeta("does-not-exist")
	require.Error(t, err)

	require.NoError(t, db.Close())
}

func TestForwardCursorSeek(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := store.Open(path, false)
	require.NoError(t, err)
	require.NoError(t, db.CreateColumnFamilies(store.DataBucket))

	keys := [][]byte{{1, 0, 0, 0, 1}, {1, 0, 0, 0, 5}, {1, 0, 0, 0, 9}, {2, 0, 0, 0, 1}}
	for _, k := range keys {
		require.NoError(t, db.Put(store.DataBucket, k, []byte("v")))
	}

	var seen [][]byte
	err = db.ForEach(store.DataBucket, []byte{1}, func(k []byte) bool {
		return k[0] != 1
	}, func(k, v []byte) error {
		seen = append(seen, append([]byte(nil), k...))
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 3)

	require.NoError(t, db.Close())
}

func TestGetForUpdateMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := store.Open(path, false)
	require.NoError(t, err)
	require.NoError(t, db.CreateColumnFamilies(store.DataBucket))

	key := []byte("vcv1")
	merge := func(existing []byte) ([]byte, error) {
		return append(existing, '!'), nil
	}

	require.NoError(t, db.GetForUpdate(store.DataBucket, key, merge))
	require.NoError(t, db.GetForUpdate(store.DataBucket, key, merge))

	v, err := db.Get(store.DataBucket, key)
	require.NoError(t, err)
	assert.Equal(t, "!!", string(v))

	require.NoError(t, db.Close())
}

func TestReadOnlyOpenAfterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := store.Open(path, false)
	require.NoError(t, err)
	require.NoError(t, db.CreateColumnFamilies(store.MetaBucket))
	require.NoError(t, db.PutMeta(store.MetaGenomeRelease, "grch38"))
	require.NoError(t, db.Close())

	require.NoError(t, store.Compact(path))

	ro, err := store.Open(path, true)
	require.NoError(t, err)

	v, err := ro.GetMeta(store.MetaGenomeRelease)
	require.NoError(t, err)
	assert.Equal(t, "grch38", v)

	require.NoError(t, ro.Close())
}

func TestSpecFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinvar-minimal.annonars")

	_, err := store.ReadSpecFile(path)
	require.NoError(t, err)

	want := store.SpecFile{
		Identifier:    "clinvar-minimal",
		Title:         "ClinVar minimal",
		Creator:       "annonars",
		Format:        "application/x-bbolt",
		Date:          "2024-01-01",
		Version:       "2024-01-01",
		GenomeRelease: "grch38",
		Description:   "ClinVar minimal variant/assertion records",
		Source:        []string{"clinvar-minimal.jsonl.gz"},
		CreatedFrom: []store.CreatedFrom{
			{Name: "clinvar-minimal", Version: "2024-01-01"},
		},
	}
	require.NoError(t, store.WriteSpecFile(path, want))

	got, err := store.ReadSpecFile(path)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	assert.Equal(t, filepath.Join(filepath.Dir(path), "clinvar-minimal.spec.yaml"), store.SpecFilePath(path))
}
