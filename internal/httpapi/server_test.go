package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zymatik-com/annonars/internal/httpapi"
	"github.com/zymatik-com/annonars/internal/keys"
	"github.com/zymatik-com/annonars/internal/query"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

func buildRelease(t *testing.T) map[string]*httpapi.Release {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gnomad-exomes.annonars")

	db, err := store.Open(path, false)
	require.NoError(t, err)
	require.NoError(t, db.CreateColumnFamilies(store.MetaBucket, store.DataBucket))
	require.NoError(t, db.PutMeta(store.MetaDBName, "gnomad-exomes"))
	require.NoError(t, db.PutMeta(store.MetaDBVersion, "4.1"))
	require.NoError(t, db.PutMeta(store.MetaGenomeRelease, "grch38"))

	rec := records.FrequencyRecord{Chrom: "1", Pos: 100, Ref: "A", Alt: "G", Exomes: &records.SubFrequency{Counts: records.Counts{AC: 5, AN: 10}}}
	enc, err := rec.Encode()
	require.NoError(t, err)
	key, err := keys.VarKey("1", 100, "A", "G")
	require.NoError(t, err)
	require.NoError(t, db.Put(store.DataBucket, key, enc))
	require.NoError(t, db.Close())

	ds, err := query.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })

	return map[string]*httpapi.Release{
		"grch38": {Datasets: map[string]*query.Dataset{"gnomad-exomes": ds}},
	}
}

func TestHandleVariant(t *testing.T) {
	s := httpapi.NewServer(buildRelease(t))

	req := httptest.NewRequest(http.MethodGet, "/annos/variant?genome_release=grch38&chromosome=1&pos=100&reference=A&alternative=G", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	result := body["result"].(map[string]any)
	require.NotNil(t, result["gnomad-exomes"])
}

func TestHandleVariantUnknownRelease(t *testing.T) {
	s := httpapi.NewServer(buildRelease(t))

	req := httptest.NewRequest(http.MethodGet, "/annos/variant?genome_release=grch37&chromosome=1&pos=100&reference=A&alternative=G", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleDBInfo(t *testing.T) {
	s := httpapi.NewServer(buildRelease(t))

	req := httptest.NewRequest(http.MethodGet, "/annos/db-info?genome_release=grch38", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]query.Info
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "4.1", body["gnomad-exomes"].DBVersion)
}
