package interval_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zymatik-com/annonars/internal/interval"
	"github.com/zymatik-com/annonars/internal/query"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

func buildFixture(t *testing.T) *interval.Overlay {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clinvar-sv.annonars")

	db, err := store.Open(path, false)
	require.NoError(t, err)
	require.NoError(t, db.CreateColumnFamilies(store.MetaBucket, store.DataBucket))
	require.NoError(t, db.PutMeta(store.MetaDBName, "clinvar-sv"))

	rec := records.ClinVarSV{VCV: "VCV000011111", Chrom: "1", Start: 1000, Stop: 2000, VariantType: "DEL"}
	enc, err := rec.Encode()
	require.NoError(t, err)
	require.NoError(t, db.Put(store.DataBucket, []byte("key1"), enc))
	require.NoError(t, db.Close())

	ds, err := query.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })

	o, err := interval.Build(ds)
	require.NoError(t, err)

	return o
}

func TestReciprocalOverlapAboveThreshold(t *testing.T) {
	o := buildFixture(t)

	page, err := o.Query("1", 1500, 2500, nil, 0.5, 1, 100)
	require.NoError(t, err)
	require.Len(t, page.Hits, 1)
	require.InDelta(t, 0.5, page.Hits[0].OverlapRatio, 1e-9)
}

func TestReciprocalOverlapBelowThresholdExcluded(t *testing.T) {
	o := buildFixture(t)

	page, err := o.Query("1", 1800, 2500, nil, 0.5, 1, 100)
	require.NoError(t, err)
	require.Len(t, page.Hits, 0)
}

func TestVariationTypeFilter(t *testing.T) {
	o := buildFixture(t)

	page, err := o.Query("1", 1500, 2500, []string{"DUP"}, 0.5, 1, 100)
	require.NoError(t, err)
	require.Len(t, page.Hits, 0)

	page, err = o.Query("1", 1500, 2500, []string{"DEL"}, 0.5, 1, 100)
	require.NoError(t, err)
	require.Len(t, page.Hits, 1)
}

func TestPagination(t *testing.T) {
	o := buildFixture(t)

	page, err := o.Query("1", 1500, 2500, nil, 0.5, 1, 0)
	require.NoError(t, err)
	require.Equal(t, 100, page.PageSize)
	require.Equal(t, 1, page.Total)
}
