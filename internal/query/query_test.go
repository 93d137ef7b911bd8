package query_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zymatik-com/annonars/internal/errs"
	"github.com/zymatik-com/annonars/internal/keys"
	"github.com/zymatik-com/annonars/internal/query"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/schema"
	"github.com/zymatik-com/annonars/internal/store"
)

func openFrequencyFixture(t *testing.T) *query.Dataset {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gnomad-exomes.annonars")

	db, err := store.Open(path, false)
	require.NoError(t, err)
	require.NoError(t, db.CreateColumnFamilies(store.MetaBucket, store.DataBucket))
	require.NoError(t, db.PutMeta(store.MetaDBName, "gnomad-exomes"))
	require.NoError(t, db.PutMeta(store.MetaDBVersion, "4.1"))
	require.NoError(t, db.PutMeta(store.MetaGenomeRelease, "grch38"))
	require.NoError(t, db.PutMeta(store.MetaAnnonarsVersion, "0.1.0-test"))

	rec := records.FrequencyRecord{
		Chrom:  "1",
		Pos:    55516885,
		Ref:    "G",
		Alt:    "A",
		Exomes: &records.SubFrequency{Counts: records.Counts{AC: 3, AN: 100}},
	}
	enc, err := rec.Encode()
	require.NoError(t, err)

	key, err := keys.VarKey("1", 55516885, "G", "A")
	require.NoError(t, err)
	require.NoError(t, db.Put(store.DataBucket, key, enc))
	require.NoError(t, db.Close())

	ds, err := query.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })

	return ds
}

func TestVariantQueryHitAndMiss(t *testing.T) {
	ds := openFrequencyFixture(t)

	got, err := ds.VariantQuery("chr1", 55516885, "G", "A")
	require.NoError(t, err)
	require.NotNil(t, got)
	fr := got.(*records.FrequencyRecord)
	require.Equal(t, int32(3), fr.Exomes.Counts.AC)

	miss, err := ds.VariantQuery("1", 55516885, "G", "C")
	require.NoError(t, err)
	require.Nil(t, miss)
}

func TestRangeQueryBounds(t *testing.T) {
	ds := openFrequencyFixture(t)

	in, err := ds.RangeQuery("1", 55516800, 55516900)
	require.NoError(t, err)
	require.Len(t, in, 1)

	out, err := ds.RangeQuery("1", 55516886, 55516900)
	require.NoError(t, err)
	require.Len(t, out, 0)

	otherChrom, err := ds.RangeQuery("2", 1, 1000000000)
	require.NoError(t, err)
	require.Len(t, otherChrom, 0)
}

func TestDBInfo(t *testing.T) {
	ds := openFrequencyFixture(t)

	info, err := ds.DBInfo()
	require.NoError(t, err)
	require.Equal(t, "gnomad-exomes", info.Name)
	require.Equal(t, "4.1", info.DBVersion)
	require.Equal(t, "grch38", info.GenomeRelease)
}

func TestGnomadVersionDispatch(t *testing.T) {
	build := func(t *testing.T, gnomadVersion string) string {
		t.Helper()

		path := filepath.Join(t.TempDir(), "gnomad-genomes.annonars")

		db, err := store.Open(path, false)
		require.NoError(t, err)
		require.NoError(t, db.CreateColumnFamilies(store.MetaBucket, store.DataBucket))
		require.NoError(t, db.PutMeta(store.MetaDBName, "gnomad-genomes"))
		require.NoError(t, db.PutMeta(store.MetaGnomadVersion, gnomadVersion))

		rec := records.FrequencyRecord{
			Chrom: "1", Pos: 100, Ref: "A", Alt: "G",
			Genomes: &records.SubFrequency{
				Counts:      records.Counts{AC: 1, AN: 10, AF: 0.1},
				Populations: map[string]records.Counts{"mid": {AC: 1, AN: 10}},
			},
		}
		enc, err := rec.Encode()
		require.NoError(t, err)

		key, err := keys.VarKey("1", 100, "A", "G")
		require.NoError(t, err)
		require.NoError(t, db.Put(store.DataBucket, key, enc))
		require.NoError(t, db.Close())

		return path
	}

	for version, want := range map[string]records.FreqSchema{
		"2.1.1": records.FreqSchemaV2,
		"3.1":   records.FreqSchemaV3,
		"4.1":   records.FreqSchemaV4,
	} {
		ds, err := query.Open(build(t, version))
		require.NoError(t, err, version)
		require.Equal(t, want, ds.FreqSchema, version)

		got, err := ds.VariantQuery("1", 100, "A", "G")
		if want == records.FreqSchemaV2 {
			// The stored record carries a v3-era population split, so a
			// store claiming to be v2 cannot decode it.
			require.ErrorIs(t, err, errs.ErrDecodeFailure, version)
		} else {
			require.NoError(t, err, version)
			require.NotNil(t, got, version)
		}

		require.NoError(t, ds.Close())
	}

	_, err := query.Open(build(t, "5.0"))
	require.ErrorIs(t, err, errs.ErrDatasetVersionUnsupported)
}

func TestConservationSeekBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ucsc-conservation.annonars")

	db, err := store.Open(path, false)
	require.NoError(t, err)
	require.NoError(t, db.CreateColumnFamilies(store.MetaBucket, store.DataBucket))
	require.NoError(t, db.PutMeta(store.MetaDBName, "ucsc-conservation"))
	require.NoError(t, db.PutMeta(store.MetaGenomeRelease, "grch37"))

	list := records.ConservationRecordList{
		ScoreSchema: &schema.Schema{
			Columns: []string{"phylop"},
			Types:   []schema.ColumnType{schema.ColumnFloat},
		},
		Rows: []records.ConservationRow{
			{
				Chrom: "13", Start: 95248336, Stop: 95248351, HGNCID: "HGNC:1100",
				Scores: map[string]float64{"phylop": 0.87},
			},
		},
	}
	enc, err := list.Encode()
	require.NoError(t, err)

	key, err := keys.PosKey("13", 95248336)
	require.NoError(t, err)
	require.NoError(t, db.Put(store.DataBucket, key, enc))
	require.NoError(t, db.Close())

	ds, err := query.Open(path)
	require.NoError(t, err)
	defer ds.Close()

	got, err := ds.RangeQuery("13", 95248337, 95248337)
	require.NoError(t, err)
	require.Len(t, got, 1, "range_query must seek back two bases to find a codon-spanning conservation window")

	rec, err := ds.VariantQuery("chr13", 95248337, "A", "G")
	require.NoError(t, err)
	require.NotNil(t, rec, "variant_query against conservation must resolve through the seek-back range scan")

	miss, err := ds.VariantQuery("13", 95248360, "A", "G")
	require.NoError(t, err)
	require.Nil(t, miss)
}
