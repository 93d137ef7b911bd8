package freqmerge_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zymatik-com/annonars/internal/importer/freqmerge"
	"github.com/zymatik-com/annonars/internal/keys"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

func openFixture(t *testing.T, name string, recs map[string]records.FrequencyRecord) *store.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), name+".annonars")
	db, err := store.Open(path, false)
	require.NoError(t, err)
	require.NoError(t, db.CreateColumnFamilies(store.MetaBucket, store.DataBucket))

	for keyStr, rec := range recs {
		enc, err := rec.Encode()
		require.NoError(t, err)
		require.NoError(t, db.Put(store.DataBucket, []byte(keyStr), enc))
	}

	return db
}

func varKeyStr(t *testing.T, chrom string, pos int64, ref, alt string) string {
	t.Helper()
	k, err := keys.VarKey(chrom, pos, ref, alt)
	require.NoError(t, err)
	return string(k)
}

func TestMergeJoinsExomesAndGenomes(t *testing.T) {
	sharedKey := varKeyStr(t, "1", 100, "A", "G")
	exomesOnlyKey := varKeyStr(t, "1", 200, "C", "T")

	exomes := openFixture(t, "gnomad-exomes", map[string]records.FrequencyRecord{
		sharedKey:     {Chrom: "1", Pos: 100, Ref: "A", Alt: "G", Exomes: &records.SubFrequency{Counts: records.Counts{AC: 3, AN: 20}}},
		exomesOnlyKey: {Chrom: "1", Pos: 200, Ref: "C", Alt: "T", Exomes: &records.SubFrequency{Counts: records.Counts{AC: 1, AN: 10}}},
	})
	defer exomes.Close()

	genomes := openFixture(t, "gnomad-genomes", map[string]records.FrequencyRecord{
		sharedKey: {Chrom: "1", Pos: 100, Ref: "A", Alt: "G", Genomes: &records.SubFrequency{Counts: records.Counts{AC: 7, AN: 40}}},
	})
	defer genomes.Close()

	outPath := filepath.Join(t.TempDir(), "merged.annonars")
	out, err := store.Open(outPath, false)
	require.NoError(t, err)
	require.NoError(t, out.CreateColumnFamilies(store.MetaBucket, store.DataBucket))
	defer out.Close()

	require.NoError(t, freqmerge.Merge([]*store.DB{exomes, genomes}, out))

	merged, err := out.Get(store.DataBucket, []byte(sharedKey))
	require.NoError(t, err)
	require.NotNil(t, merged)

	rec, err := records.DecodeFrequencyRecord(merged)
	require.NoError(t, err)
	require.NotNil(t, rec.Exomes)
	require.NotNil(t, rec.Genomes)
	require.Equal(t, int32(3), rec.Exomes.Counts.AC)
	require.Equal(t, int32(7), rec.Genomes.Counts.AC)

	exomesOnly, err := out.Get(store.DataBucket, []byte(exomesOnlyKey))
	require.NoError(t, err)
	require.NotNil(t, exomesOnly)

	exomesOnlyRec, err := records.DecodeFrequencyRecord(exomesOnly)
	require.NoError(t, err)
	require.NotNil(t, exomesOnlyRec.Exomes)
	require.Nil(t, exomesOnlyRec.Genomes)
}

func TestMergeRejectsDuplicateSubRecord(t *testing.T) {
	dupKey := varKeyStr(t, "1", 300, "G", "A")

	a := openFixture(t, "gnomad-exomes-a", map[string]records.FrequencyRecord{
		dupKey: {Chrom: "1", Pos: 300, Ref: "G", Alt: "A", Exomes: &records.SubFrequency{Counts: records.Counts{AC: 1, AN: 2}}},
	})
	defer a.Close()

	b := openFixture(t, "gnomad-exomes-b", map[string]records.FrequencyRecord{
		dupKey: {Chrom: "1", Pos: 300, Ref: "G", Alt: "A", Exomes: &records.SubFrequency{Counts: records.Counts{AC: 5, AN: 6}}},
	})
	defer b.Close()

	outPath := filepath.Join(t.TempDir(), "merged.annonars")
	out, err := store.Open(outPath, false)
	require.NoError(t, err)
	require.NoError(t, out.CreateColumnFamilies(store.MetaBucket, store.DataBucket))
	defer out.Close()

	err = freqmerge.Merge([]*store.DB{a, b}, out)
	require.Error(t, err)
}
