package dbsnpimport_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zymatik-com/annonars/internal/importer/dbsnpimport"
	"github.com/zymatik-com/annonars/internal/keys"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

const dbsnpFixture = `##fileformat=VCFv4.2
##INFO=<ID=COMMON,Number=0,Type=Flag,Description="Common variant">
##INFO=<ID=VC,Number=1,Type=String,Description="Variant class">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
NC_000001.11	95227055	rs12345	A	G	.	.	COMMON;VC=SNV
NC_000001.11	95227100	rs99999	A	G	.	.	VC=SNV
NC_000001.11	95227200	rs55555	A	GATC	.	.	COMMON;VC=MNV
`

func TestImportKeepsOnlyCommonNonMNVVariants(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dbsnp.vcf")
	require.NoError(t, os.WriteFile(path, []byte(dbsnpFixture), 0o644))

	dbPath := filepath.Join(t.TempDir(), "dbsnp.annonars")
	db, err := store.Open(dbPath, false)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.CreateColumnFamilies(store.MetaBucket, store.DataBucket))

	require.NoError(t, dbsnpimport.Import(nil, db, path, dbsnpimport.Options{CommonOnly: true}))

	key, err := keys.VarKey("1", 95227055, "A", "G")
	require.NoError(t, err)
	raw, err := db.Get(store.DataBucket, key)
	require.NoError(t, err)
	require.NotNil(t, raw)

	rec, err := records.DecodeDBSNPRecord(raw)
	require.NoError(t, err)
	require.Equal(t, int64(12345), rec.RSID)
	require.Equal(t, "SNV", rec.VariantClass)

	notCommonKey, err := keys.VarKey("1", 95227100, "A", "G")
	require.NoError(t, err)
	notCommon, err := db.Get(store.DataBucket, notCommonKey)
	require.NoError(t, err)
	require.Nil(t, notCommon, "non-common variant must be skipped when CommonOnly is set")

	mnvKey, err := keys.VarKey("1", 95227200, "A", "GATC")
	require.NoError(t, err)
	mnv, err := db.Get(store.DataBucket, mnvKey)
	require.NoError(t, err)
	require.Nil(t, mnv, "MNV variants must always be skipped")
}
