package vcfimport_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zymatik-com/annonars/internal/errs"
	"github.com/zymatik-com/annonars/internal/importer/vcfimport"
	"github.com/zymatik-com/annonars/internal/keys"
	"github.com/zymatik-com/annonars/internal/query"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

const fixtureVCF = `##fileformat=VCFv4.2
##INFO=<ID=AC,Number=A,Type=Integer,Description="Allele count">
##INFO=<ID=AN,Number=1,Type=Integer,Description="Allele number">
##INFO=<ID=AF,Number=A,Type=Float,Description="Allele frequency">
##INFO=<ID=nhomalt,Number=A,Type=Integer,Description="Homozygote count">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
1	55516885	.	G	A	100	PASS	AC=3;AN=100;AF=0.03;nhomalt=0
1	55516900	.	C	T	100	lowqual	AC=1;AN=50;AF=0.02
`

func TestImportSequential(t *testing.T) {
	vcfPath := filepath.Join(t.TempDir(), "test.vcf")
	require.NoError(t, os.WriteFile(vcfPath, []byte(fixtureVCF), 0o644))

	dbPath := filepath.Join(t.TempDir(), "gnomad-exomes.annonars")
	db, err := store.Open(dbPath, false)
	require.NoError(t, err)
	require.NoError(t, db.CreateColumnFamilies(store.MetaBucket, store.DataBucket))
	require.NoError(t, db.PutMeta(store.MetaDBName, "gnomad-exomes"))

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	err = vcfimport.Import(context.Background(), logger, db, vcfPath, vcfimport.CohortExomes, vcfimport.Options{}, 1, 0, false)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	ds, err := query.Open(dbPath)
	require.NoError(t, err)
	defer ds.Close()

	key, err := keys.VarKey("1", 55516885, "G", "A")
	require.NoError(t, err)
	value, err := ds.DB.Get(store.DataBucket, key)
	require.NoError(t, err)
	require.NotNil(t, value)

	rec, err := records.DecodeFrequencyRecord(value)
	require.NoError(t, err)
	require.NotNil(t, rec.Exomes)
	require.Equal(t, int32(3), rec.Exomes.Counts.AC)

	missKey, err := keys.VarKey("1", 55516900, "C", "T")
	require.NoError(t, err)
	missing, err := ds.DB.Get(store.DataBucket, missKey)
	require.NoError(t, err)
	require.Nil(t, missing, "non-PASS variant must be skipped")
}

const duplicateFixtureVCF = `##fileformat=VCFv4.2
##INFO=<ID=AC,Number=A,Type=Integer,Description="Allele count">
##INFO=<ID=AN,Number=1,Type=Integer,Description="Allele number">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
1	55516885	.	G	A	100	PASS	AC=3;AN=100
1	55516885	.	G	A	100	PASS	AC=4;AN=100
`

func TestImportRejectsDuplicateVarKeyInOneStream(t *testing.T) {
	vcfPath := filepath.Join(t.TempDir(), "dup.vcf")
	require.NoError(t, os.WriteFile(vcfPath, []byte(duplicateFixtureVCF), 0o644))

	dbPath := filepath.Join(t.TempDir(), "gnomad-exomes.annonars")
	db, err := store.Open(dbPath, false)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.CreateColumnFamilies(store.MetaBucket, store.DataBucket))

	err = vcfimport.Import(context.Background(), nil, db, vcfPath, vcfimport.CohortExomes, vcfimport.Options{}, 1, 0, false)
	require.ErrorIs(t, err, errs.ErrDuplicateKeyInStream)
}

const mtFixtureVCF = `##fileformat=VCFv4.2
##INFO=<ID=AF_het,Number=1,Type=Float,Description="Heteroplasmic AF">
##INFO=<ID=AF_hom,Number=1,Type=Float,Description="Homoplasmic AF">
##INFO=<ID=pop_AF_het,Number=1,Type=String,Description="Per-population heteroplasmic AF">
##INFO=<ID=pop_AF_hom,Number=1,Type=String,Description="Per-population homoplasmic AF">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
MT	3000	.	A	G	100	PASS	AF_het=0.01;AF_hom=0.02;pop_AF_het=0.05|0|0|0|0|0|0|0|0;pop_AF_hom=0.01|0|0|0|0|0|0|0|0
`

func TestImportMTDNAUsesHetHomFrequencies(t *testing.T) {
	vcfPath := filepath.Join(t.TempDir(), "mt.vcf")
	require.NoError(t, os.WriteFile(vcfPath, []byte(mtFixtureVCF), 0o644))

	dbPath := filepath.Join(t.TempDir(), "gnomad-mtdna.annonars")
	db, err := store.Open(dbPath, false)
	require.NoError(t, err)
	require.NoError(t, db.CreateColumnFamilies(store.MetaBucket, store.DataBucket))
	require.NoError(t, db.PutMeta(store.MetaDBName, "gnomad-mtdna"))

	err = vcfimport.Import(context.Background(), nil, db, vcfPath, vcfimport.CohortGenomes, vcfimport.Options{}, 1, 0, false)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	ds, err := query.Open(dbPath)
	require.NoError(t, err)
	defer ds.Close()

	key, err := keys.VarKey("MT", 3000, "A", "G")
	require.NoError(t, err)
	value, err := ds.DB.Get(store.DataBucket, key)
	require.NoError(t, err)
	require.NotNil(t, value)

	rec, err := records.DecodeFrequencyRecord(value)
	require.NoError(t, err)
	require.NotNil(t, rec.Genomes)
	require.InDelta(t, 0.03, rec.Genomes.Counts.AF, 0.0001)
	require.Contains(t, rec.Genomes.Populations, "afr")
	require.InDelta(t, 0.06, rec.Genomes.Populations["afr"].AF, 0.0001)
}
