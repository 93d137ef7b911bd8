package textimport_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zymatik-com/annonars/internal/importer/textimport"
	"github.com/zymatik-com/annonars/internal/keys"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

func openFixtureDB(t *testing.T, name string) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".annonars")
	db, err := store.Open(path, false)
	require.NoError(t, err)
	require.NoError(t, db.CreateColumnFamilies(store.MetaBucket, store.DataBucket))
	t.Cleanup(func() { db.Close() })
	return db
}

const clinvarMinimalFixture = `{"rcv":"RCV1","vcv":"VCV1","title":"a","clinical_significance":"LIKELY_PATHOGENIC","review_status":"CRITERIA_PROVIDED","sequence_location":{"assembly":"GRCh38","chr":"13","start":95227055,"stop":95227055,"reference_allele_vcf":"A","alternate_allele_vcf":"G"}}
{"rcv":"RCV2","vcv":"VCV1","title":"b","clinical_significance":"PATHOGENIC","review_status":"PRACTICE_GUIDELINE","sequence_location":{"assembly":"GRCh38","chr":"13","start":95227055,"stop":95227055,"reference_allele_vcf":"A","alternate_allele_vcf":"G"}}
`

func TestImportClinVarMinimalMergesAssertions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinvar-minimal.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(clinvarMinimalFixture), 0o644))

	db := openFixtureDB(t, "clinvar-minimal")
	require.NoError(t, textimport.ImportClinVarMinimal(nil, db, path, "GRCh38"))

	key, err := keys.VarKey("13", 95227055, "A", "G")
	require.NoError(t, err)
	raw, err := db.Get(store.DataBucket, key)
	require.NoError(t, err)
	require.NotNil(t, raw)

	rec, err := records.DecodeClinVarMinimal(raw)
	require.NoError(t, err)
	require.Len(t, rec.Assertions, 2)
	require.Equal(t, "RCV1", rec.Assertions[0].RCV)
	require.Equal(t, "RCV2", rec.Assertions[1].RCV)
	require.Equal(t, "VCV1", rec.VCV)

	// Importing the same file a second time must leave the stored record
	// unchanged.
	require.NoError(t, textimport.ImportClinVarMinimal(nil, db, path, "GRCh38"))

	again, err := db.Get(store.DataBucket, key)
	require.NoError(t, err)
	require.Equal(t, raw, again)
}

const geneClinVarFixture = `{"hgnc_id":"HGNC:1100","vcv":"VCV1","chrom":"17","pos":100,"ref":"A","alt":"G","clinical_significance":"PATHOGENIC","frequency_bucket":"rare"}
{"hgnc_id":"HGNC:1100","vcv":"VCV2","chrom":"17","pos":200,"ref":"C","alt":"T","clinical_significance":"BENIGN","frequency_bucket":"common"}
`

func TestImportGeneClinVarAccumulates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gene-clinvar.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(geneClinVarFixture), 0o644))

	db := openFixtureDB(t, "gene-clinvar")
	require.NoError(t, textimport.ImportGeneClinVar(nil, db, path, "GRCh38"))

	raw, err := db.Get(store.DataBucket, []byte("HGNC:1100"))
	require.NoError(t, err)
	require.NotNil(t, raw)

	rec, err := records.DecodeGeneClinVarAggregate(raw)
	require.NoError(t, err)
	require.Len(t, rec.VariantsByRelease["GRCh38"], 2)
	require.Equal(t, int32(1), rec.CountsByImpact["PATHOGENIC"])
	require.Equal(t, int32(1), rec.CountsByImpact["BENIGN"])
	require.Equal(t, int32(1), rec.CountsByFrequency["rare"])
	require.Equal(t, int32(1), rec.CountsByFrequency["common"])

	// A second import of the same file must not double any count or
	// duplicate any variant entry.
	require.NoError(t, textimport.ImportGeneClinVar(nil, db, path, "GRCh38"))

	again, err := db.Get(store.DataBucket, []byte("HGNC:1100"))
	require.NoError(t, err)

	rec, err = records.DecodeGeneClinVarAggregate(again)
	require.NoError(t, err)
	require.Len(t, rec.VariantsByRelease["GRCh38"], 2)
	require.Equal(t, int32(1), rec.CountsByImpact["PATHOGENIC"])
	require.Equal(t, int32(1), rec.CountsByFrequency["rare"])
}

const conservationFixture = "chrom\tstart\tstop\thgnc_id\ttranscript\tscore\n" +
	"1\t1000\t1001\tHGNC:1\tENST1\t0.9\n" +
	"1\t1000\t1001\tHGNC:1\tENST2\t0.8\n" +
	"1\t2000\t2001\tHGNC:2\tENST3\t0.1\n"

func TestImportConservationGroupsByPosKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conservation.tsv")
	require.NoError(t, os.WriteFile(path, []byte(conservationFixture), 0o644))

	db := openFixtureDB(t, "ucsc-conservation")
	require.NoError(t, textimport.ImportConservation(nil, db, path))

	key1, err := keys.PosKey("1", 1000)
	require.NoError(t, err)
	raw1, err := db.Get(store.DataBucket, key1)
	require.NoError(t, err)
	require.NotNil(t, raw1)

	list1, err := records.DecodeConservationRecordList(raw1)
	require.NoError(t, err)
	require.Len(t, list1.Rows, 2)
	require.InDelta(t, 0.9, list1.Rows[0].Scores["score"], 1e-9)
	require.InDelta(t, 0.8, list1.Rows[1].Scores["score"], 1e-9)

	key2, err := keys.PosKey("1", 2000)
	require.NoError(t, err)
	raw2, err := db.Get(store.DataBucket, key2)
	require.NoError(t, err)
	require.NotNil(t, raw2)

	list2, err := records.DecodeConservationRecordList(raw2)
	require.NoError(t, err)
	require.Len(t, list2.Rows, 1)
}
