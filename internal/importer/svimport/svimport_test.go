package svimport_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zymatik-com/annonars/internal/importer/svimport"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

const clinvarSVFixture = `{"rcv":"RCV000001","vcv":"VCV000001","title":"one","clinical_significance":"LIKELY_PATHOGENIC","review_status":"CRITERIA_PROVIDED","variant_type":"deletion","sequence_location":{"assembly":"GRCh38","chr":"1","start":1000,"stop":2000}}
{"rcv":"RCV000002","vcv":"VCV000001","title":"two","clinical_significance":"PATHOGENIC","review_status":"PRACTICE_GUIDELINE","variant_type":"deletion","sequence_location":{"assembly":"GRCh38","chr":"1","start":1000,"stop":2000}}
`

func TestImportClinVarSVMergesAssertionsAndBuildsRCVIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinvar-sv.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(clinvarSVFixture), 0o644))

	dbPath := filepath.Join(t.TempDir(), "clinvar-sv.annonars")
	db, err := store.Open(dbPath, false)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.CreateColumnFamilies(store.MetaBucket, store.DataBucket, svimport.RCVColumnFamily))

	require.NoError(t, svimport.ImportClinVarSV(nil, db, path, svimport.ClinVarSVOptions{}))

	raw, err := db.Get(store.DataBucket, []byte("VCV000001"))
	require.NoError(t, err)
	require.NotNil(t, raw)

	rec, err := records.DecodeClinVarSV(raw)
	require.NoError(t, err)
	require.Len(t, rec.Assertions, 2)
	require.Equal(t, "RCV000001", rec.Assertions[0].RCV)
	require.Equal(t, records.SignificanceLikelyPathogenic, rec.Assertions[0].ClinicalSignificance)
	require.Equal(t, "RCV000002", rec.Assertions[1].RCV)
	require.Equal(t, records.SignificancePathogenic, rec.Assertions[1].ClinicalSignificance)

	vcv, err := db.Get(svimport.RCVColumnFamily, []byte("RCV000002"))
	require.NoError(t, err)
	require.Equal(t, "VCV000001", string(vcv))

	// Re-importing the same file must leave the stored record unchanged.
	require.NoError(t, svimport.ImportClinVarSV(nil, db, path, svimport.ClinVarSVOptions{}))

	again, err := db.Get(store.DataBucket, []byte("VCV000001"))
	require.NoError(t, err)
	require.Equal(t, raw, again)
}

func TestImportClinVarSVRejectsBelowMinSize(t *testing.T) {
	smallFixture := `{"rcv":"RCV1","vcv":"VCV1","title":"x","clinical_significance":"BENIGN","review_status":"CRITERIA_PROVIDED","variant_type":"deletion","sequence_location":{"assembly":"GRCh38","chr":"1","start":1000,"stop":1010}}
`
	path := filepath.Join(t.TempDir(), "clinvar-sv-small.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(smallFixture), 0o644))

	dbPath := filepath.Join(t.TempDir(), "clinvar-sv-small.annonars")
	db, err := store.Open(dbPath, false)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.CreateColumnFamilies(store.MetaBucket, store.DataBucket, svimport.RCVColumnFamily))

	require.NoError(t, svimport.ImportClinVarSV(nil, db, path, svimport.ClinVarSVOptions{MinVarSize: 50}))

	raw, err := db.Get(store.DataBucket, []byte("VCV1"))
	require.NoError(t, err)
	require.Nil(t, raw, "variant below min-var-size should be skipped")
}

const gnomadSVFixture = `##fileformat=VCFv4.2
##INFO=<ID=SVTYPE,Number=1,Type=String,Description="SV type">
##INFO=<ID=END,Number=1,Type=Integer,Description="End position">
##INFO=<ID=AC,Number=1,Type=Integer,Description="Allele count">
##INFO=<ID=AN,Number=1,Type=Integer,Description="Allele number">
##INFO=<ID=AC_afr,Number=1,Type=Integer,Description="AFR allele count">
##INFO=<ID=AN_afr,Number=1,Type=Integer,Description="AFR allele number">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
1	10000	gnomAD-SV_v2.1_DEL_1_1	N	<DEL>	100	PASS	SVTYPE=DEL;END=10500;AC=4;AN=200;AC_afr=1;AN_afr=40
`

func TestImportGnomadSVRecordsCohortCarrierCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gnomad-sv-all.vcf")
	require.NoError(t, os.WriteFile(path, []byte(gnomadSVFixture), 0o644))

	dbPath := filepath.Join(t.TempDir(), "gnomad-sv.annonars")
	db, err := store.Open(dbPath, false)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.CreateColumnFamilies(store.MetaBucket, store.DataBucket))

	require.NoError(t, svimport.ImportGnomadSV(nil, db, path, "all"))

	raw, err := db.Get(store.DataBucket, []byte("gnomAD-SV_v2.1_DEL_1_1"))
	require.NoError(t, err)
	require.NotNil(t, raw)

	rec, err := records.DecodeGeneSVCarrierCounts(raw)
	require.NoError(t, err)
	require.Equal(t, "DEL", rec.SVType)
	require.NotEmpty(t, rec.Counts)

	var sawOverall, sawAFR bool
	for _, c := range rec.Counts {
		if c.Sex == "overall" && c.Population == "all" {
			sawOverall = true
			require.Equal(t, int32(4), c.Carriers)
		}
		if c.Population == "afr" {
			sawAFR = true
			require.Equal(t, int32(1), c.Carriers)
		}
	}
	require.True(t, sawOverall)
	require.True(t, sawAFR)
}
