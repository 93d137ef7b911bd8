package records_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zymatik-com/annonars/internal/errs"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/schema"
)

func TestFrequencyRecordRoundTrip(t *testing.T) {
	r := records.FrequencyRecord{
		Chrom: "1",
		Pos:   55516885,
		Ref:   "G",
		Alt:   "A",
		Exomes: &records.SubFrequency{
			Counts:      records.Counts{AC: 3, AN: 100, NHomAlt: 0, AF: 0.03},
			Populations: map[string]records.Counts{"afr": {AC: 1, AN: 20, AF: 0.05}},
		},
	}

	enc, err := r.Encode()
	require.NoError(t, err)

	dec, err := records.DecodeFrequencyRecord(enc)
	require.NoError(t, err)

	require.NotNil(t, dec.Exomes)
	assert.Equal(t, int32(3), dec.Exomes.Counts.AC)
	assert.Equal(t, int32(100), dec.Exomes.Counts.AN)
	assert.InDelta(t, 0.03, dec.Exomes.Counts.AF, 1e-6)
	assert.Equal(t, int32(1), dec.Exomes.Populations["afr"].AC)
	assert.Nil(t, dec.Genomes)
}

func TestFrequencyRecordDetailBlocksRoundTrip(t *testing.T) {
	r := records.FrequencyRecord{
		Chrom: "1", Pos: 55516885, Ref: "G", Alt: "A",
		Filters: []string{records.NormalizeFilter("PASS"), records.NormalizeFilter("AS_VQSR"), records.NormalizeFilter("NewFilterNobodyKnowsYet")},
		VEP:     []string{"missense_variant|MODERATE|ENSG1|ENST1"},
		VariantInfo: &records.VariantInfo{
			VariantType: "snv", AlleleType: "snv", NAltAlleles: 1, VarDP: 42,
		},
		EffectInfo: &records.EffectInfo{RevelScore: 0.5, CADDPhred: 22.1},
		Quality:    &records.QualityInfo{ASQD: 1.5, ASSOR: 2.5, PositiveTrainSite: true},
		AgeHists:   &records.AgeInfo{AgeHistHomBinFreq: []int32{0, 1, 2}, AgeHistHomNLarger: 3},
		DepthDetails: &records.DepthInfo{
			DPHistAllBinFreq: []int32{4, 5, 6}, DPHistAllNLarger: 7,
		},
	}

	enc, err := r.Encode()
	require.NoError(t, err)

	dec, err := records.DecodeFrequencyRecord(enc)
	require.NoError(t, err)

	assert.Equal(t, []string{"PASS", "AS_VQSR", records.UnknownFilterSentinel}, dec.Filters)
	assert.Equal(t, r.VEP, dec.VEP)

	require.NotNil(t, dec.VariantInfo)
	assert.Equal(t, "snv", dec.VariantInfo.VariantType)
	assert.Equal(t, int32(42), dec.VariantInfo.VarDP)

	require.NotNil(t, dec.EffectInfo)
	assert.InDelta(t, 0.5, dec.EffectInfo.RevelScore, 1e-6)

	require.NotNil(t, dec.Quality)
	assert.True(t, dec.Quality.PositiveTrainSite)

	require.NotNil(t, dec.AgeHists)
	assert.Equal(t, []int32{0, 1, 2}, dec.AgeHists.AgeHistHomBinFreq)
	assert.Equal(t, int32(3), dec.AgeHists.AgeHistHomNLarger)

	require.NotNil(t, dec.DepthDetails)
	assert.Equal(t, []int32{4, 5, 6}, dec.DepthDetails.DPHistAllBinFreq)
}

func TestParseGnomadVersion(t *testing.T) {
	for version, want := range map[string]records.FreqSchema{
		"2.1.1": records.FreqSchemaV2,
		"3.1":   records.FreqSchemaV3,
		"4.0":   records.FreqSchemaV4,
		"4.1":   records.FreqSchemaV4,
	} {
		got, err := records.ParseGnomadVersion(version)
		require.NoError(t, err, version)
		assert.Equal(t, want, got, version)
	}

	for _, version := range []string{"5.0", "1.0", "four", ""} {
		_, err := records.ParseGnomadVersion(version)
		require.ErrorIs(t, err, errs.ErrDatasetVersionUnsupported, version)
	}
}

func TestDecodeFrequencyRecordSchemaChecksPopulationVocabulary(t *testing.T) {
	r := records.FrequencyRecord{
		Chrom: "1", Pos: 100, Ref: "A", Alt: "G",
		Genomes: &records.SubFrequency{
			Counts:      records.Counts{AC: 1, AN: 10, AF: 0.1},
			Populations: map[string]records.Counts{"mid": {AC: 1, AN: 10}},
		},
	}

	enc, err := r.Encode()
	require.NoError(t, err)

	// "mid" was introduced in gnomAD v3; v2 has no such cohort.
	_, err = records.DecodeFrequencyRecordSchema(records.FreqSchemaV3, enc)
	require.NoError(t, err)
	_, err = records.DecodeFrequencyRecordSchema(records.FreqSchemaV4, enc)
	require.NoError(t, err)

	_, err = records.DecodeFrequencyRecordSchema(records.FreqSchemaV2, enc)
	require.ErrorIs(t, err, errs.ErrDecodeFailure)

	// The default schema performs no vocabulary check at all.
	_, err = records.DecodeFrequencyRecordSchema(records.FreqSchemaDefault, enc)
	require.NoError(t, err)
}

func TestMergeFrequencyFusesExomesAndGenomes(t *testing.T) {
	exomesOnly := records.FrequencyRecord{
		Chrom: "1", Pos: 100, Ref: "A", Alt: "G",
		Exomes: &records.SubFrequency{Counts: records.Counts{AC: 1, AN: 10}},
	}
	genomesOnly := records.FrequencyRecord{
		Chrom: "1", Pos: 100, Ref: "A", Alt: "G",
		Genomes: &records.SubFrequency{Counts: records.Counts{AC: 2, AN: 20}},
	}

	merged, err := records.MergeFrequency(exomesOnly, genomesOnly)
	require.NoError(t, err)

	require.NotNil(t, merged.Exomes)
	require.NotNil(t, merged.Genomes)
	assert.Equal(t, int32(1), merged.Exomes.Counts.AC)
	assert.Equal(t, int32(2), merged.Genomes.Counts.AC)
}

func TestMergeFrequencyRejectsDuplicateSubRecord(t *testing.T) {
	a := records.FrequencyRecord{Chrom: "1", Pos: 1, Ref: "A", Alt: "G", Exomes: &records.SubFrequency{}}
	b := records.FrequencyRecord{Chrom: "1", Pos: 1, Ref: "A", Alt: "G", Exomes: &records.SubFrequency{}}

	_, err := records.MergeFrequency(a, b)
	require.Error(t, err)
}

func TestClinVarMinimalRoundTrip(t *testing.T) {
	r := records.ClinVarMinimal{
		Release: "GRCh37",
		Chrom:   "13",
		Start:   95227055,
		Stop:    95227055,
		Ref:     "A",
		Alt:     "G",
		VCV:     "VCV000012345",
		Assertions: []records.ReferenceAssertion{
			{RCV: "RCV1", ClinicalSignificance: records.SignificanceLikelyPathogenic, ReviewStatus: records.ReviewStatusCriteriaProvided},
			{RCV: "RCV2", ClinicalSignificance: records.SignificancePathogenic, ReviewStatus: records.ReviewStatusPracticeGuideline},
		},
	}
	records.SortAssertions(r.Assertions)

	enc, err := r.Encode()
	require.NoError(t, err)

	dec, err := records.DecodeClinVarMinimal(enc)
	require.NoError(t, err)

	require.Len(t, dec.Assertions, 2)
	assert.Equal(t, "RCV1", dec.Assertions[0].RCV)
	assert.Equal(t, "RCV2", dec.Assertions[1].RCV)
}

func TestSortAssertionsOrdersPathogenicLast(t *testing.T) {
	assertions := []records.ReferenceAssertion{
		{RCV: "RCV2", ClinicalSignificance: records.SignificancePathogenic, ReviewStatus: records.ReviewStatusPracticeGuideline},
		{RCV: "RCV1", ClinicalSignificance: records.SignificanceLikelyPathogenic, ReviewStatus: records.ReviewStatusCriteriaProvided},
	}

	records.SortAssertions(assertions)

	assert.Equal(t, "RCV1", assertions[0].RCV)
	assert.Equal(t, "RCV2", assertions[1].RCV)
}

func TestMergeAssertionsIdempotent(t *testing.T) {
	existing := []records.ReferenceAssertion{
		{RCV: "RCV1", ClinicalSignificance: records.SignificanceLikelyPathogenic, ReviewStatus: records.ReviewStatusCriteriaProvided},
	}
	incoming := []records.ReferenceAssertion{
		{RCV: "RCV2", ClinicalSignificance: records.SignificancePathogenic, ReviewStatus: records.ReviewStatusPracticeGuideline},
	}

	// Re-merging the same incoming assertions must not grow the list.
	once := records.MergeAssertions(existing, incoming)
	twice := records.MergeAssertions(once, incoming)

	require.Len(t, once, 2)
	require.Len(t, twice, 2)
	assert.Equal(t, once, twice)
}

func TestClinVarSVOverlayInterval(t *testing.T) {
	r := records.ClinVarSV{Chrom: "1", Start: 1000, Stop: 2000}
	start, stop, ok := r.OverlayInterval()
	assert.True(t, ok)
	assert.Equal(t, int64(1000), start)
	assert.Equal(t, int64(2000), stop)

	innerOnly := records.ClinVarSV{InnerStart: 10, InnerStop: 20}
	start, stop, ok = innerOnly.OverlayInterval()
	assert.True(t, ok)
	assert.Equal(t, int64(10), start)
	assert.Equal(t, int64(20), stop)

	none := records.ClinVarSV{}
	_, _, ok = none.OverlayInterval()
	assert.False(t, ok)
}

func TestClinVarSVRoundTrip(t *testing.T) {
	r := records.ClinVarSV{
		VCV: "VCV000099999", Chrom: "1", Start: 1000, Stop: 2000, VariantType: "DEL",
		Assertions: []records.ReferenceAssertion{{RCV: "RCV9", ClinicalSignificance: records.SignificancePathogenic, ReviewStatus: records.ReviewStatusExpertPanel}},
	}

	enc, err := r.Encode()
	require.NoError(t, err)

	dec, err := records.DecodeClinVarSV(enc)
	require.NoError(t, err)
	assert.Equal(t, "VCV000099999", dec.VCV)
	assert.Equal(t, "DEL", dec.VariantType)
	require.Len(t, dec.Assertions, 1)
	assert.Equal(t, "RCV9", dec.Assertions[0].RCV)
}

func TestConservationRecordListRoundTrip(t *testing.T) {
	scoreSchema := &schema.Schema{
		Columns: []string{"phylop", "phastcons"},
		Types:   []schema.ColumnType{schema.ColumnFloat, schema.ColumnFloat},
	}

	l := records.ConservationRecordList{
		ScoreSchema: scoreSchema,
		Rows: []records.ConservationRow{
			{
				Chrom: "13", Start: 95248336, Stop: 95248351, HGNCID: "HGNC:1100",
				Scores: map[string]float64{"phylop": 0.87, "phastcons": 0.42},
			},
			{
				Chrom: "13", Start: 95248336, Stop: 95248351, HGNCID: "HGNC:1100", Transcript: "NM_007294.4",
				Scores: map[string]float64{"phylop": 0.91},
			},
		},
	}

	enc, err := l.Encode()
	require.NoError(t, err)

	dec, err := records.DecodeConservationRecordList(enc)
	require.NoError(t, err)
	require.Len(t, dec.Rows, 2)
	assert.InDelta(t, 0.87, dec.Rows[0].Scores["phylop"], 1e-9)
	assert.InDelta(t, 0.42, dec.Rows[0].Scores["phastcons"], 1e-9)
	assert.Equal(t, "NM_007294.4", dec.Rows[1].Transcript)
	_, hasPhastcons := dec.Rows[1].Scores["phastcons"]
	assert.False(t, hasPhastcons)
}

func TestGeneRecordRoundTrip(t *testing.T) {
	pli := 0.98
	r := records.GeneRecord{
		HGNC: records.HGNCCore{HGNCID: "HGNC:1100", Symbol: "BRCA1", Name: "BRCA1 DNA repair associated"},
		GnomadConstraints: &records.GnomadConstraints{
			PLI: pli,
		},
		PanelApp: []records.PanelAppEntry{{Panel: "Breast cancer", Confidence: "green"}},
	}

	enc, err := r.Encode()
	require.NoError(t, err)

	dec, err := records.DecodeGeneRecord(enc)
	require.NoError(t, err)
	assert.Equal(t, "BRCA1", dec.HGNC.Symbol)
	require.NotNil(t, dec.GnomadConstraints)
	assert.InDelta(t, pli, dec.GnomadConstraints.PLI, 1e-9)
	require.Len(t, dec.PanelApp, 1)
	assert.Equal(t, "green", dec.PanelApp[0].Confidence)
	assert.Nil(t, dec.ACMGSF)
}

func TestGeneRecordRequiresHGNCCore(t *testing.T) {
	_, err := records.DecodeGeneRecord([]byte{})
	require.Error(t, err)
}
