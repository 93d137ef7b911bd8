/* SPDX-License-Identifier: AGPL-3.0-or-later
 *
 * Zymatik Annonars - A read-optimized genomic variant annotation store.
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published
 * by the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package records

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/zymatik-com/annonars/internal/errs"
	"github.com/zymatik-com/annonars/internal/records/wire"
)

// Populations is the superset of gnomAD population codes across every
// supported release; importers iterate it when extracting per-population
// splits. Which subset is legal for a given store is fixed by its
// FreqSchema.
var Populations = []string{"afr", "ami", "amr", "asj", "eas", "fin", "mid", "nfe", "sas", "oth"}

// FreqSchema selects which gnomAD major-version vocabulary a frequency
// dataset's values decode under. The query engine reads it once from
// meta:gnomad-version at open time and passes it to every decode.
type FreqSchema int

const (
	// FreqSchemaDefault decodes with no vocabulary check, for frequency
	// stores carrying no meta:gnomad-version key (Helix mtDNA, tests,
	// hand-built fixtures).
	FreqSchemaDefault FreqSchema = iota
	FreqSchemaV2
	FreqSchemaV3
	FreqSchemaV4
)

func (s FreqSchema) String() string {
	switch s {
	case FreqSchemaV2:
		return "gnomad-v2"
	case FreqSchemaV3:
		return "gnomad-v3"
	case FreqSchemaV4:
		return "gnomad-v4"
	default:
		return "default"
	}
}

// populationsBySchema fixes the per-release population vocabulary: v2
// predates the ami and mid cohorts, v3 introduced both, v4 kept them.
var populationsBySchema = map[FreqSchema][]string{
	FreqSchemaV2: {"afr", "amr", "asj", "eas", "fin", "nfe", "sas", "oth"},
	FreqSchemaV3: {"afr", "ami", "amr", "asj", "eas", "fin", "mid", "nfe", "sas", "oth"},
	FreqSchemaV4: {"afr", "ami", "amr", "asj", "eas", "fin", "mid", "nfe", "sas", "oth"},
}

// ParseGnomadVersion maps a meta:gnomad-version string to the FreqSchema
// its records decode under. Only the major version matters: "2.1.1" and
// "2.0" both select the v2 schema. Any other prefix is a version this
// engine cannot dispatch.
func ParseGnomadVersion(v string) (FreqSchema, error) {
	switch {
	case strings.HasPrefix(v, "2."):
		return FreqSchemaV2, nil
	case strings.HasPrefix(v, "3."):
		return FreqSchemaV3, nil
	case strings.HasPrefix(v, "4."):
		return FreqSchemaV4, nil
	}
	return FreqSchemaDefault, fmt.Errorf("%w: gnomad-version %q", errs.ErrDatasetVersionUnsupported, v)
}

// Counts is a single {ac, an, nhomalt, af} tuple.
type Counts struct {
	AC      int32   `json:"ac"`
	AN      int32   `json:"an"`
	NHomAlt int32   `json:"nhomalt"`
	AF      float32 `json:"af"`
}

func (c Counts) validate() error {
	if err := validateCount(c.AC); err != nil {
		return err
	}
	if err := validateCount(c.AN); err != nil {
		return err
	}
	if err := validateCount(c.NHomAlt); err != nil {
		return err
	}
	return validateFrequency(float64(c.AF))
}

const (
	tagCountsAC = iota + 1
	tagCountsAN
	tagCountsNHomAlt
	tagCountsAF
)

func (c Counts) encode() []byte {
	w := wire.NewWriter()
	w.WriteInt32(tagCountsAC, c.AC)
	w.WriteInt32(tagCountsAN, c.AN)
	w.WriteInt32(tagCountsNHomAlt, c.NHomAlt)
	w.WriteFloat32(tagCountsAF, c.AF)
	return w.Bytes()
}

func decodeCounts(b []byte) (Counts, error) {
	fields, err := wire.NewReader(b).Fields()
	if err != nil {
		return Counts{}, err
	}

	var c Counts
	if p, ok := fields[tagCountsAC]; ok {
		if c.AC, err = wire.ParseInt32(p[0]); err != nil {
			return Counts{}, err
		}
	}
	if p, ok := fields[tagCountsAN]; ok {
		if c.AN, err = wire.ParseInt32(p[0]); err != nil {
			return Counts{}, err
		}
	}
	if p, ok := fields[tagCountsNHomAlt]; ok {
		if c.NHomAlt, err = wire.ParseInt32(p[0]); err != nil {
			return Counts{}, err
		}
	}
	if p, ok := fields[tagCountsAF]; ok {
		if c.AF, err = wire.ParseFloat32(p[0]); err != nil {
			return Counts{}, err
		}
	}

	return c, nil
}

// SexSplit carries the overall count plus XX/XY splits.
type SexSplit struct {
	Overall Counts `json:"overall"`
	XX      Counts `json:"xx"`
	XY      Counts `json:"xy"`
}

const (
	tagSexOverall = iota + 1
	tagSexXX
	tagSexXY
)

func (s SexSplit) encode() []byte {
	w := wire.NewWriter()
	w.WriteMessage(tagSexOverall, s.Overall.encode())
	w.WriteMessage(tagSexXX, s.XX.encode())
	w.WriteMessage(tagSexXY, s.XY.encode())
	return w.Bytes()
}

func decodeSexSplit(b []byte) (SexSplit, error) {
	fields, err := wire.NewReader(b).Fields()
	if err != nil {
		return SexSplit{}, err
	}

	var s SexSplit
	if p, ok := fields[tagSexOverall]; ok {
		if s.Overall, err = decodeCounts(p[0]); err != nil {
			return SexSplit{}, err
		}
	}
	if p, ok := fields[tagSexXX]; ok {
		if s.XX, err = decodeCounts(p[0]); err != nil {
			return SexSplit{}, err
		}
	}
	if p, ok := fields[tagSexXY]; ok {
		if s.XY, err = decodeCounts(p[0]); err != nil {
			return SexSplit{}, err
		}
	}

	return s, nil
}

// SubFrequency is one cohort's (exomes or genomes) counts, with optional
// sex and population splits. A missing SubFrequency is the all-zeros
// default, represented here as a nil pointer at the FrequencyRecord level.
type SubFrequency struct {
	Counts      Counts            `json:"counts"`
	Sex         *SexSplit         `json:"sex,omitempty"`
	Populations map[string]Counts `json:"populations,omitempty"`
}

const (
	tagSubCounts = iota + 1
	tagSubSex
	tagSubPopKey
	tagSubPopValue
)

func (s SubFrequency) encode() []byte {
	w := wire.NewWriter()
	w.WriteMessage(tagSubCounts, s.Counts.encode())
	if s.Sex != nil {
		w.WriteMessage(tagSubSex, s.Sex.encode())
	}
	for _, pop := range Populations {
		c, ok := s.Populations[pop]
		if !ok {
			continue
		}
		w.WriteString(tagSubPopKey, pop)
		w.WriteMessage(tagSubPopValue, c.encode())
	}
	return w.Bytes()
}

func decodeSubFrequency(b []byte) (*SubFrequency, error) {
	r := wire.NewReader(b)

	s := &SubFrequency{Populations: map[string]Counts{}}
	var pendingPop string
	havePendingPop := false

	for {
		f, ok, err := r.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		switch f.Tag {
		case tagSubCounts:
			if s.Counts, err = decodeCounts(f.Payload); err != nil {
				return nil, err
			}
		case tagSubSex:
			sex, err := decodeSexSplit(f.Payload)
			if err != nil {
				return nil, err
			}
			s.Sex = &sex
		case tagSubPopKey:
			pendingPop = wire.ParseString(f.Payload)
			havePendingPop = true
		case tagSubPopValue:
			if !havePendingPop {
				return nil, fmt.Errorf("population value without preceding key")
			}
			c, err := decodeCounts(f.Payload)
			if err != nil {
				return nil, err
			}
			s.Populations[pendingPop] = c
			havePendingPop = false
		}
	}

	if len(s.Populations) == 0 {
		s.Populations = nil
	}

	return s, nil
}

func encodeInt32Slice(s []int32) []byte {
	buf := make([]byte, 4*len(s))
	for i, v := range s {
		binary.BigEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return buf
}

func decodeInt32Slice(b []byte) ([]int32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid int32 slice payload length %d", len(b))
	}
	out := make([]int32, len(b)/4)
	for i := range out {
		out[i] = int32(binary.BigEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// VariantInfo carries gnomAD's per-variant classification fields
// (opts.VarInfo).
type VariantInfo struct {
	VariantType string `json:"variant_type,omitempty"`
	AlleleType  string `json:"allele_type,omitempty"`
	NAltAlleles int32  `json:"n_alt_alleles,omitempty"`
	WasMixed    bool   `json:"was_mixed,omitempty"`
	Monoallelic bool   `json:"monoallelic,omitempty"`
	VarDP       int32  `json:"var_dp,omitempty"`
}

const (
	tagVarInfoVariantType = iota + 1
	tagVarInfoAlleleType
	tagVarInfoNAltAlleles
	tagVarInfoWasMixed
	tagVarInfoMonoallelic
	tagVarInfoVarDP
)

func (v VariantInfo) encode() []byte {
	w := wire.NewWriter()
	w.WriteString(tagVarInfoVariantType, v.VariantType)
	w.WriteString(tagVarInfoAlleleType, v.AlleleType)
	w.WriteInt32(tagVarInfoNAltAlleles, v.NAltAlleles)
	w.WriteBool(tagVarInfoWasMixed, v.WasMixed)
	w.WriteBool(tagVarInfoMonoallelic, v.Monoallelic)
	w.WriteInt32(tagVarInfoVarDP, v.VarDP)
	return w.Bytes()
}

func decodeVariantInfo(b []byte) (VariantInfo, error) {
	fields, err := wire.NewReader(b).Fields()
	if err != nil {
		return VariantInfo{}, err
	}

	var v VariantInfo
	if p, ok := fields[tagVarInfoVariantType]; ok {
		v.VariantType = wire.ParseString(p[0])
	}
	if p, ok := fields[tagVarInfoAlleleType]; ok {
		v.AlleleType = wire.ParseString(p[0])
	}
	if p, ok := fields[tagVarInfoNAltAlleles]; ok {
		if v.NAltAlleles, err = wire.ParseInt32(p[0]); err != nil {
			return VariantInfo{}, err
		}
	}
	if p, ok := fields[tagVarInfoWasMixed]; ok {
		v.WasMixed = wire.ParseBool(p[0])
	}
	if p, ok := fields[tagVarInfoMonoallelic]; ok {
		v.Monoallelic = wire.ParseBool(p[0])
	}
	if p, ok := fields[tagVarInfoVarDP]; ok {
		if v.VarDP, err = wire.ParseInt32(p[0]); err != nil {
			return VariantInfo{}, err
		}
	}

	return v, nil
}

// EffectInfo carries the predicted-effect scores gnomAD attaches to a
// variant (opts.EffectInfo).
type EffectInfo struct {
	PrimateAIScore      float32 `json:"primate_ai_score,omitempty"`
	RevelScore          float32 `json:"revel_score,omitempty"`
	SpliceAIMaxDS       float32 `json:"splice_ai_max_ds,omitempty"`
	SpliceAIConsequence string  `json:"splice_ai_consequence,omitempty"`
	CADDRaw             float32 `json:"cadd_raw,omitempty"`
	CADDPhred           float32 `json:"cadd_phred,omitempty"`
}

const (
	tagEffectPrimateAI = iota + 1
	tagEffectRevel
	tagEffectSpliceAIMaxDS
	tagEffectSpliceAIConsequence
	tagEffectCADDRaw
	tagEffectCADDPhred
)

func (e EffectInfo) encode() []byte {
	w := wire.NewWriter()
	w.WriteFloat32(tagEffectPrimateAI, e.PrimateAIScore)
	w.WriteFloat32(tagEffectRevel, e.RevelScore)
	w.WriteFloat32(tagEffectSpliceAIMaxDS, e.SpliceAIMaxDS)
	w.WriteString(tagEffectSpliceAIConsequence, e.SpliceAIConsequence)
	w.WriteFloat32(tagEffectCADDRaw, e.CADDRaw)
	w.WriteFloat32(tagEffectCADDPhred, e.CADDPhred)
	return w.Bytes()
}

func decodeEffectInfo(b []byte) (EffectInfo, error) {
	fields, err := wire.NewReader(b).Fields()
	if err != nil {
		return EffectInfo{}, err
	}

	var e EffectInfo
	if p, ok := fields[tagEffectPrimateAI]; ok {
		if e.PrimateAIScore, err = wire.ParseFloat32(p[0]); err != nil {
			return EffectInfo{}, err
		}
	}
	if p, ok := fields[tagEffectRevel]; ok {
		if e.RevelScore, err = wire.ParseFloat32(p[0]); err != nil {
			return EffectInfo{}, err
		}
	}
	if p, ok := fields[tagEffectSpliceAIMaxDS]; ok {
		if e.SpliceAIMaxDS, err = wire.ParseFloat32(p[0]); err != nil {
			return EffectInfo{}, err
		}
	}
	if p, ok := fields[tagEffectSpliceAIConsequence]; ok {
		e.SpliceAIConsequence = wire.ParseString(p[0])
	}
	if p, ok := fields[tagEffectCADDRaw]; ok {
		if e.CADDRaw, err = wire.ParseFloat32(p[0]); err != nil {
			return EffectInfo{}, err
		}
	}
	if p, ok := fields[tagEffectCADDPhred]; ok {
		if e.CADDPhred, err = wire.ParseFloat32(p[0]); err != nil {
			return EffectInfo{}, err
		}
	}

	return e, nil
}

// QualityInfo carries gnomAD's allele-specific VQSR/quality metrics
// (opts.Quality).
type QualityInfo struct {
	ASFS                 float32 `json:"as_fs,omitempty"`
	InbreedingCoeff      float32 `json:"inbreeding_coeff,omitempty"`
	ASMQ                 float32 `json:"as_mq,omitempty"`
	MQRankSum            float32 `json:"mq_rank_sum,omitempty"`
	ASMQRankSum          float32 `json:"as_mq_rank_sum,omitempty"`
	ASQD                 float32 `json:"as_qd,omitempty"`
	ReadPosRankSum       float32 `json:"read_pos_rank_sum,omitempty"`
	ASReadPosRankSum     float32 `json:"as_read_pos_rank_sum,omitempty"`
	ASSOR                float32 `json:"as_sor,omitempty"`
	PositiveTrainSite    bool    `json:"positive_train_site,omitempty"`
	NegativeTrainSite    bool    `json:"negative_train_site,omitempty"`
	ASVQSLOD             float32 `json:"as_vqslod,omitempty"`
	ASCulprit            string  `json:"as_culprit,omitempty"`
	SegDup               bool    `json:"segdup,omitempty"`
	LCR                  bool    `json:"lcr,omitempty"`
	TransmittedSingleton bool    `json:"transmitted_singleton,omitempty"`
	ASPabMax             float32 `json:"as_pab_max,omitempty"`
	ASQualApprox         int32   `json:"as_qual_approx,omitempty"`
	ASSBTable            string  `json:"as_sb_table,omitempty"`
}

const (
	tagQualASFS = iota + 1
	tagQualInbreedingCoeff
	tagQualASMQ
	tagQualMQRankSum
	tagQualASMQRankSum
	tagQualASQD
	tagQualReadPosRankSum
	tagQualASReadPosRankSum
	tagQualASSOR
	tagQualPositiveTrainSite
	tagQualNegativeTrainSite
	tagQualASVQSLOD
	tagQualASCulprit
	tagQualSegDup
	tagQualLCR
	tagQualTransmittedSingleton
	tagQualASPabMax
	tagQualASQualApprox
	tagQualASSBTable
)

func (q QualityInfo) encode() []byte {
	w := wire.NewWriter()
	w.WriteFloat32(tagQualASFS, q.ASFS)
	w.WriteFloat32(tagQualInbreedingCoeff, q.InbreedingCoeff)
	w.WriteFloat32(tagQualASMQ, q.ASMQ)
	w.WriteFloat32(tagQualMQRankSum, q.MQRankSum)
	w.WriteFloat32(tagQualASMQRankSum, q.ASMQRankSum)
	w.WriteFloat32(tagQualASQD, q.ASQD)
	w.WriteFloat32(tagQualReadPosRankSum, q.ReadPosRankSum)
	w.WriteFloat32(tagQualASReadPosRankSum, q.ASReadPosRankSum)
	w.WriteFloat32(tagQualASSOR, q.ASSOR)
	w.WriteBool(tagQualPositiveTrainSite, q.PositiveTrainSite)
	w.WriteBool(tagQualNegativeTrainSite, q.NegativeTrainSite)
	w.WriteFloat32(tagQualASVQSLOD, q.ASVQSLOD)
	w.WriteString(tagQualASCulprit, q.ASCulprit)
	w.WriteBool(tagQualSegDup, q.SegDup)
	w.WriteBool(tagQualLCR, q.LCR)
	w.WriteBool(tagQualTransmittedSingleton, q.TransmittedSingleton)
	w.WriteFloat32(tagQualASPabMax, q.ASPabMax)
	w.WriteInt32(tagQualASQualApprox, q.ASQualApprox)
	w.WriteString(tagQualASSBTable, q.ASSBTable)
	return w.Bytes()
}

func decodeQualityInfo(b []byte) (QualityInfo, error) {
	fields, err := wire.NewReader(b).Fields()
	if err != nil {
		return QualityInfo{}, err
	}

	var q QualityInfo
	floatField := func(tag uint8, dst *float32) error {
		p, ok := fields[tag]
		if !ok {
			return nil
		}
		v, err := wire.ParseFloat32(p[0])
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}

	for _, f := range []struct {
		tag uint8
		dst *float32
	}{
		{tagQualASFS, &q.ASFS}, {tagQualInbreedingCoeff, &q.InbreedingCoeff},
		{tagQualASMQ, &q.ASMQ}, {tagQualMQRankSum, &q.MQRankSum},
		{tagQualASMQRankSum, &q.ASMQRankSum}, {tagQualASQD, &q.ASQD},
		{tagQualReadPosRankSum, &q.ReadPosRankSum}, {tagQualASReadPosRankSum, &q.ASReadPosRankSum},
		{tagQualASSOR, &q.ASSOR}, {tagQualASVQSLOD, &q.ASVQSLOD},
		{tagQualASPabMax, &q.ASPabMax},
	} {
		if err := floatField(f.tag, f.dst); err != nil {
			return QualityInfo{}, err
		}
	}

	if p, ok := fields[tagQualPositiveTrainSite]; ok {
		q.PositiveTrainSite = wire.ParseBool(p[0])
	}
	if p, ok := fields[tagQualNegativeTrainSite]; ok {
		q.NegativeTrainSite = wire.ParseBool(p[0])
	}
	if p, ok := fields[tagQualASCulprit]; ok {
		q.ASCulprit = wire.ParseString(p[0])
	}
	if p, ok := fields[tagQualSegDup]; ok {
		q.SegDup = wire.ParseBool(p[0])
	}
	if p, ok := fields[tagQualLCR]; ok {
		q.LCR = wire.ParseBool(p[0])
	}
	if p, ok := fields[tagQualTransmittedSingleton]; ok {
		q.TransmittedSingleton = wire.ParseBool(p[0])
	}
	if p, ok := fields[tagQualASQualApprox]; ok {
		if q.ASQualApprox, err = wire.ParseInt32(p[0]); err != nil {
			return QualityInfo{}, err
		}
	}
	if p, ok := fields[tagQualASSBTable]; ok {
		q.ASSBTable = wire.ParseString(p[0])
	}

	return q, nil
}

// AgeInfo carries gnomAD's het/hom age-of-carrier histograms
// (opts.AgeHists).
type AgeInfo struct {
	AgeHistHomBinFreq  []int32 `json:"age_hist_hom_bin_freq,omitempty"`
	AgeHistHomNSmaller int32   `json:"age_hist_hom_n_smaller,omitempty"`
	AgeHistHomNLarger  int32   `json:"age_hist_hom_n_larger,omitempty"`
	AgeHistHetBinFreq  []int32 `json:"age_hist_het_bin_freq,omitempty"`
	AgeHistHetNSmaller int32   `json:"age_hist_het_n_smaller,omitempty"`
	AgeHistHetNLarger  int32   `json:"age_hist_het_n_larger,omitempty"`
}

const (
	tagAgeHomBinFreq = iota + 1
	tagAgeHomNSmaller
	tagAgeHomNLarger
	tagAgeHetBinFreq
	tagAgeHetNSmaller
	tagAgeHetNLarger
)

func (a AgeInfo) encode() []byte {
	w := wire.NewWriter()
	w.WriteMessage(tagAgeHomBinFreq, encodeInt32Slice(a.AgeHistHomBinFreq))
	w.WriteInt32(tagAgeHomNSmaller, a.AgeHistHomNSmaller)
	w.WriteInt32(tagAgeHomNLarger, a.AgeHistHomNLarger)
	w.WriteMessage(tagAgeHetBinFreq, encodeInt32Slice(a.AgeHistHetBinFreq))
	w.WriteInt32(tagAgeHetNSmaller, a.AgeHistHetNSmaller)
	w.WriteInt32(tagAgeHetNLarger, a.AgeHistHetNLarger)
	return w.Bytes()
}

func decodeAgeInfo(b []byte) (AgeInfo, error) {
	fields, err := wire.NewReader(b).Fields()
	if err != nil {
		return AgeInfo{}, err
	}

	var a AgeInfo
	if p, ok := fields[tagAgeHomBinFreq]; ok {
		if a.AgeHistHomBinFreq, err = decodeInt32Slice(p[0]); err != nil {
			return AgeInfo{}, err
		}
	}
	if p, ok := fields[tagAgeHomNSmaller]; ok {
		if a.AgeHistHomNSmaller, err = wire.ParseInt32(p[0]); err != nil {
			return AgeInfo{}, err
		}
	}
	if p, ok := fields[tagAgeHomNLarger]; ok {
		if a.AgeHistHomNLarger, err = wire.ParseInt32(p[0]); err != nil {
			return AgeInfo{}, err
		}
	}
	if p, ok := fields[tagAgeHetBinFreq]; ok {
		if a.AgeHistHetBinFreq, err = decodeInt32Slice(p[0]); err != nil {
			return AgeInfo{}, err
		}
	}
	if p, ok := fields[tagAgeHetNSmaller]; ok {
		if a.AgeHistHetNSmaller, err = wire.ParseInt32(p[0]); err != nil {
			return AgeInfo{}, err
		}
	}
	if p, ok := fields[tagAgeHetNLarger]; ok {
		if a.AgeHistHetNLarger, err = wire.ParseInt32(p[0]); err != nil {
			return AgeInfo{}, err
		}
	}

	return a, nil
}

// DepthInfo carries gnomAD's per-variant depth-of-coverage histograms
// (opts.DepthDetails).
type DepthInfo struct {
	DPHistAllNLarger int32   `json:"dp_hist_all_n_larger,omitempty"`
	DPHistAltNLarger int32   `json:"dp_hist_alt_n_larger,omitempty"`
	DPHistAllBinFreq []int32 `json:"dp_hist_all_bin_freq,omitempty"`
	DPHistAltBinFreq []int32 `json:"dp_hist_alt_bin_freq,omitempty"`
}

const (
	tagDepthAllNLarger = iota + 1
	tagDepthAltNLarger
	tagDepthAllBinFreq
	tagDepthAltBinFreq
)

func (d DepthInfo) encode() []byte {
	w := wire.NewWriter()
	w.WriteInt32(tagDepthAllNLarger, d.DPHistAllNLarger)
	w.WriteInt32(tagDepthAltNLarger, d.DPHistAltNLarger)
	w.WriteMessage(tagDepthAllBinFreq, encodeInt32Slice(d.DPHistAllBinFreq))
	w.WriteMessage(tagDepthAltBinFreq, encodeInt32Slice(d.DPHistAltBinFreq))
	return w.Bytes()
}

func decodeDepthInfo(b []byte) (DepthInfo, error) {
	fields, err := wire.NewReader(b).Fields()
	if err != nil {
		return DepthInfo{}, err
	}

	var d DepthInfo
	if p, ok := fields[tagDepthAllNLarger]; ok {
		if d.DPHistAllNLarger, err = wire.ParseInt32(p[0]); err != nil {
			return DepthInfo{}, err
		}
	}
	if p, ok := fields[tagDepthAltNLarger]; ok {
		if d.DPHistAltNLarger, err = wire.ParseInt32(p[0]); err != nil {
			return DepthInfo{}, err
		}
	}
	if p, ok := fields[tagDepthAllBinFreq]; ok {
		if d.DPHistAllBinFreq, err = decodeInt32Slice(p[0]); err != nil {
			return DepthInfo{}, err
		}
	}
	if p, ok := fields[tagDepthAltBinFreq]; ok {
		if d.DPHistAltBinFreq, err = decodeInt32Slice(p[0]); err != nil {
			return DepthInfo{}, err
		}
	}

	return d, nil
}

// UnknownFilterSentinel replaces any INFO/filters value this store
// does not recognize: the variant is kept and the unrecognized filter
// recorded, so an upstream filter-name change doesn't silently drop
// rows from an import that otherwise succeeded.
const UnknownFilterSentinel = "unknown-filter"

// knownFilters is the fixed gnomAD v3 filter vocabulary.
var knownFilters = map[string]bool{
	"PASS": true, "AC0": true, "InbreedingCoeff": true, "AS_VQSR": true,
}

// NormalizeFilter maps a raw gnomAD filters value to either itself (if
// recognized) or UnknownFilterSentinel.
func NormalizeFilter(raw string) string {
	if knownFilters[raw] {
		return raw
	}
	return UnknownFilterSentinel
}

// FrequencyRecord is the fixed-layout record shared by the autosomal,
// gonosomal, and mitochondrial frequency datasets: two optional
// sub-records (exomes, genomes), each carrying counts plus sex/population
// splits. chrom/pos/ref/alt are stored redundantly for self-describing
// JSON emission.
type FrequencyRecord struct {
	Chrom   string        `json:"chrom"`
	Pos     int64         `json:"pos"`
	Ref     string        `json:"ref"`
	Alt     string        `json:"alt"`
	Exomes  *SubFrequency `json:"exomes,omitempty"`
	Genomes *SubFrequency `json:"genomes,omitempty"`

	// Filters is the normalized INFO/filters list (opts has no gate for
	// this -- gnomAD attaches it unconditionally to every record).
	Filters []string `json:"filters,omitempty"`
	// VEP is the raw, still pipe-delimited VEP consequence annotations
	// (opts.VEP); this store has no VEP field-name schema to parse them
	// against, so they ride along verbatim for callers that do.
	VEP []string `json:"vep,omitempty"`

	VariantInfo  *VariantInfo `json:"variant_info,omitempty"`
	EffectInfo   *EffectInfo  `json:"effect_info,omitempty"`
	Quality      *QualityInfo `json:"quality,omitempty"`
	AgeHists     *AgeInfo     `json:"age_hists,omitempty"`
	DepthDetails *DepthInfo   `json:"depth_details,omitempty"`
}

const (
	tagFreqChrom = iota + 1
	tagFreqPos
	tagFreqRef
	tagFreqAlt
	tagFreqExomes
	tagFreqGenomes
	tagFreqFilters
	tagFreqVEP
	tagFreqVariantInfo
	tagFreqEffectInfo
	tagFreqQuality
	tagFreqAgeHists
	tagFreqDepthDetails
)

// Encode serializes the record using the shared wire format.
func (r FrequencyRecord) Encode() ([]byte, error) {
	if r.Exomes != nil {
		if err := r.Exomes.Counts.validate(); err != nil {
			return nil, fmt.Errorf("exomes: %w", err)
		}
	}
	if r.Genomes != nil {
		if err := r.Genomes.Counts.validate(); err != nil {
			return nil, fmt.Errorf("genomes: %w", err)
		}
	}

	w := wire.NewWriter()
	w.WriteString(tagFreqChrom, r.Chrom)
	w.WriteInt64(tagFreqPos, r.Pos)
	w.WriteString(tagFreqRef, r.Ref)
	w.WriteString(tagFreqAlt, r.Alt)
	if r.Exomes != nil {
		w.WriteMessage(tagFreqExomes, r.Exomes.encode())
	}
	if r.Genomes != nil {
		w.WriteMessage(tagFreqGenomes, r.Genomes.encode())
	}
	for _, f := range r.Filters {
		w.WriteString(tagFreqFilters, f)
	}
	for _, v := range r.VEP {
		w.WriteString(tagFreqVEP, v)
	}
	if r.VariantInfo != nil {
		w.WriteMessage(tagFreqVariantInfo, r.VariantInfo.encode())
	}
	if r.EffectInfo != nil {
		w.WriteMessage(tagFreqEffectInfo, r.EffectInfo.encode())
	}
	if r.Quality != nil {
		w.WriteMessage(tagFreqQuality, r.Quality.encode())
	}
	if r.AgeHists != nil {
		w.WriteMessage(tagFreqAgeHists, r.AgeHists.encode())
	}
	if r.DepthDetails != nil {
		w.WriteMessage(tagFreqDepthDetails, r.DepthDetails.encode())
	}
	return w.Bytes(), nil
}

// DecodeFrequencyRecord is the inverse of Encode.
func DecodeFrequencyRecord(b []byte) (*FrequencyRecord, error) {
	fields, err := wire.NewReader(b).Fields()
	if err != nil {
		return nil, err
	}

	r := &FrequencyRecord{}
	if p, ok := fields[tagFreqChrom]; ok {
		r.Chrom = wire.ParseString(p[0])
	}
	if p, ok := fields[tagFreqPos]; ok {
		if r.Pos, err = wire.ParseInt64(p[0]); err != nil {
			return nil, err
		}
	}
	if p, ok := fields[tagFreqRef]; ok {
		r.Ref = wire.ParseString(p[0])
	}
	if p, ok := fields[tagFreqAlt]; ok {
		r.Alt = wire.ParseString(p[0])
	}
	if p, ok := fields[tagFreqExomes]; ok {
		if r.Exomes, err = decodeSubFrequency(p[0]); err != nil {
			return nil, err
		}
	}
	if p, ok := fields[tagFreqGenomes]; ok {
		if r.Genomes, err = decodeSubFrequency(p[0]); err != nil {
			return nil, err
		}
	}
	for _, p := range fields[tagFreqFilters] {
		r.Filters = append(r.Filters, wire.ParseString(p))
	}
	for _, p := range fields[tagFreqVEP] {
		r.VEP = append(r.VEP, wire.ParseString(p))
	}
	if p, ok := fields[tagFreqVariantInfo]; ok {
		vi, err := decodeVariantInfo(p[0])
		if err != nil {
			return nil, err
		}
		r.VariantInfo = &vi
	}
	if p, ok := fields[tagFreqEffectInfo]; ok {
		ei, err := decodeEffectInfo(p[0])
		if err != nil {
			return nil, err
		}
		r.EffectInfo = &ei
	}
	if p, ok := fields[tagFreqQuality]; ok {
		q, err := decodeQualityInfo(p[0])
		if err != nil {
			return nil, err
		}
		r.Quality = &q
	}
	if p, ok := fields[tagFreqAgeHists]; ok {
		a, err := decodeAgeInfo(p[0])
		if err != nil {
			return nil, err
		}
		r.AgeHists = &a
	}
	if p, ok := fields[tagFreqDepthDetails]; ok {
		d, err := decodeDepthInfo(p[0])
		if err != nil {
			return nil, err
		}
		r.DepthDetails = &d
	}

	return r, nil
}

// DecodeFrequencyRecordSchema decodes b and validates its population
// splits against schema's vocabulary. A population code outside the
// store's declared gnomAD release means the bytes cannot have been
// written by the importer the meta claims, so it is a decode failure,
// not a silently passed-through extra.
func DecodeFrequencyRecordSchema(schema FreqSchema, b []byte) (*FrequencyRecord, error) {
	r, err := DecodeFrequencyRecord(b)
	if err != nil {
		return nil, err
	}
	if schema == FreqSchemaDefault {
		return r, nil
	}

	allowed := make(map[string]bool, len(populationsBySchema[schema]))
	for _, pop := range populationsBySchema[schema] {
		allowed[pop] = true
	}

	for _, sub := range []*SubFrequency{r.Exomes, r.Genomes} {
		if sub == nil {
			continue
		}
		for pop := range sub.Populations {
			if !allowed[pop] {
				return nil, fmt.Errorf("%w: population %q not in %s vocabulary", errs.ErrDecodeFailure, pop, schema)
			}
		}
	}

	return r, nil
}

// MergeFrequency fuses two partial frequency records (e.g. an exomes-only
// stream and a genomes-only stream sharing a VarKey) into one. It is a
// fatal input error for both inputs to carry the same sub-record (that
// indicates a duplicate key within one stream, which callers should have
// already rejected before calling Merge).
func MergeFrequency(a, b FrequencyRecord) (FrequencyRecord, error) {
	if a.Chrom != b.Chrom || a.Pos != b.Pos || a.Ref != b.Ref || a.Alt != b.Alt {
		return FrequencyRecord{}, fmt.Errorf("cannot merge frequency records for different variants")
	}

	out := FrequencyRecord{Chrom: a.Chrom, Pos: a.Pos, Ref: a.Ref, Alt: a.Alt}

	switch {
	case a.Exomes != nil && b.Exomes != nil:
		return FrequencyRecord{}, fmt.Errorf("both inputs carry an exomes sub-record")
	case a.Exomes != nil:
		out.Exomes = a.Exomes
	case b.Exomes != nil:
		out.Exomes = b.Exomes
	}

	switch {
	case a.Genomes != nil && b.Genomes != nil:
		return FrequencyRecord{}, fmt.Errorf("both inputs carry a genomes sub-record")
	case a.Genomes != nil:
		out.Genomes = a.Genomes
	case b.Genomes != nil:
		out.Genomes = b.Genomes
	}

	// Per-variant annotation blocks (as opposed to per-cohort counts) are
	// attached by whichever of the two streams extracted them; a merge
	// never needs to reconcile two different copies since only one side
	// of an exomes/genomes join runs with a given Options block enabled.
	out.Filters = firstNonEmpty(a.Filters, b.Filters)
	out.VEP = firstNonEmpty(a.VEP, b.VEP)
	if a.VariantInfo != nil {
		out.VariantInfo = a.VariantInfo
	} else {
		out.VariantInfo = b.VariantInfo
	}
	if a.EffectInfo != nil {
		out.EffectInfo = a.EffectInfo
	} else {
		out.EffectInfo = b.EffectInfo
	}
	if a.Quality != nil {
		out.Quality = a.Quality
	} else {
		out.Quality = b.Quality
	}
	if a.AgeHists != nil {
		out.AgeHists = a.AgeHists
	} else {
		out.AgeHists = b.AgeHists
	}
	if a.DepthDetails != nil {
		out.DepthDetails = a.DepthDetails
	} else {
		out.DepthDetails = b.DepthDetails
	}

	return out, nil
}

func firstNonEmpty(a, b []string) []string {
	if len(a) > 0 {
		return a
	}
	return b
}
