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

// Package vcfimport imports small-variant population-frequency VCFs
// (gnomAD exomes/genomes/mtDNA, Helix mtDNA) into a frequency dataset
// store. When a ".tbi" sidecar exists next to the input file, the import
// partitions the canonical genome into fixed-size windows and fans the
// windows out over a bounded worker pool, each worker seeking its own
// bgzf stream to the window's first tabix chunk (biogo/hts/tabix + bgzf
// virtual-offset seeking); otherwise it falls back to a single
// sequential pass. Grounded on importer.GnoMAD/DBSNP
// (zymatik-com-importer), generalized from one hardcoded file shape into
// an options-driven pipeline per Options.
package vcfimport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/biogo/hts/bgzf"
	"github.com/biogo/hts/tabix"
	"github.com/brentp/vcfgo"
	"github.com/cheggaaa/pb/v3"

	"github.com/zymatik-com/annonars/internal/compress"
	"github.com/zymatik-com/annonars/internal/errs"
	"github.com/zymatik-com/annonars/internal/keys"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

// Cohort identifies which FrequencyRecord sub-record an input VCF feeds.
type Cohort int

const (
	CohortExomes Cohort = iota
	CohortGenomes
)

// Options controls which optional blocks are extracted from each VCF
// record's INFO field. Every field defaults to off: callers opt in to
// the (slower, larger) blocks they actually need.
type Options struct {
	VEP              bool // retain the raw VEP consequence annotation (INFO/vep)
	VarInfo          bool // extract variant_type/allele_type/n_alt_alleles/...
	EffectInfo       bool // extract REVEL/CADD/SpliceAI/PrimateAI scores
	GlobalCohortPops bool // extract per-population AC/AN from the global cohort
	AllCohorts       bool // same extraction as GlobalCohortPops (global-cohort AC_<pop>/AN_<pop>); per-cohort subset fields are not read
	Quality          bool // extract allele-specific VQSR/quality metrics
	AgeHists         bool // extract het/hom age-of-carrier histograms
	DepthDetails     bool // extract per-variant depth-of-coverage histograms
}

// DefaultWindowSize is the genome window length (bp) window-parallel
// imports partition references into when no --tbi-window-size is given.
const DefaultWindowSize = 1_000_000

// maxRefLen bounds the per-reference window enumeration; no canonical
// human chromosome exceeds 250 Mbp.
const maxRefLen = 250_000_000

// Import reads path (a population-frequency VCF, optionally compressed)
// and writes one FrequencyRecord per passing biallelic SNV/indel into
// db's data column family, under cohort's sub-record slot. When a .tbi
// sidecar is present the canonical genome is partitioned into
// windowSize-bp windows imported concurrently by a pool of workers
// goroutines; without one the file is streamed in a single sequential
// pass and both knobs are ignored.
func Import(ctx context.Context, logger *slog.Logger, db *store.DB, path string, cohort Cohort, opts Options, workers int, windowSize int64, showProgress bool) error {
	if workers < 1 {
		workers = 1
	}
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}

	if idx, ok := openTabixIndex(path); ok {
		return importWindowParallel(ctx, logger, db, path, idx, cohort, opts, workers, windowSize)
	}

	return importSequential(ctx, logger, db, path, cohort, opts, showProgress)
}

// openTabixIndex reads path+".tbi" if present. The sidecar is itself
// bgzip-compressed, so it goes through the magic-byte decompressor
// first. Absence (the common case for ad hoc or already-filtered files)
// is not an error: callers fall back to the sequential importer.
func openTabixIndex(path string) (*tabix.Index, bool) {
	f, err := os.Open(path + ".tbi")
	if err != nil {
		return nil, false
	}
	defer f.Close()

	rc, err := compress.Reader(f)
	if err != nil {
		return nil, false
	}
	defer rc.Close()

	idx, err := tabix.ReadFrom(rc)
	if err != nil {
		return nil, false
	}

	return idx, true
}

func importSequential(ctx context.Context, logger *slog.Logger, db *store.DB, path string, cohort Cohort, opts Options, showProgress bool) error {
	rc, err := compress.OpenFile(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	var r io.Reader = rc
	if showProgress {
		if fi, serr := os.Stat(path); serr == nil {
			bar := pb.Full.Start64(fi.Size())
			bar.Set(pb.Bytes, true)
			defer bar.Finish()
			r = bar.NewProxyReader(rc)
		}
	}

	vcfReader, err := vcfgo.NewReader(r, false)
	if err != nil {
		return fmt.Errorf("could not create vcf reader: %w", err)
	}

	return streamVariants(ctx, logger, vcfReader, db, cohort, opts, nil)
}

// window is one unit of window-parallel work: a windowSize-bp slice of
// one reference sequence, with the first bgzf chunk the tabix index
// reports for it. beg/end are 0-based half-open tabix coordinates.
type window struct {
	name     string // reference name as spelled in the index
	chrom    string // canonical chromosome
	beg, end int64
	chunk    bgzf.Chunk
}

// importWindowParallel partitions every canonical reference in the tabix
// index into fixed-size windows and feeds them to a bounded worker pool.
// Each worker owns its own file handle and bgzf reader; bbolt serializes
// writers internally, so concurrent Put calls against the shared
// *store.DB are safe. Windows carry explicit position bounds, so a
// record sitting in a bin that overlaps two windows is imported by
// exactly one of them.
func importWindowParallel(ctx context.Context, logger *slog.Logger, db *store.DB, path string, idx *tabix.Index, cohort Cohort, opts Options, workers int, windowSize int64) error {
	header, err := readVCFHeader(path)
	if err != nil {
		return err
	}

	var windows []window
	for _, name := range idx.Names() {
		chrom, err := keys.Canonicalize(name)
		if err != nil {
			continue
		}

		for beg := int64(0); beg < maxRefLen; beg += windowSize {
			chunks, cerr := idx.Chunks(name, int(beg), int(beg+windowSize))
			if cerr != nil || len(chunks) == 0 {
				continue
			}
			windows = append(windows, window{name: name, chrom: chrom, beg: beg, end: beg + windowSize, chunk: chunks[0]})
		}
	}

	jobs := make(chan window)
	errCh := make(chan error, len(windows))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range jobs {
				if err := importWindow(ctx, logger, db, path, header, w, cohort, opts); err != nil {
					errCh <- fmt.Errorf("window %s:%d-%d: %w", w.name, w.beg, w.end, err)
				}
			}
		}()
	}

	for _, w := range windows {
		jobs <- w
	}
	close(jobs)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}

	return nil
}

// readVCFHeader reads the meta/header lines of the VCF at path, up to
// and including the #CHROM column line. The bytes are replayed in front
// of every window's seeked stream so vcfgo sees a complete file.
func readVCFHeader(path string) ([]byte, error) {
	rc, err := compress.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	br := bufio.NewReader(rc)
	var buf bytes.Buffer

	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if line[0] != '#' {
				return nil, fmt.Errorf("%w: vcf data before #CHROM header line", errs.ErrInputFormat)
			}
			buf.Write(line)
			if bytes.HasPrefix(line, []byte("#CHROM")) {
				return buf.Bytes(), nil
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%w: vcf header truncated", errs.ErrInputFormat)
		}
	}
}

// importWindow streams one window's records through its own bgzf.Reader,
// seeked to the window's first chunk, keeping only records whose
// position falls inside the window's bounds.
func importWindow(ctx context.Context, logger *slog.Logger, db *store.DB, path string, header []byte, w window, cohort Cohort, opts Options) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bgzfReader, err := bgzf.NewReader(f, 0)
	if err != nil {
		return fmt.Errorf("could not open bgzf stream: %w", err)
	}
	defer bgzfReader.Close()

	if err := bgzfReader.Seek(w.chunk.Begin); err != nil {
		return fmt.Errorf("could not seek to chunk start: %w", err)
	}

	vcfReader, err := vcfgo.NewReader(io.MultiReader(bytes.NewReader(header), bgzfReader), false)
	if err != nil {
		return fmt.Errorf("could not create vcf reader: %w", err)
	}

	return streamVariants(ctx, logger, vcfReader, db, cohort, opts, &w)
}

// streamVariants drains vcfReader, filtering to PASS biallelic
// SNVs/indels, and writes one FrequencyRecord per variant. A non-nil win
// restricts the stream to records with win.beg < pos <= win.end on
// win.chrom, stopping early once the stream runs past the window. A
// VarKey seen twice within one stream is a fatal input error, not a
// silent overwrite: one cohort file must carry at most one record per
// variant.
func streamVariants(ctx context.Context, logger *slog.Logger, vcfReader *vcfgo.Reader, db *store.DB, cohort Cohort, opts Options, win *window) error {
	seen := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		variant := vcfReader.Read()
		if variant == nil {
			break
		}

		chrom, err := keys.Canonicalize(variant.Chromosome)
		if err != nil {
			continue
		}

		if win != nil {
			if chrom != win.chrom {
				break
			}
			pos := int64(variant.Pos)
			if pos <= win.beg {
				continue
			}
			if pos > win.end {
				break
			}
		}

		if variant.Filter != "PASS" && variant.Filter != "." {
			continue
		}
		if len(variant.Alt()) != 1 {
			continue
		}

		extract := extractSubFrequency
		if chrom == "MT" {
			extract = extractMTSubFrequency
		}

		sub, err := extract(variant, opts)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping variant", "chrom", chrom, "pos", variant.Pos, "error", err)
			}
			continue
		}

		rec := records.FrequencyRecord{Chrom: chrom, Pos: int64(variant.Pos), Ref: variant.Ref(), Alt: variant.Alt()[0]}
		if cohort == CohortExomes {
			rec.Exomes = sub
		} else {
			rec.Genomes = sub
		}

		rec.Filters = extractFilters(variant)
		if opts.VEP {
			rec.VEP = infoStringSlice(variant, "vep")
		}
		if opts.VarInfo {
			rec.VariantInfo = extractVariantInfo(variant)
		}
		if opts.EffectInfo {
			rec.EffectInfo = extractEffectInfo(variant)
		}
		if opts.Quality {
			rec.Quality = extractQualityInfo(variant)
		}
		if opts.AgeHists {
			rec.AgeHists = extractAgeInfo(variant)
		}
		if opts.DepthDetails {
			rec.DepthDetails = extractDepthInfo(variant)
		}

		key, err := keys.VarKey(chrom, rec.Pos, rec.Ref, rec.Alt)
		if err != nil {
			continue
		}

		if _, dup := seen[string(key)]; dup {
			return fmt.Errorf("%w: %s:%d:%s:%s seen twice in one stream", errs.ErrDuplicateKeyInStream, chrom, rec.Pos, rec.Ref, rec.Alt)
		}
		seen[string(key)] = struct{}{}

		enc, err := rec.Encode()
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrDecodeFailure, err)
		}

		if err := db.Put(store.DataBucket, key, enc); err != nil {
			return err
		}
	}

	if err := vcfReader.Error(); err != nil && err != io.EOF {
		return fmt.Errorf("vcf reader error: %w", err)
	}

	return nil
}

func infoFloat(variant *vcfgo.Variant, key string) (float32, bool) {
	v, err := variant.Info().Get(key)
	if err != nil {
		return 0, false
	}
	switch vv := v.(type) {
	case []float32:
		if len(vv) > 0 {
			return vv[0], true
		}
	case float32:
		return vv, true
	case float64:
		return float32(vv), true
	}
	return 0, false
}

func infoInt(variant *vcfgo.Variant, key string) (int32, bool) {
	v, err := variant.Info().Get(key)
	if err != nil {
		return 0, false
	}
	switch vv := v.(type) {
	case []int:
		if len(vv) > 0 {
			return int32(vv[0]), true
		}
	case int:
		return int32(vv), true
	case int64:
		return int32(vv), true
	}
	return 0, false
}

func infoString(variant *vcfgo.Variant, key string) (string, bool) {
	v, err := variant.Info().Get(key)
	if err != nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func infoStringSlice(variant *vcfgo.Variant, key string) []string {
	v, err := variant.Info().Get(key)
	if err != nil {
		return nil
	}
	switch vv := v.(type) {
	case []string:
		return vv
	case string:
		return []string{vv}
	}
	return nil
}

func infoIntSlice(variant *vcfgo.Variant, key string) []int32 {
	v, err := variant.Info().Get(key)
	if err != nil {
		return nil
	}
	switch vv := v.(type) {
	case []int32:
		return vv
	case []int:
		out := make([]int32, len(vv))
		for i, x := range vv {
			out[i] = int32(x)
		}
		return out
	}
	return nil
}

// infoFlag reports whether a VCF Flag-type INFO key is present; absence
// means false, the same convention vcfgo uses for Flag fields.
func infoFlag(variant *vcfgo.Variant, key string) bool {
	v, err := variant.Info().Get(key)
	if err != nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

// extractFilters reads the INFO/filters array gnomAD v3 attaches to
// every record, normalizing any value outside the known vocabulary to
// records.UnknownFilterSentinel rather than rejecting the variant: an
// upstream filter-name change should flag the anomaly, not drop rows
// from an import that otherwise succeeded.
func extractFilters(variant *vcfgo.Variant) []string {
	raw := infoStringSlice(variant, "filters")
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, len(raw))
	for i, f := range raw {
		out[i] = records.NormalizeFilter(f)
	}
	return out
}

// extractVariantInfo mirrors gnomAD v3's extract_variant_info, including
// its re-use of the n_alt_alleles/was_mixed INFO keys for both
// var_dp/monoallelic and their nominal counterparts.
func extractVariantInfo(variant *vcfgo.Variant) *records.VariantInfo {
	variantType, _ := infoString(variant, "variant_type")
	alleleType, _ := infoString(variant, "allele_type")
	nAltAlleles, _ := infoInt(variant, "n_alt_alleles")
	varDP, _ := infoInt(variant, "n_alt_alleles")

	return &records.VariantInfo{
		VariantType: variantType,
		AlleleType:  alleleType,
		NAltAlleles: nAltAlleles,
		WasMixed:    infoFlag(variant, "was_mixed"),
		Monoallelic: infoFlag(variant, "was_mixed"),
		VarDP:       varDP,
	}
}

func extractEffectInfo(variant *vcfgo.Variant) *records.EffectInfo {
	primateAI, _ := infoFloat(variant, "primate_ai_score")
	revel, _ := infoFloat(variant, "revel_score")
	spliceAIMaxDS, _ := infoFloat(variant, "splice_ai_max_ds")
	spliceAIConsequence, _ := infoString(variant, "splice_ai_consequence")
	caddRaw, _ := infoFloat(variant, "cadd_raw")
	caddPhred, _ := infoFloat(variant, "cadd_phred")

	return &records.EffectInfo{
		PrimateAIScore:      primateAI,
		RevelScore:          revel,
		SpliceAIMaxDS:       spliceAIMaxDS,
		SpliceAIConsequence: spliceAIConsequence,
		CADDRaw:             caddRaw,
		CADDPhred:           caddPhred,
	}
}

func extractQualityInfo(variant *vcfgo.Variant) *records.QualityInfo {
	asFS, _ := infoFloat(variant, "AS_FS")
	inbreedingCoeff, _ := infoFloat(variant, "InbreedingCoeff")
	asMQ, _ := infoFloat(variant, "AS_MQ")
	mqRankSum, _ := infoFloat(variant, "MQRankSum")
	asMQRankSum, _ := infoFloat(variant, "AS_MQRankSum")
	asQD, _ := infoFloat(variant, "AS_QD")
	readPosRankSum, _ := infoFloat(variant, "ReadPosRankSum")
	asReadPosRankSum, _ := infoFloat(variant, "AS_ReadPosRankSum")
	asSOR, _ := infoFloat(variant, "AS_SOR")
	asVQSLOD, _ := infoFloat(variant, "AS_VQSLOD")
	asCulprit, _ := infoString(variant, "AS_culprit")
	asPabMax, _ := infoFloat(variant, "AS_pab_max")
	asQualApprox, _ := infoInt(variant, "AS_QUALapprox")
	asSBTable, _ := infoString(variant, "AS_SB_TABLE")

	return &records.QualityInfo{
		ASFS:                 asFS,
		InbreedingCoeff:      inbreedingCoeff,
		ASMQ:                 asMQ,
		MQRankSum:            mqRankSum,
		ASMQRankSum:          asMQRankSum,
		ASQD:                 asQD,
		ReadPosRankSum:       readPosRankSum,
		ASReadPosRankSum:     asReadPosRankSum,
		ASSOR:                asSOR,
		PositiveTrainSite:    infoFlag(variant, "POSITIVE_TRAIN_SITE"),
		NegativeTrainSite:    infoFlag(variant, "NEGATIVE_TRAIN_SITE"),
		ASVQSLOD:             asVQSLOD,
		ASCulprit:            asCulprit,
		SegDup:               infoFlag(variant, "seqdup"),
		LCR:                  infoFlag(variant, "lcr"),
		TransmittedSingleton: infoFlag(variant, "transmitted_singleton"),
		ASPabMax:             asPabMax,
		ASQualApprox:         asQualApprox,
		ASSBTable:            asSBTable,
	}
}

func extractAgeInfo(variant *vcfgo.Variant) *records.AgeInfo {
	homNSmaller, _ := infoInt(variant, "age_hist_hom_n_smaller")
	homNLarger, _ := infoInt(variant, "age_hist_hom_n_larger")
	hetNSmaller, _ := infoInt(variant, "age_hist_het_n_smaller")
	hetNLarger, _ := infoInt(variant, "age_hist_het_n_larger")

	return &records.AgeInfo{
		AgeHistHomBinFreq:  infoIntSlice(variant, "age_hist_hom_bin_freq"),
		AgeHistHomNSmaller: homNSmaller,
		AgeHistHomNLarger:  homNLarger,
		AgeHistHetBinFreq:  infoIntSlice(variant, "age_hist_het_bin_freq"),
		AgeHistHetNSmaller: hetNSmaller,
		AgeHistHetNLarger:  hetNLarger,
	}
}

func extractDepthInfo(variant *vcfgo.Variant) *records.DepthInfo {
	allNLarger, _ := infoInt(variant, "dp_hist_all_n_larger")
	altNLarger, _ := infoInt(variant, "dp_hist_alt_n_larger")

	return &records.DepthInfo{
		DPHistAllNLarger: allNLarger,
		DPHistAltNLarger: altNLarger,
		DPHistAllBinFreq: infoIntSlice(variant, "dp_hist_all_bin_freq"),
		DPHistAltBinFreq: infoIntSlice(variant, "dp_hist_alt_bin_freq"),
	}
}

// extractSubFrequency builds one cohort's SubFrequency from the
// variant's gnomAD-style INFO fields: AC/AN/nhomalt/AF overall,
// optionally XX/XY splits and per-population splits.
func extractSubFrequency(variant *vcfgo.Variant, opts Options) (*records.SubFrequency, error) {
	ac, ok := infoInt(variant, "AC")
	if !ok {
		return nil, fmt.Errorf("missing AC")
	}
	an, ok := infoInt(variant, "AN")
	if !ok {
		return nil, fmt.Errorf("missing AN")
	}
	nhomalt, _ := infoInt(variant, "nhomalt")
	af, _ := infoFloat(variant, "AF")

	sub := &records.SubFrequency{
		Counts: records.Counts{AC: ac, AN: an, NHomAlt: nhomalt, AF: af},
	}

	if acXX, ok := infoInt(variant, "AC_XX"); ok {
		anXX, _ := infoInt(variant, "AN_XX")
		acXY, _ := infoInt(variant, "AC_XY")
		anXY, _ := infoInt(variant, "AN_XY")
		sub.Sex = &records.SexSplit{
			Overall: sub.Counts,
			XX:      records.Counts{AC: acXX, AN: anXX},
			XY:      records.Counts{AC: acXY, AN: anXY},
		}
	}

	if opts.GlobalCohortPops || opts.AllCohorts {
		pops := make(map[string]records.Counts)
		for _, pop := range records.Populations {
			popAC, ok := infoInt(variant, "AC_"+pop)
			if !ok {
				continue
			}
			pops[pop] = records.Counts{
				AC:      popAC,
				AN:      firstInt(infoInt(variant, "AN_"+pop)),
				NHomAlt: firstInt(infoInt(variant, "nhomalt_"+pop)),
				AF:      firstFloat(infoFloat(variant, "AF_"+pop)),
			}
		}
		if len(pops) > 0 {
			sub.Populations = pops
		}
	}

	return sub, nil
}

func firstInt(v int32, _ bool) int32       { return v }
func firstFloat(v float32, _ bool) float32 { return v }

// mtPopulationOrder is the population each pipe-delimited slot of gnomAD
// mtDNA's pop_AF_het/pop_AF_hom INFO fields corresponds to, in order.
// No slot maps to "ami", so the ami entry of records.Populations is never
// filled for mtDNA records.
var mtPopulationOrder = []string{"afr", "amr", "asj", "eas", "fin", "nfe", "oth", "sas", "mid"}

// extractMTSubFrequency builds a mitochondrial cohort's SubFrequency.
// gnomAD's mtDNA release has no AC/AN genotype counts (heteroplasmy has
// no fixed ploidy): frequency is the sum of heteroplasmic (AF_het) and
// homoplasmic (AF_hom) fractions instead, overall and per population.
func extractMTSubFrequency(variant *vcfgo.Variant, _ Options) (*records.SubFrequency, error) {
	het, ok := infoFloat(variant, "AF_het")
	if !ok {
		return nil, fmt.Errorf("missing AF_het")
	}
	hom, ok := infoFloat(variant, "AF_hom")
	if !ok {
		return nil, fmt.Errorf("missing AF_hom")
	}

	sub := &records.SubFrequency{Counts: records.Counts{AF: het + hom}}

	popHet, errHet := variant.Info().Get("pop_AF_het")
	popHom, errHom := variant.Info().Get("pop_AF_hom")
	if errHet != nil || errHom != nil {
		return sub, nil
	}

	hetList, hetOK := popHet.(string)
	homList, homOK := popHom.(string)
	if !hetOK || !homOK {
		return sub, nil
	}

	totals := mtPopulationFrequencies(hetList, homList)
	if len(totals) > 0 {
		sub.Populations = totals
	}

	return sub, nil
}

func mtPopulationFrequencies(hetList, homList string) map[string]records.Counts {
	totals := make(map[string]float64, len(mtPopulationOrder))

	for i, s := range strings.Split(hetList, "|") {
		if i >= len(mtPopulationOrder) {
			break
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			totals[mtPopulationOrder[i]] += v
		}
	}
	for i, s := range strings.Split(homList, "|") {
		if i >= len(mtPopulationOrder) {
			break
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			totals[mtPopulationOrder[i]] += v
		}
	}

	pops := make(map[string]records.Counts, len(totals))
	for pop, af := range totals {
		pops[pop] = records.Counts{AF: float32(af)}
	}
	return pops
}
