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

package svimport

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/brentp/vcfgo"

	"github.com/zymatik-com/annonars/internal/compress"
	"github.com/zymatik-com/annonars/internal/errs"
	"github.com/zymatik-com/annonars/internal/keys"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

// gnomadSVPopulations are the population codes whose AC_/AN_ INFO fields
// the gnomAD-SV importer reads, distinct from the small-variant
// Populations list (no "mid", and "eur" in place of "nfe"). "sas" is not
// in the list, so AC_sas/AN_sas fields are not read.
var gnomadSVPopulations = []string{"afr", "amr", "eas", "eur", "oth"}

// ImportGnomadSV reads one gnomAD-SV (v2 or v4) site VCF for a single
// cohort (e.g. "all", "controls", "non_neuro" for v2; a single "all" file
// for v4) and merges one GeneSVCarrierCounts entry per site into db,
// keyed by the VCF record's ID column. Re-running the import for a
// second cohort against the same store appends additional CarrierCount
// rows rather than overwriting.
func ImportGnomadSV(logger *slog.Logger, db *store.DB, path, cohort string) error {
	rc, err := compress.OpenFile(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	vcfReader, err := vcfgo.NewReader(rc, false)
	if err != nil {
		return fmt.Errorf("could not create vcf reader: %w", err)
	}

	for {
		variant := vcfReader.Read()
		if variant == nil {
			break
		}

		if err := importGnomadSVVariant(db, variant, cohort); err != nil {
			if logger != nil {
				logger.Warn("skipping gnomad-sv record", "id", variant.Id(), "error", err)
			}
		}
	}

	if err := vcfReader.Error(); err != nil && err != io.EOF {
		return fmt.Errorf("vcf reader error: %w", err)
	}

	return nil
}

func importGnomadSVVariant(db *store.DB, variant *vcfgo.Variant, cohort string) error {
	svID := variant.Id()
	if svID == "" {
		return fmt.Errorf("missing ID column")
	}

	chrom, err := keys.Canonicalize(variant.Chromosome)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrUnknownChromosome, err)
	}

	svType, _ := infoString(variant, "SVTYPE")
	end, _ := infoSVInt(variant, "END")
	if end == 0 {
		end = int64(variant.Pos)
	}

	counts := carrierCountsForCohort(variant, cohort)

	return db.GetForUpdate(store.DataBucket, []byte(svID), func(existing []byte) ([]byte, error) {
		var rec *records.GeneSVCarrierCounts

		if existing != nil {
			decoded, err := records.DecodeGeneSVCarrierCounts(existing)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errs.ErrDecodeFailure, err)
			}
			rec = decoded
		} else {
			rec = &records.GeneSVCarrierCounts{
				SVID:   svID,
				Chrom:  chrom,
				Start:  int64(variant.Pos),
				Stop:   end,
				SVType: svType,
			}
		}

		for _, c := range rec.Counts {
			if c.Cohort == cohort && c.Sex == "overall" && c.Population == "all" {
				return nil, fmt.Errorf("%w: cohort %q already recorded for sv %q", errs.ErrDuplicateKeyInStream, cohort, svID)
			}
		}

		for _, c := range counts {
			rec.MergeCohort(c)
		}

		return rec.Encode()
	})
}

// carrierCountsForCohort builds the overall, sex-split, and
// population-split CarrierCount rows for one cohort from a single
// gnomAD-SV INFO field set.
func carrierCountsForCohort(variant *vcfgo.Variant, cohort string) []records.CarrierCount {
	var out []records.CarrierCount

	if ac, ok := infoSVInt(variant, "AC"); ok {
		an, _ := infoSVInt(variant, "AN")
		out = append(out, records.CarrierCount{Cohort: cohort, Sex: "overall", Population: "all", Carriers: int32(ac), Total: int32(an)})
	}

	if acXX, ok := infoSVInt(variant, "AC_FEMALE"); ok {
		anXX, _ := infoSVInt(variant, "AN_FEMALE")
		out = append(out, records.CarrierCount{Cohort: cohort, Sex: "xx", Population: "all", Carriers: int32(acXX), Total: int32(anXX)})
	}
	if acXY, ok := infoSVInt(variant, "AC_MALE"); ok {
		anXY, _ := infoSVInt(variant, "AN_MALE")
		out = append(out, records.CarrierCount{Cohort: cohort, Sex: "xy", Population: "all", Carriers: int32(acXY), Total: int32(anXY)})
	}

	for _, pop := range gnomadSVPopulations {
		ac, ok := infoSVInt(variant, "AC_"+pop)
		if !ok {
			continue
		}
		an, _ := infoSVInt(variant, "AN_"+pop)
		out = append(out, records.CarrierCount{Cohort: cohort, Sex: "overall", Population: pop, Carriers: int32(ac), Total: int32(an)})
	}

	return out
}

func infoString(variant *vcfgo.Variant, key string) (string, bool) {
	v, err := variant.Info().Get(key)
	if err != nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func infoSVInt(variant *vcfgo.Variant, key string) (int64, bool) {
	v, err := variant.Info().Get(key)
	if err != nil {
		return 0, false
	}
	switch vv := v.(type) {
	case []int:
		if len(vv) > 0 {
			return int64(vv[0]), true
		}
	case int:
		return int64(vv), true
	case int64:
		return vv, true
	}
	return 0, false
}
