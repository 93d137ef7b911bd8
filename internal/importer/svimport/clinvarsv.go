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

// Package svimport imports structural-variant catalogs: ClinVar SV (one
// JSONL record per reference assertion, read-modify-write keyed by VCV,
// with a secondary RCV->VCV column family) and gnomAD-SV v2/v4 carrier
// counts (VCF, one or more cohort files merged by SV id). Both pipelines
// are serial -- SV catalogs are small enough that window-parallelism
// buys nothing and the read-modify-write merge would have to be
// serialized per key anyway.
package svimport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/zymatik-com/annonars/internal/compress"
	"github.com/zymatik-com/annonars/internal/errs"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

// RCVColumnFamily is the secondary column family mapping an RCV
// accession to the VCV it was last seen against.
const RCVColumnFamily = "clinvar-sv-by-rcv"

// clinvarSVLine mirrors one line of the upstream ClinVar SV JSONL feed:
// a single reference assertion against one VCV, with its full sequence
// location (representative + inner/outer bounds).
type clinvarSVLine struct {
	RCV                  string `json:"rcv"`
	VCV                  string `json:"vcv"`
	Title                string `json:"title"`
	ClinicalSignificance string `json:"clinical_significance"`
	ReviewStatus         string `json:"review_status"`
	VariantType          string `json:"variant_type"`
	SequenceLocation     struct {
		Assembly   string `json:"assembly"`
		Chr        string `json:"chr"`
		Start      *int64 `json:"start"`
		Stop       *int64 `json:"stop"`
		InnerStart *int64 `json:"inner_start"`
		InnerStop  *int64 `json:"inner_stop"`
		OuterStart *int64 `json:"outer_start"`
		OuterStop  *int64 `json:"outer_stop"`
	} `json:"sequence_location"`
}

// ClinVarSVOptions controls the minimum span (stop - start) used to
// distinguish a structural variant from a small one in feeds that carry
// both (a variant spanning less than MinVarSize belongs in
// clinvar-minimal, not here).
type ClinVarSVOptions struct {
	MinVarSize int64
}

// ImportClinVarSV reads one ClinVar SV JSONL file and writes one
// ClinVarSV record per VCV into db, merging reference assertions across
// lines that share a VCV and recording each RCV's owning VCV in the
// secondary column family. Malformed lines and lines lacking any usable
// start/stop pair are logged and skipped, per the family's lenient
// failure semantics.
func ImportClinVarSV(logger *slog.Logger, db *store.DB, path string, opts ClinVarSVOptions) error {
	if err := db.CreateColumnFamilies(RCVColumnFamily); err != nil {
		return err
	}

	rc, err := compress.OpenFile(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec clinvarSVLine
		if err := json.Unmarshal(line, &rec); err != nil {
			if logger != nil {
				logger.Warn("skipping malformed clinvar-sv line", "error", err)
			}
			continue
		}

		if err := importClinVarSVLine(db, rec, opts); err != nil {
			if logger != nil {
				logger.Warn("skipping clinvar-sv line", "vcv", rec.VCV, "rcv", rec.RCV, "error", err)
			}
			continue
		}
	}

	return scanner.Err()
}

func importClinVarSVLine(db *store.DB, line clinvarSVLine, opts ClinVarSVOptions) error {
	if line.VCV == "" || line.RCV == "" {
		return fmt.Errorf("missing rcv/vcv")
	}

	start, stop, innerStart, innerStop, outerStart, outerStop, ok := resolveBounds(line)
	if !ok {
		return fmt.Errorf("no usable start/stop")
	}

	if opts.MinVarSize > 0 && (stop-start) < opts.MinVarSize {
		return fmt.Errorf("variant smaller than min-var-size, belongs in clinvar-minimal")
	}

	assertion := records.ReferenceAssertion{
		RCV:                  line.RCV,
		Title:                line.Title,
		ClinicalSignificance: records.ClinicalSignificance(line.ClinicalSignificance),
		ReviewStatus:         records.ReviewStatus(line.ReviewStatus),
	}

	key := []byte(line.VCV)

	err := db.GetForUpdate(store.DataBucket, key, func(existing []byte) ([]byte, error) {
		var rec *records.ClinVarSV

		if existing != nil {
			decoded, err := records.DecodeClinVarSV(existing)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errs.ErrDecodeFailure, err)
			}
			rec = decoded
		} else {
			rec = &records.ClinVarSV{
				VCV:         line.VCV,
				Chrom:       line.SequenceLocation.Chr,
				Start:       start,
				Stop:        stop,
				InnerStart:  innerStart,
				InnerStop:   innerStop,
				OuterStart:  outerStart,
				OuterStop:   outerStop,
				VariantType: line.VariantType,
			}
		}

		rec.Assertions = records.MergeAssertions(rec.Assertions, []records.ReferenceAssertion{assertion})

		return rec.Encode()
	})
	if err != nil {
		return err
	}

	return db.Put(RCVColumnFamily, []byte(line.RCV), key)
}

// resolveBounds picks the representative (start, stop) pair from
// whichever of (start, stop), (inner_start, inner_stop),
// (outer_start, outer_stop) is present first, in that priority order,
// mirroring ClinVar's own preference for the tightest known bounds.
func resolveBounds(line clinvarSVLine) (start, stop, innerStart, innerStop, outerStart, outerStop int64, ok bool) {
	deref := func(p *int64) int64 {
		if p == nil {
			return 0
		}
		return *p
	}

	innerStart, innerStop = deref(line.SequenceLocation.InnerStart), deref(line.SequenceLocation.InnerStop)
	outerStart, outerStop = deref(line.SequenceLocation.OuterStart), deref(line.SequenceLocation.OuterStop)

	switch {
	case line.SequenceLocation.Start != nil && line.SequenceLocation.Stop != nil:
		return *line.SequenceLocation.Start, *line.SequenceLocation.Stop, innerStart, innerStop, outerStart, outerStop, true
	case line.SequenceLocation.InnerStart != nil && line.SequenceLocation.InnerStop != nil:
		return innerStart, innerStop, innerStart, innerStop, outerStart, outerStop, true
	case line.SequenceLocation.OuterStart != nil && line.SequenceLocation.OuterStop != nil:
		return outerStart, outerStop, innerStart, innerStop, outerStart, outerStop, true
	default:
		return 0, 0, 0, 0, 0, 0, false
	}
}
