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

// Package textimport imports line-oriented upstream feeds: ClinVar
// minimal (one reference assertion per JSONL line, read-modify-write
// keyed by VarKey), per-gene ClinVar aggregates, and UCSC conservation
// scores. Every reader in this package follows the same
// `Read() (*T, error)` streaming shape, returning io.EOF at end of
// input rather than a sentinel boolean.
package textimport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/zymatik-com/annonars/internal/compress"
	"github.com/zymatik-com/annonars/internal/errs"
	"github.com/zymatik-com/annonars/internal/keys"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

// clinVarMinimalLine mirrors one line of the upstream ClinVar minimal
// JSONL feed: one reference assertion against one small variant.
type clinVarMinimalLine struct {
	RCV                  string `json:"rcv"`
	VCV                  string `json:"vcv"`
	Title                string `json:"title"`
	ClinicalSignificance string `json:"clinical_significance"`
	ReviewStatus         string `json:"review_status"`
	SequenceLocation     struct {
		Assembly           string `json:"assembly"`
		Chr                string `json:"chr"`
		Start              *int64 `json:"start"`
		Stop               *int64 `json:"stop"`
		ReferenceAlleleVCF string `json:"reference_allele_vcf"`
		AlternateAlleleVCF string `json:"alternate_allele_vcf"`
	} `json:"sequence_location"`
}

// clinVarMinimalReader streams clinVarMinimalLine values out of a JSONL
// file, in the shared Read()-returns-io.EOF shape.
type clinVarMinimalReader struct {
	scanner *bufio.Scanner
}

func newClinVarMinimalReader(r io.Reader) *clinVarMinimalReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &clinVarMinimalReader{scanner: scanner}
}

func (r *clinVarMinimalReader) Read() (*clinVarMinimalLine, error) {
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec clinVarMinimalLine
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrInputFormat, err)
		}
		return &rec, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// ImportClinVarMinimal reads one ClinVar minimal JSONL file and writes
// one ClinVarMinimal record per VarKey into db, merging reference
// assertions across lines that share a key. Malformed lines and lines
// missing a usable ref/alt pair are logged and skipped.
func ImportClinVarMinimal(logger *slog.Logger, db *store.DB, path, release string) error {
	rc, err := compress.OpenFile(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	reader := newClinVarMinimalReader(rc)

	for {
		line, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if logger != nil {
				logger.Warn("skipping malformed clinvar-minimal line", "error", err)
			}
			continue
		}

		if err := importClinVarMinimalLine(db, *line, release); err != nil {
			if logger != nil {
				logger.Warn("skipping clinvar-minimal line", "vcv", line.VCV, "rcv", line.RCV, "error", err)
			}
		}
	}

	return nil
}

func importClinVarMinimalLine(db *store.DB, line clinVarMinimalLine, release string) error {
	loc := line.SequenceLocation
	if loc.ReferenceAlleleVCF == "" || loc.AlternateAlleleVCF == "" || loc.Start == nil || loc.Stop == nil {
		return fmt.Errorf("missing ref/alt/start/stop")
	}

	key, err := keys.VarKey(loc.Chr, *loc.Start, loc.ReferenceAlleleVCF, loc.AlternateAlleleVCF)
	if err != nil {
		return err
	}

	assertion := records.ReferenceAssertion{
		RCV:                  line.RCV,
		Title:                line.Title,
		ClinicalSignificance: records.ClinicalSignificance(line.ClinicalSignificance),
		ReviewStatus:         records.ReviewStatus(line.ReviewStatus),
	}

	return db.GetForUpdate(store.DataBucket, key, func(existing []byte) ([]byte, error) {
		var rec *records.ClinVarMinimal

		if existing != nil {
			decoded, err := records.DecodeClinVarMinimal(existing)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errs.ErrDecodeFailure, err)
			}
			rec = decoded
		} else {
			rec = &records.ClinVarMinimal{
				Release: release,
				Chrom:   loc.Chr,
				Start:   *loc.Start,
				Stop:    *loc.Stop,
				Ref:     loc.ReferenceAlleleVCF,
				Alt:     loc.AlternateAlleleVCF,
				VCV:     line.VCV,
			}
		}

		rec.Assertions = records.MergeAssertions(rec.Assertions, []records.ReferenceAssertion{assertion})

		return rec.Encode()
	})
}
