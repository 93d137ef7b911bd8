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

package textimport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/zymatik-com/annonars/internal/compress"
	"github.com/zymatik-com/annonars/internal/errs"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

// geneClinVarLine is one per-variant line of the upstream per-gene
// ClinVar extract: the variant plus the HGNC id of the gene it maps to,
// and the frequency bucket it falls in (used for counts_by_frequency).
type geneClinVarLine struct {
	HGNCID               string `json:"hgnc_id"`
	VCV                  string `json:"vcv"`
	Chrom                string `json:"chrom"`
	Pos                  int64  `json:"pos"`
	Ref                  string `json:"ref"`
	Alt                  string `json:"alt"`
	ClinicalSignificance string `json:"clinical_significance"`
	FrequencyBucket      string `json:"frequency_bucket"`
}

type geneClinVarReader struct {
	scanner *bufio.Scanner
}

func newGeneClinVarReader(r io.Reader) *geneClinVarReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &geneClinVarReader{scanner: scanner}
}

func (r *geneClinVarReader) Read() (*geneClinVarLine, error) {
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec geneClinVarLine
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

// ImportGeneClinVar reads one per-gene ClinVar JSONL extract and merges
// one GeneClinVarAggregate per HGNC id into db: each line contributes a
// variant to that release's list and bumps the impact/frequency counts.
func ImportGeneClinVar(logger *slog.Logger, db *store.DB, path, release string) error {
	rc, err := compress.OpenFile(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	reader := newGeneClinVarReader(rc)

	for {
		line, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if logger != nil {
				logger.Warn("skipping malformed gene-clinvar line", "error", err)
			}
			continue
		}

		if err := importGeneClinVarLine(db, *line, release); err != nil {
			if logger != nil {
				logger.Warn("skipping gene-clinvar line", "hgnc_id", line.HGNCID, "error", err)
			}
		}
	}

	return nil
}

func importGeneClinVarLine(db *store.DB, line geneClinVarLine, release string) error {
	if line.HGNCID == "" {
		return fmt.Errorf("missing hgnc_id")
	}

	key := []byte(line.HGNCID)

	return db.GetForUpdate(store.DataBucket, key, func(existing []byte) ([]byte, error) {
		var rec *records.GeneClinVarAggregate

		if existing != nil {
			decoded, err := records.DecodeGeneClinVarAggregate(existing)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errs.ErrDecodeFailure, err)
			}
			rec = decoded
		} else {
			rec = &records.GeneClinVarAggregate{HGNCID: line.HGNCID}
		}

		sig := records.ClinicalSignificance(line.ClinicalSignificance)
		added := rec.MergeVariant(release, records.GeneClinVarVariant{
			VCV:                  line.VCV,
			Chrom:                line.Chrom,
			Pos:                  line.Pos,
			Ref:                  line.Ref,
			Alt:                  line.Alt,
			ClinicalSignificance: sig,
		})

		if added && line.FrequencyBucket != "" {
			if rec.CountsByFrequency == nil {
				rec.CountsByFrequency = make(map[string]int32)
			}
			rec.CountsByFrequency[line.FrequencyBucket]++
		}

		return rec.Encode()
	})
}
