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

// Package geneimport merges ~12 independent per-gene upstream feeds
// (HGNC core, ACMG SF, ClinGen, dbNSFP, gnomAD constraints, NCBI
// summary, OMIM, ORPHA, PanelApp, rCNV, sHet, GTEx, DOMINO, DECIPHER
// HI) into one records.GeneRecord per HGNC id. Every source is its own
// JSONL file keyed by hgnc_id and can be imported in any order: the
// HGNC core block is required by the record but not by import order,
// a gene record is created with a bare HGNCID the first time any
// source mentions it and the HGNC core source fills in the rest of
// the required block whenever it runs.
package geneimport

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

// hgncKeyed is implemented by every per-source line type, so
// importSource can dispatch the read-modify-write by id without each
// source needing its own merge boilerplate.
type hgncKeyed interface {
	hgncID() string
}

// readLines scans path as JSONL, decoding each non-empty line into a
// fresh T and invoking fn. Malformed lines are logged and skipped;
// this mirrors the other importers' skip-and-continue behavior rather
// than aborting a multi-gigabyte source over one bad row.
func readLines[T hgncKeyed](logger *slog.Logger, path string, fn func(T) error) error {
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

		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			if logger != nil {
				logger.Warn("skipping malformed gene source line", "error", err)
			}
			continue
		}

		if rec.hgncID() == "" {
			if logger != nil {
				logger.Warn("skipping gene source line missing hgnc_id")
			}
			continue
		}

		if err := fn(rec); err != nil {
			if logger != nil {
				logger.Warn("skipping gene source line", "hgnc_id", rec.hgncID(), "error", err)
			}
		}
	}

	return scanner.Err()
}

// mergeGene loads (or creates a stub for) the gene record keyed by
// hgncID and applies mutate to it before writing it back.
func mergeGene(db *store.DB, hgncID string, mutate func(*records.GeneRecord)) error {
	return db.GetForUpdate(store.DataBucket, []byte(hgncID), func(existing []byte) ([]byte, error) {
		var rec *records.GeneRecord

		if existing != nil {
			decoded, err := records.DecodeGeneRecord(existing)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errs.ErrDecodeFailure, err)
			}
			rec = decoded
		} else {
			rec = &records.GeneRecord{HGNC: records.HGNCCore{HGNCID: hgncID}}
		}

		mutate(rec)

		return rec.Encode()
	})
}

// importSource is the shared driver for every one-block-per-line
// source family: read path's JSONL lines of type T and fold each into
// the gene record it names via apply.
func importSource[T hgncKeyed](logger *slog.Logger, db *store.DB, path string, apply func(*records.GeneRecord, T)) error {
	return readLines(logger, path, func(line T) error {
		return mergeGene(db, line.hgncID(), func(rec *records.GeneRecord) {
			apply(rec, line)
		})
	})
}
