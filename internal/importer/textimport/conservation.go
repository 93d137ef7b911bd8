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
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/zymatik-com/annonars/internal/compress"
	"github.com/zymatik-com/annonars/internal/keys"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/schema"
	"github.com/zymatik-com/annonars/internal/store"
)

// conservationFixedColumns names the columns conservation.go interprets
// itself; every other header column is a conservation metric (phyloP,
// phastCons, GERP, ...) whose presence and type vary track to track, so
// it is schema-inferred rather than hardcoded.
var conservationFixedColumns = map[string]bool{
	"chrom": true, "start": true, "stop": true, "hgnc_id": true, "transcript": true,
}

// readConservationTable reads a whole headered TSV into memory: schema
// inference needs to see every row's cells before a type can be assigned
// to a column, so there's no way to stream-infer and decode in one pass.
func readConservationTable(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("could not read header: %w", err)
	}
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
	}

	var rows [][]string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("could not read row: %w", err)
		}
		rows = append(rows, row)
	}

	return header, rows, nil
}

// ImportConservation reads one UCSC conservation TSV, sorted by (chrom,
// start) in the upstream file, and groups consecutive rows sharing a
// PosKey into one ConservationRecordList before writing. A row whose
// PosKey differs from the pending group's flushes the pending group
// first; this relies on the input already being position-sorted, which
// is true of every upstream UCSC conservation export.
//
// Columns beyond chrom/start/stop/hgnc_id/transcript are treated as
// conservation score metrics: their names and types are inferred with
// schema.Infer from the file itself, and every row is encoded against
// that inferred schema rather than a fixed column set.
func ImportConservation(logger *slog.Logger, db *store.DB, path string) error {
	rc, err := compress.OpenFile(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	header, rawRows, err := readConservationTable(rc)
	if err != nil {
		return err
	}

	fixedIdx := make(map[string]int, len(conservationFixedColumns))
	var scoreHeader []string
	var scoreColIdx []int
	for i, name := range header {
		if conservationFixedColumns[name] {
			fixedIdx[name] = i
			continue
		}
		scoreHeader = append(scoreHeader, name)
		scoreColIdx = append(scoreColIdx, i)
	}

	for _, want := range []string{"chrom", "start", "stop"} {
		if _, ok := fixedIdx[want]; !ok {
			return fmt.Errorf("missing required column %q", want)
		}
	}

	scoreRows := make([][]string, len(rawRows))
	for i, row := range rawRows {
		cells := make([]string, len(scoreColIdx))
		for j, idx := range scoreColIdx {
			if idx < len(row) {
				cells[j] = row[idx]
			}
		}
		scoreRows[i] = cells
	}

	scoreSchema, err := schema.Infer(scoreHeader, scoreRows, nil)
	if err != nil {
		return fmt.Errorf("could not infer conservation score schema: %w", err)
	}

	cellAt := func(row []string, name string) string {
		idx, ok := fixedIdx[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var pendingKey []byte
	var pendingRows []records.ConservationRow

	flush := func() error {
		if pendingKey == nil {
			return nil
		}
		list := records.ConservationRecordList{ScoreSchema: scoreSchema, Rows: pendingRows}
		enc, err := list.Encode()
		if err != nil {
			return err
		}
		return db.Put(store.DataBucket, pendingKey, enc)
	}

	for i, row := range rawRows {
		chrom := cellAt(row, "chrom")

		start, err := strconv.ParseInt(cellAt(row, "start"), 10, 64)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping malformed conservation row", "error", err)
			}
			continue
		}
		stop, err := strconv.ParseInt(cellAt(row, "stop"), 10, 64)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping malformed conservation row", "error", err)
			}
			continue
		}

		parsed, err := scoreSchema.ParseRow(scoreRows[i], nil)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping conservation row", "chrom", chrom, "error", err)
			}
			continue
		}

		scores := make(map[string]float64, len(scoreSchema.Columns))
		for j, col := range scoreSchema.Columns {
			v := parsed[j]
			if v.Null {
				continue
			}
			switch scoreSchema.Types[j] {
			case schema.ColumnInteger:
				scores[col] = float64(v.Int)
			case schema.ColumnFloat:
				scores[col] = v.Float64
			}
		}

		key, err := keys.PosKey(chrom, start)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping conservation row", "chrom", chrom, "error", err)
			}
			continue
		}

		if pendingKey != nil && string(key) != string(pendingKey) {
			if err := flush(); err != nil {
				return err
			}
			pendingRows = nil
		}

		pendingKey = key
		pendingRows = append(pendingRows, records.ConservationRow{
			Chrom:      chrom,
			Start:      start,
			Stop:       stop,
			HGNCID:     cellAt(row, "hgnc_id"),
			Transcript: cellAt(row, "transcript"),
			Scores:     scores,
		})
	}

	return flush()
}
