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
	"github.com/zymatik-com/annonars/internal/records/wire"
	"github.com/zymatik-com/annonars/internal/schema"
)

// ConservationRow is one per-(transcript,window) UCSC conservation score
// row. Scores carries whichever metric columns the source track provides
// (phyloP, phastCons, GERP, ...) keyed by their upstream column name --
// which track(s) a given conservation export carries varies file to file,
// which is why the column set is inferred per import rather than fixed
// here (see internal/importer/textimport.ImportConservation).
type ConservationRow struct {
	Chrom      string             `json:"chrom"`
	Start      int64              `json:"start"`
	Stop       int64              `json:"stop"`
	HGNCID     string             `json:"hgnc_id,omitempty"`
	Transcript string             `json:"transcript,omitempty"`
	Scores     map[string]float64 `json:"scores"`
}

// ConservationRecordList is the value stored at a single PosKey: every row
// whose window covers that position, plus the score-column schema (shared
// across every row in the list) those rows were encoded under.
type ConservationRecordList struct {
	ScoreSchema *schema.Schema    `json:"-"`
	Rows        []ConservationRow `json:"rows"`
}

const (
	tagConsRowChrom = iota + 1
	tagConsRowStart
	tagConsRowStop
	tagConsRowHGNCID
	tagConsRowTranscript
	tagConsRowScores
	tagConsListRow
	tagConsListSchemaCol

	tagConsSchemaColName
	tagConsSchemaColType
)

// encode serializes one row's fixed fields plus its Scores under s, the
// list's shared score-column schema, via schema.EncodeRow's bitmask-prefixed
// row codec.
func (r ConservationRow) encode(s *schema.Schema) ([]byte, error) {
	w := wire.NewWriter()
	w.WriteString(tagConsRowChrom, r.Chrom)
	w.WriteInt64(tagConsRowStart, r.Start)
	w.WriteInt64(tagConsRowStop, r.Stop)
	w.WriteString(tagConsRowHGNCID, r.HGNCID)
	w.WriteString(tagConsRowTranscript, r.Transcript)

	row := make(schema.Row, len(s.Columns))
	for i, col := range s.Columns {
		v, ok := r.Scores[col]
		if !ok {
			row[i] = schema.Value{Null: true}
			continue
		}
		if s.Types[i] == schema.ColumnInteger {
			row[i] = schema.Value{Int: int32(v)}
		} else {
			row[i] = schema.Value{Float64: v}
		}
	}

	encRow, err := s.EncodeRow(row)
	if err != nil {
		return nil, err
	}
	w.WriteMessage(tagConsRowScores, encRow)

	return w.Bytes(), nil
}

func decodeConservationRow(b []byte, s *schema.Schema) (ConservationRow, error) {
	fields, err := wire.NewReader(b).Fields()
	if err != nil {
		return ConservationRow{}, err
	}

	var r ConservationRow
	if p, ok := fields[tagConsRowChrom]; ok {
		r.Chrom = wire.ParseString(p[0])
	}
	if p, ok := fields[tagConsRowStart]; ok {
		if r.Start, err = wire.ParseInt64(p[0]); err != nil {
			return ConservationRow{}, err
		}
	}
	if p, ok := fields[tagConsRowStop]; ok {
		if r.Stop, err = wire.ParseInt64(p[0]); err != nil {
			return ConservationRow{}, err
		}
	}
	if p, ok := fields[tagConsRowHGNCID]; ok {
		r.HGNCID = wire.ParseString(p[0])
	}
	if p, ok := fields[tagConsRowTranscript]; ok {
		r.Transcript = wire.ParseString(p[0])
	}

	r.Scores = make(map[string]float64, len(s.Columns))
	if p, ok := fields[tagConsRowScores]; ok && len(s.Columns) > 0 {
		row, err := s.DecodeRow(p[0])
		if err != nil {
			return ConservationRow{}, err
		}
		for i, col := range s.Columns {
			if row[i].Null {
				continue
			}
			if s.Types[i] == schema.ColumnInteger {
				r.Scores[col] = float64(row[i].Int)
			} else {
				r.Scores[col] = row[i].Float64
			}
		}
	}

	return r, nil
}

// Encode serializes the RecordList: the score-column schema once, as a
// sequence of (name, type) pairs, followed by each row encoded against it.
func (l ConservationRecordList) Encode() ([]byte, error) {
	s := l.ScoreSchema
	if s == nil {
		s = &schema.Schema{}
	}

	w := wire.NewWriter()

	for i, col := range s.Columns {
		cw := wire.NewWriter()
		cw.WriteString(tagConsSchemaColName, col)
		cw.WriteInt32(tagConsSchemaColType, int32(s.Types[i]))
		w.WriteMessage(tagConsListSchemaCol, cw.Bytes())
	}

	for _, row := range l.Rows {
		enc, err := row.encode(s)
		if err != nil {
			return nil, err
		}
		w.WriteMessage(tagConsListRow, enc)
	}

	return w.Bytes(), nil
}

// DecodeConservationRecordList is the inverse of Encode.
func DecodeConservationRecordList(b []byte) (*ConservationRecordList, error) {
	reader := wire.NewReader(b)

	var cols []string
	var types []schema.ColumnType
	var rowPayloads [][]byte

	for {
		f, ok, err := reader.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		switch f.Tag {
		case tagConsListSchemaCol:
			cf, err := wire.NewReader(f.Payload).Fields()
			if err != nil {
				return nil, err
			}

			var name string
			if p, ok := cf[tagConsSchemaColName]; ok {
				name = wire.ParseString(p[0])
			}

			var t int32
			if p, ok := cf[tagConsSchemaColType]; ok {
				if t, err = wire.ParseInt32(p[0]); err != nil {
					return nil, err
				}
			}

			cols = append(cols, name)
			types = append(types, schema.ColumnType(t))
		case tagConsListRow:
			rowPayloads = append(rowPayloads, f.Payload)
		}
	}

	s := &schema.Schema{Columns: cols, Types: types}

	l := &ConservationRecordList{ScoreSchema: s}
	for _, p := range rowPayloads {
		row, err := decodeConservationRow(p, s)
		if err != nil {
			return nil, err
		}
		l.Rows = append(l.Rows, row)
	}

	return l, nil
}
