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
)

// ClinVarSV is the structural-variant ClinVar record, keyed by VCV string.
// Start/Stop are the representative bounds; Inner/Outer bounds are
// optional and only present when ClinVar reports them.
type ClinVarSV struct {
	VCV         string               `json:"vcv"`
	Chrom       string               `json:"chrom"`
	Start       int64                `json:"start"`
	Stop        int64                `json:"stop"`
	InnerStart  int64                `json:"inner_start,omitempty"`
	InnerStop   int64                `json:"inner_stop,omitempty"`
	OuterStart  int64                `json:"outer_start,omitempty"`
	OuterStop   int64                `json:"outer_stop,omitempty"`
	VariantType string               `json:"variant_type"`
	Assertions  []ReferenceAssertion `json:"assertions"`
}

// OverlayInterval returns the representative [start, stop) interval used
// by the interval overlay, preferring (start, stop), then
// (inner_start, inner_stop), then (outer_start, outer_stop). ok is false
// when none of the three pairs are usable.
func (r ClinVarSV) OverlayInterval() (start, stop int64, ok bool) {
	if r.Start != 0 || r.Stop != 0 {
		return r.Start, r.Stop, true
	}
	if r.InnerStart != 0 || r.InnerStop != 0 {
		return r.InnerStart, r.InnerStop, true
	}
	if r.OuterStart != 0 || r.OuterStop != 0 {
		return r.OuterStart, r.OuterStop, true
	}
	return 0, 0, false
}

const (
	tagSVVCV = iota + 1
	tagSVChrom
	tagSVStart
	tagSVStop
	tagSVInnerStart
	tagSVInnerStop
	tagSVOuterStart
	tagSVOuterStop
	tagSVVariantType
	tagSVAssertionRCV
	tagSVAssertionTitle
	tagSVAssertionSig
	tagSVAssertionReview
)

// Encode serializes the record, assuming Assertions is already canonically
// sorted.
func (r ClinVarSV) Encode() ([]byte, error) {
	w := wire.NewWriter()
	w.WriteString(tagSVVCV, r.VCV)
	w.WriteString(tagSVChrom, r.Chrom)
	w.WriteInt64(tagSVStart, r.Start)
	w.WriteInt64(tagSVStop, r.Stop)
	w.WriteInt64(tagSVInnerStart, r.InnerStart)
	w.WriteInt64(tagSVInnerStop, r.InnerStop)
	w.WriteInt64(tagSVOuterStart, r.OuterStart)
	w.WriteInt64(tagSVOuterStop, r.OuterStop)
	w.WriteString(tagSVVariantType, r.VariantType)

	for _, a := range r.Assertions {
		w.WriteString(tagSVAssertionRCV, a.RCV)
		w.WriteString(tagSVAssertionTitle, a.Title)
		w.WriteString(tagSVAssertionSig, string(a.ClinicalSignificance))
		w.WriteString(tagSVAssertionReview, string(a.ReviewStatus))
	}

	return w.Bytes(), nil
}

// DecodeClinVarSV is the inverse of Encode.
func DecodeClinVarSV(b []byte) (*ClinVarSV, error) {
	r := &ClinVarSV{}
	reader := wire.NewReader(b)

	var cur *ReferenceAssertion
	flush := func() {
		if cur != nil {
			r.Assertions = append(r.Assertions, *cur)
			cur = nil
		}
	}

	for {
		f, ok, err := reader.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		var err2 error
		switch f.Tag {
		case tagSVVCV:
			r.VCV = wire.ParseString(f.Payload)
		case tagSVChrom:
			r.Chrom = wire.ParseString(f.Payload)
		case tagSVStart:
			r.Start, err2 = wire.ParseInt64(f.Payload)
		case tagSVStop:
			r.Stop, err2 = wire.ParseInt64(f.Payload)
		case tagSVInnerStart:
			r.InnerStart, err2 = wire.ParseInt64(f.Payload)
		case tagSVInnerStop:
			r.InnerStop, err2 = wire.ParseInt64(f.Payload)
		case tagSVOuterStart:
			r.OuterStart, err2 = wire.ParseInt64(f.Payload)
		case tagSVOuterStop:
			r.OuterStop, err2 = wire.ParseInt64(f.Payload)
		case tagSVVariantType:
			r.VariantType = wire.ParseString(f.Payload)
		case tagSVAssertionRCV:
			flush()
			cur = &ReferenceAssertion{RCV: wire.ParseString(f.Payload)}
		case tagSVAssertionTitle:
			if cur != nil {
				cur.Title = wire.ParseString(f.Payload)
			}
		case tagSVAssertionSig:
			if cur != nil {
				cur.ClinicalSignificance = ClinicalSignificance(wire.ParseString(f.Payload))
			}
		case tagSVAssertionReview:
			if cur != nil {
				cur.ReviewStatus = ReviewStatus(wire.ParseString(f.Payload))
			}
		}
		if err2 != nil {
			return nil, err2
		}
	}
	flush()

	return r, nil
}
