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

// ClinVarMinimal is the compact per-variant ClinVar record keyed by VarKey:
// release, coordinates, VCV, and the sorted list of reference assertions.
type ClinVarMinimal struct {
	Release    string               `json:"release"`
	Chrom      string               `json:"chrom"`
	Start      int64                `json:"start"`
	Stop       int64                `json:"stop"`
	Ref        string               `json:"ref"`
	Alt        string               `json:"alt"`
	VCV        string               `json:"vcv"`
	Assertions []ReferenceAssertion `json:"assertions"`
}

const (
	tagCVRelease = iota + 1
	tagCVChrom
	tagCVStart
	tagCVStop
	tagCVRef
	tagCVAlt
	tagCVVCV
	tagCVAssertionRCV
	tagCVAssertionTitle
	tagCVAssertionSig
	tagCVAssertionReview
)

// Encode serializes the record, assuming Assertions is already canonically
// sorted (callers should call SortAssertions/MergeAssertions first).
func (r ClinVarMinimal) Encode() ([]byte, error) {
	w := wire.NewWriter()
	w.WriteString(tagCVRelease, r.Release)
	w.WriteString(tagCVChrom, r.Chrom)
	w.WriteInt64(tagCVStart, r.Start)
	w.WriteInt64(tagCVStop, r.Stop)
	w.WriteString(tagCVRef, r.Ref)
	w.WriteString(tagCVAlt, r.Alt)
	w.WriteString(tagCVVCV, r.VCV)

	for _, a := range r.Assertions {
		w.WriteString(tagCVAssertionRCV, a.RCV)
		w.WriteString(tagCVAssertionTitle, a.Title)
		w.WriteString(tagCVAssertionSig, string(a.ClinicalSignificance))
		w.WriteString(tagCVAssertionReview, string(a.ReviewStatus))
	}

	return w.Bytes(), nil
}

// DecodeClinVarMinimal is the inverse of Encode. Assertions are
// reconstructed in positional groups of four fields per assertion, which
// Encode always emits contiguously.
func DecodeClinVarMinimal(b []byte) (*ClinVarMinimal, error) {
	r := &ClinVarMinimal{}
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

		switch f.Tag {
		case tagCVRelease:
			r.Release = wire.ParseString(f.Payload)
		case tagCVChrom:
			r.Chrom = wire.ParseString(f.Payload)
		case tagCVStart:
			if r.Start, err = wire.ParseInt64(f.Payload); err != nil {
				return nil, err
			}
		case tagCVStop:
			if r.Stop, err = wire.ParseInt64(f.Payload); err != nil {
				return nil, err
			}
		case tagCVRef:
			r.Ref = wire.ParseString(f.Payload)
		case tagCVAlt:
			r.Alt = wire.ParseString(f.Payload)
		case tagCVVCV:
			r.VCV = wire.ParseString(f.Payload)
		case tagCVAssertionRCV:
			flush()
			cur = &ReferenceAssertion{RCV: wire.ParseString(f.Payload)}
		case tagCVAssertionTitle:
			if cur != nil {
				cur.Title = wire.ParseString(f.Payload)
			}
		case tagCVAssertionSig:
			if cur != nil {
				cur.ClinicalSignificance = ClinicalSignificance(wire.ParseString(f.Payload))
			}
		case tagCVAssertionReview:
			if cur != nil {
				cur.ReviewStatus = ReviewStatus(wire.ParseString(f.Payload))
			}
		}
	}
	flush()

	return r, nil
}
