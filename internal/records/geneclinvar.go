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

import "encoding/json"

// GeneClinVarVariant is one variant reference within a per-release list.
type GeneClinVarVariant struct {
	VCV                  string               `json:"vcv"`
	Chrom                string               `json:"chrom"`
	Pos                  int64                `json:"pos"`
	Ref                  string               `json:"ref"`
	Alt                  string               `json:"alt"`
	ClinicalSignificance ClinicalSignificance `json:"clinical_significance"`
}

// GeneClinVarAggregate is the per-gene ClinVar aggregate record, keyed by
// HGNC id: counts by predicted impact, counts by frequency bucket, and a
// per-genome-release list of the underlying variants.
type GeneClinVarAggregate struct {
	HGNCID            string                          `json:"hgnc_id"`
	CountsByImpact    map[string]int32                `json:"counts_by_impact"`
	CountsByFrequency map[string]int32                `json:"counts_by_frequency"`
	VariantsByRelease map[string][]GeneClinVarVariant `json:"variants_by_release"`
}

// Encode uses a plain JSON encoding: this record is a flat pair of count
// maps plus a variant list, with no hot decode path (it backs a single
// per-gene HTTP lookup), so the extra indirection of the tagged wire
// format buys nothing here.
func (r GeneClinVarAggregate) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeGeneClinVarAggregate is the inverse of Encode.
func DecodeGeneClinVarAggregate(b []byte) (*GeneClinVarAggregate, error) {
	r := &GeneClinVarAggregate{}
	if err := json.Unmarshal(b, r); err != nil {
		return nil, err
	}
	return r, nil
}

// MergeVariant appends a variant to the release bucket it belongs to and
// bumps the impact count, unless that (release, VCV) pair is already
// recorded: re-importing the same extract must not grow the list or
// double any count. Duplicate VCVs across releases are legitimate (each
// release is its own coordinate system). It reports whether the variant
// was newly added, so callers can gate their own per-line counters the
// same way.
func (r *GeneClinVarAggregate) MergeVariant(release string, v GeneClinVarVariant) bool {
	for _, have := range r.VariantsByRelease[release] {
		if have.VCV == v.VCV {
			return false
		}
	}

	if r.VariantsByRelease == nil {
		r.VariantsByRelease = make(map[string][]GeneClinVarVariant)
	}
	r.VariantsByRelease[release] = append(r.VariantsByRelease[release], v)

	if r.CountsByImpact == nil {
		r.CountsByImpact = make(map[string]int32)
	}
	r.CountsByImpact[string(v.ClinicalSignificance)]++

	return true
}
