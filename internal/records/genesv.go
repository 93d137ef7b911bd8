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

// CarrierCount is the per-(sex, population) carrier count for one cohort.
type CarrierCount struct {
	Cohort     string `json:"cohort"`
	Sex        string `json:"sex"`
	Population string `json:"population"`
	Carriers   int32  `json:"carriers"`
	Total      int32  `json:"total"`
}

// GeneSVCarrierCounts is the gene-level structural-variant carrier-count
// record (ExAC CNV / gnomAD-CNV / gnomAD-SV), keyed by SV id: the
// CNV/SV type, its interval bounds, and carrier counts broken down by
// cohort/sex/population.
type GeneSVCarrierCounts struct {
	SVID   string         `json:"sv_id"`
	Chrom  string         `json:"chrom"`
	Start  int64          `json:"start"`
	Stop   int64          `json:"stop"`
	SVType string         `json:"sv_type"`
	Counts []CarrierCount `json:"counts"`
}

// Encode uses a plain JSON encoding (see GeneClinVarAggregate.Encode for
// the rationale: this is a cold, per-gene lookup path).
func (r GeneSVCarrierCounts) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeGeneSVCarrierCounts is the inverse of Encode.
func DecodeGeneSVCarrierCounts(b []byte) (*GeneSVCarrierCounts, error) {
	r := &GeneSVCarrierCounts{}
	if err := json.Unmarshal(b, r); err != nil {
		return nil, err
	}
	return r, nil
}

// MergeCohort appends a cohort's carrier entry to the record. Merging the
// same (cohort, sex, population) tuple twice for one SV id within a single
// import is a DuplicateKeyInStream error at the importer layer, not here;
// this merge helper is intentionally dumb append-only.
func (r *GeneSVCarrierCounts) MergeCohort(c CarrierCount) {
	r.Counts = append(r.Counts, c)
}

// FunctionalRegion is a RefSeq functional-region record, keyed by the
// feature's GFF "ID" attribute.
type FunctionalRegion struct {
	ID              string `json:"id"`
	Chrom           string `json:"chrom"`
	Start           int64  `json:"start"`
	Stop            int64  `json:"stop"`
	Category        string `json:"category"`
	RegulatoryClass string `json:"regulatory_class,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// Encode uses a plain JSON encoding.
func (r FunctionalRegion) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeFunctionalRegion is the inverse of Encode.
func DecodeFunctionalRegion(b []byte) (*FunctionalRegion, error) {
	r := &FunctionalRegion{}
	if err := json.Unmarshal(b, r); err != nil {
		return nil, err
	}
	return r, nil
}
