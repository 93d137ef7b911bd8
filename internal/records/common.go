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

// Package records defines the fixed per-dataset typed record shapes stored
// in the data column families, each with a length-delimited binary
// encoding (internal/records/wire) and a matching JSON projection for HTTP
// responses. Records are created once at import time and never mutated in
// place; the only legal mutation is merge-on-import (see ReferenceAssertion
// sorting and the cohort-merge helpers in the SV records).
package records

import (
	"fmt"
	"sort"
)

// ClinicalSignificance mirrors ClinVar's aggregate review categories.
// SortAssertions orders assertions by significanceRank below (benign
// lowest, pathogenic highest) first, then by reviewRank.
type ClinicalSignificance string

const (
	SignificanceBenign           ClinicalSignificance = "BENIGN"
	SignificanceLikelyBenign     ClinicalSignificance = "LIKELY_BENIGN"
	SignificanceUncertain        ClinicalSignificance = "UNCERTAIN_SIGNIFICANCE"
	SignificanceLikelyPathogenic ClinicalSignificance = "LIKELY_PATHOGENIC"
	SignificancePathogenic       ClinicalSignificance = "PATHOGENIC"
	SignificanceConflicting      ClinicalSignificance = "CONFLICTING_INTERPRETATIONS"
	SignificanceNotProvided      ClinicalSignificance = "NOT_PROVIDED"
	SignificanceDrugResponse     ClinicalSignificance = "DRUG_RESPONSE"
	SignificanceAssociation      ClinicalSignificance = "ASSOCIATION"
	SignificanceRiskFactor       ClinicalSignificance = "RISK_FACTOR"
	SignificanceProtectiveFactor ClinicalSignificance = "PROTECTIVE"
	SignificanceAffectsFunction  ClinicalSignificance = "AFFECTS"
	SignificanceOther            ClinicalSignificance = "OTHER"
)

// ReviewStatus mirrors ClinVar's star-rating review statuses, from weakest
// to strongest.
type ReviewStatus string

const (
	ReviewStatusNoAssertion        ReviewStatus = "NO_ASSERTION_PROVIDED"
	ReviewStatusNoCriteria         ReviewStatus = "NO_ASSERTION_CRITERIA_PROVIDED"
	ReviewStatusConflicting        ReviewStatus = "CRITERIA_PROVIDED_CONFLICTING"
	ReviewStatusCriteriaProvided   ReviewStatus = "CRITERIA_PROVIDED"
	ReviewStatusMultipleNoConflict ReviewStatus = "CRITERIA_PROVIDED_MULTIPLE_SUBMITTERS"
	ReviewStatusExpertPanel        ReviewStatus = "REVIEWED_BY_EXPERT_PANEL"
	ReviewStatusPracticeGuideline  ReviewStatus = "PRACTICE_GUIDELINE"
)

var significanceRank = map[ClinicalSignificance]int{
	SignificanceBenign:           0,
	SignificanceLikelyBenign:     1,
	SignificanceUncertain:        2,
	SignificanceConflicting:      3,
	SignificanceNotProvided:      3,
	SignificanceOther:            3,
	SignificanceAssociation:      4,
	SignificanceDrugResponse:     4,
	SignificanceAffectsFunction:  4,
	SignificanceProtectiveFactor: 4,
	SignificanceRiskFactor:       4,
	SignificanceLikelyPathogenic: 5,
	SignificancePathogenic:       6,
}

var reviewRank = map[ReviewStatus]int{
	ReviewStatusNoAssertion:        0,
	ReviewStatusNoCriteria:         1,
	ReviewStatusConflicting:        2,
	ReviewStatusCriteriaProvided:   3,
	ReviewStatusMultipleNoConflict: 4,
	ReviewStatusExpertPanel:        5,
	ReviewStatusPracticeGuideline:  6,
}

// ReferenceAssertion is one ClinVar submission (RCV) against a variant or
// structural variant (VCV).
type ReferenceAssertion struct {
	RCV                  string               `json:"rcv"`
	Title                string               `json:"title"`
	ClinicalSignificance ClinicalSignificance `json:"clinical_significance"`
	ReviewStatus         ReviewStatus         `json:"review_status"`
}

// SortAssertions orders a list of assertions by (clinical_significance,
// review_status), both ascending by rank. Unknown values sort first
// (rank -1) so malformed upstream data never silently outranks
// well-formed data.
func SortAssertions(assertions []ReferenceAssertion) {
	sort.SliceStable(assertions, func(i, j int) bool {
		si, sj := significanceRank[assertions[i].ClinicalSignificance], significanceRank[assertions[j].ClinicalSignificance]
		if _, ok := significanceRank[assertions[i].ClinicalSignificance]; !ok {
			si = -1
		}
		if _, ok := significanceRank[assertions[j].ClinicalSignificance]; !ok {
			sj = -1
		}
		if si != sj {
			return si < sj
		}

		ri, rj := reviewRank[assertions[i].ReviewStatus], reviewRank[assertions[j].ReviewStatus]
		if _, ok := reviewRank[assertions[i].ReviewStatus]; !ok {
			ri = -1
		}
		if _, ok := reviewRank[assertions[j].ReviewStatus]; !ok {
			rj = -1
		}
		return ri < rj
	})
}

// MergeAssertions appends newly seen assertions to existing ones, then
// re-sorts canonically. An incoming assertion equal to one already
// present (same rcv, title, significance, and review status) is dropped
// rather than appended, so re-importing the same input produces the same
// stored list.
func MergeAssertions(existing, incoming []ReferenceAssertion) []ReferenceAssertion {
	merged := make([]ReferenceAssertion, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)

	for _, in := range incoming {
		have := false
		for _, a := range merged {
			if a == in {
				have = true
				break
			}
		}
		if !have {
			merged = append(merged, in)
		}
	}

	SortAssertions(merged)
	return merged
}

func validateFrequency(af float64) error {
	if af < 0 || af > 1 {
		return fmt.Errorf("frequency %f out of [0,1]", af)
	}
	return nil
}

func validateCount(n int32) error {
	if n < 0 {
		return fmt.Errorf("count %d is negative", n)
	}
	return nil
}
