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

// Package interval builds, once per release at startup, an in-memory
// augmentedtree.Tree per chromosome over the ClinVar structural-variant
// data column family, and answers reciprocal-overlap queries against it.
// Grounded on zymatik-com-nucleo/liftover's chainfile package, which
// builds the same per-chromosome augmentedtree.Tree shape over chain
// blocks; here the payload is a ClinVar SV record instead of a chain.
package interval

import (
	"hash/fnv"
	"sort"

	"github.com/Workiva/go-datastructures/augmentedtree"

	"github.com/zymatik-com/annonars/internal/keys"
	"github.com/zymatik-com/annonars/internal/query"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

// entry adapts a decoded ClinVarSV record to augmentedtree.Interval. Every
// entry in a given chromosome's tree is built with OverlapsAtDimension
// always true: the tree only prunes on [low, high), the actual
// reciprocal-overlap ratio is computed and filtered by Query afterward.
type entry struct {
	rec         *records.ClinVarSV
	start, stop int64
}

func (e *entry) LowAtDimension(uint64) int64  { return e.start }
func (e *entry) HighAtDimension(uint64) int64 { return e.stop }
func (e *entry) OverlapsAtDimension(augmentedtree.Interval, uint64) bool {
	return true
}
func (e *entry) ID() uint64 {
	h := fnv.New64a()
	h.Write([]byte(e.rec.VCV))
	return h.Sum64()
}

// queryInterval is the probe interval handed to Tree.Query.
type queryInterval struct{ start, stop int64 }

func (q *queryInterval) LowAtDimension(uint64) int64  { return q.start }
func (q *queryInterval) HighAtDimension(uint64) int64 { return q.stop }
func (q *queryInterval) OverlapsAtDimension(augmentedtree.Interval, uint64) bool {
	return true
}
func (q *queryInterval) ID() uint64 { return 0 }

// Overlay is one release's structural-variant interval index.
type Overlay struct {
	trees map[string]augmentedtree.Tree
}

// Build scans ds's entire data column family once and indexes every
// decodable record by its OverlayInterval, one tree per canonical
// chromosome. ds must have query.KindClinVarSV.
func Build(ds *query.Dataset) (*Overlay, error) {
	o := &Overlay{trees: make(map[string]augmentedtree.Tree)}

	err := ds.DB.ForEach(store.DataBucket, nil, nil, func(key, value []byte) error {
		rec, err := records.DecodeClinVarSV(value)
		if err != nil {
			return err
		}

		start, stop, ok := rec.OverlayInterval()
		if !ok {
			return nil
		}

		chrom, err := keys.Canonicalize(rec.Chrom)
		if err != nil {
			return nil
		}

		tree, exists := o.trees[chrom]
		if !exists {
			tree = augmentedtree.New(1)
			o.trees[chrom] = tree
		}
		tree.Add(&entry{rec: rec, start: start, stop: stop})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return o, nil
}

// Hit is one matched record together with its reciprocal-overlap ratio
// against the query range.
type Hit struct {
	Record       *records.ClinVarSV `json:"record"`
	OverlapRatio float64            `json:"overlap_ratio"`
}

// Page is one page of sv_overlap results.
type Page struct {
	Hits     []Hit `json:"hits"`
	Total    int   `json:"total"`
	PageNo   int   `json:"page_no"`
	PageSize int   `json:"page_size"`
}

const defaultPageSize = 100
const defaultMinOverlap = 0.5

// reciprocalOverlap is the minimum of the two directed containment ratios,
// 0 when the intervals are disjoint.
func reciprocalOverlap(qStart, qStop, rStart, rStop int64) float64 {
	lo := qStart
	if rStart > lo {
		lo = rStart
	}
	hi := qStop
	if rStop < hi {
		hi = rStop
	}

	overlap := hi - lo
	if overlap <= 0 {
		return 0
	}

	qLen := qStop - qStart
	rLen := rStop - rStart
	if qLen <= 0 || rLen <= 0 {
		return 0
	}

	ratioQ := float64(overlap) / float64(qLen)
	ratioR := float64(overlap) / float64(rLen)
	if ratioQ < ratioR {
		return ratioQ
	}
	return ratioR
}

// Query answers sv_overlap(chrom, start, stop, variationTypes, minOverlap,
// pageNo, pageSize). minOverlap <= 0 defaults to 0.5; pageSize <= 0
// defaults to 100. Results are sorted by overlap ratio descending, ties
// broken by VCV for determinism, then paginated.
func (o *Overlay) Query(chrom string, start, stop int64, variationTypes []string, minOverlap float64, pageNo, pageSize int) (Page, error) {
	canon, err := keys.Canonicalize(chrom)
	if err != nil {
		return Page{}, err
	}

	if minOverlap <= 0 {
		minOverlap = defaultMinOverlap
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageNo <= 0 {
		pageNo = 1
	}

	var wantTypes map[string]bool
	if len(variationTypes) > 0 {
		wantTypes = make(map[string]bool, len(variationTypes))
		for _, t := range variationTypes {
			wantTypes[t] = true
		}
	}

	tree, ok := o.trees[canon]
	if !ok {
		return Page{PageNo: pageNo, PageSize: pageSize}, nil
	}

	candidates := tree.Query(&queryInterval{start: start, stop: stop})

	hits := make([]Hit, 0, len(candidates))
	for _, iv := range candidates {
		e := iv.(*entry)

		if wantTypes != nil && !wantTypes[e.rec.VariantType] {
			continue
		}

		ratio := reciprocalOverlap(start, stop, e.start, e.stop)
		if ratio < minOverlap {
			continue
		}

		hits = append(hits, Hit{Record: e.rec, OverlapRatio: ratio})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].OverlapRatio != hits[j].OverlapRatio {
			return hits[i].OverlapRatio > hits[j].OverlapRatio
		}
		return hits[i].Record.VCV < hits[j].Record.VCV
	})

	total := len(hits)

	from := (pageNo - 1) * pageSize
	if from > total {
		from = total
	}
	to := from + pageSize
	if to > total {
		to = total
	}

	return Page{Hits: hits[from:to], Total: total, PageNo: pageNo, PageSize: pageSize}, nil
}
