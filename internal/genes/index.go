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

// Package genes builds the in-memory gene name/id lookup index used by
// /genes/lookup and /genes/search, once at startup, from a fully scanned
// genes dataset.
package genes

import (
	"sort"
	"strings"

	"github.com/zymatik-com/annonars/internal/query"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

// SearchableFields is the default field set /genes/search scores against.
var SearchableFields = []string{
	"hgnc_id", "symbol", "name", "alias_symbol", "alias_name",
	"ensembl_gene_id", "ncbi_gene_id",
}

// Index is the read-only, built-once gene name/id table.
type Index struct {
	byExact map[string]*records.GeneRecord
	all     []*records.GeneRecord
}

// Build scans ds (which must be query.KindGene) and indexes every record
// by its exact-match tokens (hgnc id, symbol, Ensembl id, NCBI id).
func Build(ds *query.Dataset) (*Index, error) {
	idx := &Index{byExact: make(map[string]*records.GeneRecord)}

	err := ds.DB.ForEach(store.DataBucket, nil, nil, func(key, value []byte) error {
		rec, err := records.DecodeGeneRecord(value)
		if err != nil {
			return err
		}

		idx.all = append(idx.all, rec)

		for _, token := range []string{rec.HGNC.HGNCID, rec.HGNC.Symbol, rec.HGNC.EnsemblGeneID, rec.HGNC.NCBIGeneID} {
			if token != "" {
				idx.byExact[token] = rec
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return idx, nil
}

// Lookup returns the gene record with an exact match on HGNC id, symbol,
// or Ensembl/NCBI gene id.
func (idx *Index) Lookup(token string) (*records.GeneRecord, bool) {
	rec, ok := idx.byExact[token]
	return rec, ok
}

// Result is one scored /genes/search hit.
type Result struct {
	Record *records.GeneRecord `json:"record"`
	Score  float64             `json:"score"`
}

const searchResultCap = 100

// fieldValues returns the queryable string values of rec for field.
func fieldValues(rec *records.GeneRecord, field string) []string {
	switch field {
	case "hgnc_id":
		return []string{rec.HGNC.HGNCID}
	case "symbol":
		return []string{rec.HGNC.Symbol}
	case "name":
		return []string{rec.HGNC.Name}
	case "alias_symbol":
		return rec.HGNC.AliasSymbol
	case "alias_name":
		return rec.HGNC.AliasName
	case "ensembl_gene_id":
		return []string{rec.HGNC.EnsemblGeneID}
	case "ncbi_gene_id":
		return []string{rec.HGNC.NCBIGeneID}
	default:
		return nil
	}
}

// score computes the best per-field score for q against rec, restricted
// to fields. Exact match on any field scores 1.0; otherwise, for fields
// where q is a substring, score is len(q)/len(field value). 0 means no
// match on any requested field.
func score(rec *records.GeneRecord, q string, fields []string) float64 {
	var best float64

	for _, field := range fields {
		for _, v := range fieldValues(rec, field) {
			if v == "" {
				continue
			}
			if v == q {
				return 1.0
			}
			if strings.Contains(v, q) {
				s := float64(len(q)) / float64(len(v))
				if s > best {
					best = s
				}
			}
		}
	}

	return best
}

// Search scores every indexed record against q over fields (defaulting to
// SearchableFields when empty), sorts by (score desc, symbol asc), and
// caps the result at 100.
func (idx *Index) Search(q string, fields []string) []Result {
	if len(fields) == 0 {
		fields = SearchableFields
	}

	var results []Result
	for _, rec := range idx.all {
		s := score(rec, q, fields)
		if s <= 0 {
			continue
		}
		results = append(results, Result{Record: rec, Score: s})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.HGNC.Symbol < results[j].Record.HGNC.Symbol
	})

	if len(results) > searchResultCap {
		results = results[:searchResultCap]
	}

	return results
}
