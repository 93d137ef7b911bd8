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
	"encoding/json"
	"fmt"

	"github.com/zymatik-com/annonars/internal/records/wire"
)

// HGNCCore is the required block of every gene aggregate record.
type HGNCCore struct {
	HGNCID        string   `json:"hgnc_id"`
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	AliasSymbol   []string `json:"alias_symbol,omitempty"`
	AliasName     []string `json:"alias_name,omitempty"`
	EnsemblGeneID string   `json:"ensembl_gene_id,omitempty"`
	NCBIGeneID    string   `json:"ncbi_gene_id,omitempty"`
	Locus         string   `json:"locus,omitempty"`
}

// ACMGSF is the ACMG secondary-findings block.
type ACMGSF struct {
	Version string `json:"version"`
	Disease string `json:"disease,omitempty"`
}

// ClinGen is the ClinGen dosage-sensitivity block.
type ClinGen struct {
	HaploinsufficiencyScore string `json:"haploinsufficiency_score,omitempty"`
	TriplosensitivityScore  string `json:"triplosensitivity_score,omitempty"`
}

// DBNSFP is a selection of dbNSFP gene-level scores.
type DBNSFP struct {
	ExacPLI   float64 `json:"exac_pli,omitempty"`
	ExacPRec  float64 `json:"exac_prec,omitempty"`
	ExacPNull float64 `json:"exac_pnull,omitempty"`
}

// GnomadConstraints are the gnomAD constraint metrics (oe/pLI/Z-scores).
type GnomadConstraints struct {
	ExpectedLOF float64 `json:"expected_lof,omitempty"`
	ObservedLOF float64 `json:"observed_lof,omitempty"`
	OELOF       float64 `json:"oe_lof,omitempty"`
	PLI         float64 `json:"pli,omitempty"`
	MisZ        float64 `json:"mis_z,omitempty"`
}

// NCBISummary is the NCBI gene summary text block.
type NCBISummary struct {
	Summary string `json:"summary,omitempty"`
}

// OMIM lists OMIM phenotype associations.
type OMIM struct {
	OMIMID     string   `json:"omim_id,omitempty"`
	Phenotypes []string `json:"phenotypes,omitempty"`
}

// ORPHA lists Orphanet rare-disease associations.
type ORPHA struct {
	OrphaID    string   `json:"orpha_id,omitempty"`
	Phenotypes []string `json:"phenotypes,omitempty"`
}

// PanelAppEntry is one disease-panel membership entry.
type PanelAppEntry struct {
	Panel      string `json:"panel"`
	Confidence string `json:"confidence"`
}

// RCNV is the rCNV2 dosage sensitivity block.
type RCNV struct {
	PHaplo  float64 `json:"p_haplo,omitempty"`
	PTriplo float64 `json:"p_triplo,omitempty"`
}

// SHet is the selection-coefficient estimate block.
type SHet struct {
	SHet float64 `json:"s_het,omitempty"`
}

// GTExEntry is one tissue's median TPM expression value.
type GTExEntry struct {
	Tissue string  `json:"tissue"`
	TPM    float64 `json:"tpm"`
}

// Domino is the DOMINO dominance-prediction score block.
type Domino struct {
	Score float64 `json:"score,omitempty"`
}

// DecipherHI is the DECIPHER haploinsufficiency block.
type DecipherHI struct {
	HIIndex float64 `json:"hi_index,omitempty"`
}

// GeneRecord is the aggregate gene record, keyed by HGNC id. HGNC is
// required; every other block is optional and omitted from both the wire
// encoding and the JSON projection when nil.
type GeneRecord struct {
	HGNC HGNCCore `json:"hgnc"`

	ACMGSF            *ACMGSF            `json:"acmg_sf,omitempty"`
	ClinGen           *ClinGen           `json:"clingen,omitempty"`
	DBNSFP            *DBNSFP            `json:"dbnsfp,omitempty"`
	GnomadConstraints *GnomadConstraints `json:"gnomad_constraints,omitempty"`
	NCBISummary       *NCBISummary       `json:"ncbi_summary,omitempty"`
	OMIM              *OMIM              `json:"omim,omitempty"`
	ORPHA             *ORPHA             `json:"orpha,omitempty"`
	PanelApp          []PanelAppEntry    `json:"panelapp,omitempty"`
	RCNV              *RCNV              `json:"rcnv,omitempty"`
	SHet              *SHet              `json:"shet,omitempty"`
	GTEx              []GTExEntry        `json:"gtex,omitempty"`
	Domino            *Domino            `json:"domino,omitempty"`
	DecipherHI        *DecipherHI        `json:"decipher_hi,omitempty"`
}

// geneWireTags enumerates the tag each optional block is stored under.
// Every block (including the required HGNC core) is itself JSON-encoded:
// unlike the hot-path per-variant records, the gene aggregate has ~12
// independently-evolving optional shapes and is decoded far less often
// (once per /genes/info lookup), so a single, uniform nested
// representation wins over a hand-rolled field layout per block.
const (
	tagGeneHGNC = iota + 1
	tagGeneACMGSF
	tagGeneClinGen
	tagGeneDBNSFP
	tagGeneGnomadConstraints
	tagGeneNCBISummary
	tagGeneOMIM
	tagGeneORPHA
	tagGenePanelApp
	tagGeneRCNV
	tagGeneSHet
	tagGeneGTEx
	tagGeneDomino
	tagGeneDecipherHI
)

func writeJSONField[T any](w *wire.Writer, tag uint8, v *T) error {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.WriteMessage(tag, b)
	return nil
}

// Encode serializes the gene record.
func (r GeneRecord) Encode() ([]byte, error) {
	w := wire.NewWriter()

	hgnc, err := json.Marshal(r.HGNC)
	if err != nil {
		return nil, fmt.Errorf("encode hgnc core: %w", err)
	}
	w.WriteMessage(tagGeneHGNC, hgnc)

	if err := writeJSONField(w, tagGeneACMGSF, r.ACMGSF); err != nil {
		return nil, err
	}
	if err := writeJSONField(w, tagGeneClinGen, r.ClinGen); err != nil {
		return nil, err
	}
	if err := writeJSONField(w, tagGeneDBNSFP, r.DBNSFP); err != nil {
		return nil, err
	}
	if err := writeJSONField(w, tagGeneGnomadConstraints, r.GnomadConstraints); err != nil {
		return nil, err
	}
	if err := writeJSONField(w, tagGeneNCBISummary, r.NCBISummary); err != nil {
		return nil, err
	}
	if err := writeJSONField(w, tagGeneOMIM, r.OMIM); err != nil {
		return nil, err
	}
	if err := writeJSONField(w, tagGeneORPHA, r.ORPHA); err != nil {
		return nil, err
	}
	if len(r.PanelApp) > 0 {
		b, err := json.Marshal(r.PanelApp)
		if err != nil {
			return nil, err
		}
		w.WriteMessage(tagGenePanelApp, b)
	}
	if err := writeJSONField(w, tagGeneRCNV, r.RCNV); err != nil {
		return nil, err
	}
	if err := writeJSONField(w, tagGeneSHet, r.SHet); err != nil {
		return nil, err
	}
	if len(r.GTEx) > 0 {
		b, err := json.Marshal(r.GTEx)
		if err != nil {
			return nil, err
		}
		w.WriteMessage(tagGeneGTEx, b)
	}
	if err := writeJSONField(w, tagGeneDomino, r.Domino); err != nil {
		return nil, err
	}
	if err := writeJSONField(w, tagGeneDecipherHI, r.DecipherHI); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}

// DecodeGeneRecord is the inverse of Encode.
func DecodeGeneRecord(b []byte) (*GeneRecord, error) {
	fields, err := wire.NewReader(b).Fields()
	if err != nil {
		return nil, err
	}

	r := &GeneRecord{}

	if p, ok := fields[tagGeneHGNC]; ok {
		if err := json.Unmarshal(p[0], &r.HGNC); err != nil {
			return nil, fmt.Errorf("decode hgnc core: %w", err)
		}
	} else {
		return nil, fmt.Errorf("gene record missing required hgnc core block")
	}

	decodeOpt := func(tag uint8, dst interface{}) error {
		p, ok := fields[tag]
		if !ok {
			return nil
		}
		return json.Unmarshal(p[0], dst)
	}

	if _, ok := fields[tagGeneACMGSF]; ok {
		r.ACMGSF = &ACMGSF{}
		if err := decodeOpt(tagGeneACMGSF, r.ACMGSF); err != nil {
			return nil, err
		}
	}
	if _, ok := fields[tagGeneClinGen]; ok {
		r.ClinGen = &ClinGen{}
		if err := decodeOpt(tagGeneClinGen, r.ClinGen); err != nil {
			return nil, err
		}
	}
	if _, ok := fields[tagGeneDBNSFP]; ok {
		r.DBNSFP = &DBNSFP{}
		if err := decodeOpt(tagGeneDBNSFP, r.DBNSFP); err != nil {
			return nil, err
		}
	}
	if _, ok := fields[tagGeneGnomadConstraints]; ok {
		r.GnomadConstraints = &GnomadConstraints{}
		if err := decodeOpt(tagGeneGnomadConstraints, r.GnomadConstraints); err != nil {
			return nil, err
		}
	}
	if _, ok := fields[tagGeneNCBISummary]; ok {
		r.NCBISummary = &NCBISummary{}
		if err := decodeOpt(tagGeneNCBISummary, r.NCBISummary); err != nil {
			return nil, err
		}
	}
	if _, ok := fields[tagGeneOMIM]; ok {
		r.OMIM = &OMIM{}
		if err := decodeOpt(tagGeneOMIM, r.OMIM); err != nil {
			return nil, err
		}
	}
	if _, ok := fields[tagGeneORPHA]; ok {
		r.ORPHA = &ORPHA{}
		if err := decodeOpt(tagGeneORPHA, r.ORPHA); err != nil {
			return nil, err
		}
	}
	if p, ok := fields[tagGenePanelApp]; ok {
		if err := json.Unmarshal(p[0], &r.PanelApp); err != nil {
			return nil, err
		}
	}
	if _, ok := fields[tagGeneRCNV]; ok {
		r.RCNV = &RCNV{}
		if err := decodeOpt(tagGeneRCNV, r.RCNV); err != nil {
			return nil, err
		}
	}
	if _, ok := fields[tagGeneSHet]; ok {
		r.SHet = &SHet{}
		if err := decodeOpt(tagGeneSHet, r.SHet); err != nil {
			return nil, err
		}
	}
	if p, ok := fields[tagGeneGTEx]; ok {
		if err := json.Unmarshal(p[0], &r.GTEx); err != nil {
			return nil, err
		}
	}
	if _, ok := fields[tagGeneDomino]; ok {
		r.Domino = &Domino{}
		if err := decodeOpt(tagGeneDomino, r.Domino); err != nil {
			return nil, err
		}
	}
	if _, ok := fields[tagGeneDecipherHI]; ok {
		r.DecipherHI = &DecipherHI{}
		if err := decodeOpt(tagGeneDecipherHI, r.DecipherHI); err != nil {
			return nil, err
		}
	}

	return r, nil
}
