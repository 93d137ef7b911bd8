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

package geneimport

import (
	"log/slog"

	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

// hgncCoreLine is the required block: symbol, name, aliases and the
// cross-references every other source joins against.
type hgncCoreLine struct {
	HGNCID        string   `json:"hgnc_id"`
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	AliasSymbol   []string `json:"alias_symbol,omitempty"`
	AliasName     []string `json:"alias_name,omitempty"`
	EnsemblGeneID string   `json:"ensembl_gene_id,omitempty"`
	NCBIGeneID    string   `json:"ncbi_gene_id,omitempty"`
	Locus         string   `json:"locus,omitempty"`
}

func (l hgncCoreLine) hgncID() string { return l.HGNCID }

// ImportHGNCCore imports the required HGNC core block. Unlike every
// other source in this package it replaces the core block wholesale
// rather than merging field-by-field: HGNC is the single source of
// truth for symbol/name/aliases.
func ImportHGNCCore(logger *slog.Logger, db *store.DB, path string) error {
	return importSource(logger, db, path, func(rec *records.GeneRecord, l hgncCoreLine) {
		rec.HGNC = records.HGNCCore{
			HGNCID:        l.HGNCID,
			Symbol:        l.Symbol,
			Name:          l.Name,
			AliasSymbol:   l.AliasSymbol,
			AliasName:     l.AliasName,
			EnsemblGeneID: l.EnsemblGeneID,
			NCBIGeneID:    l.NCBIGeneID,
			Locus:         l.Locus,
		}
	})
}

type acmgSFLine struct {
	HGNCID  string `json:"hgnc_id"`
	Version string `json:"sf_list_version"`
	Disease string `json:"disease_phenotype"`
}

func (l acmgSFLine) hgncID() string { return l.HGNCID }

// ImportACMGSF imports the ACMG secondary-findings reportable-disease
// block.
func ImportACMGSF(logger *slog.Logger, db *store.DB, path string) error {
	return importSource(logger, db, path, func(rec *records.GeneRecord, l acmgSFLine) {
		rec.ACMGSF = &records.ACMGSF{Version: l.Version, Disease: l.Disease}
	})
}

type clinGenLine struct {
	HGNCID                  string `json:"hgnc_id"`
	HaploinsufficiencyScore string `json:"haploinsufficiency_score"`
	TriplosensitivityScore  string `json:"triplosensitivity_score"`
}

func (l clinGenLine) hgncID() string { return l.HGNCID }

// ImportClinGen imports the ClinGen dosage-sensitivity curation block.
func ImportClinGen(logger *slog.Logger, db *store.DB, path string) error {
	return importSource(logger, db, path, func(rec *records.GeneRecord, l clinGenLine) {
		rec.ClinGen = &records.ClinGen{
			HaploinsufficiencyScore: l.HaploinsufficiencyScore,
			TriplosensitivityScore:  l.TriplosensitivityScore,
		}
	})
}

type dbnsfpLine struct {
	HGNCID    string  `json:"hgnc_id"`
	ExacPLI   float64 `json:"exac_pli"`
	ExacPRec  float64 `json:"exac_prec"`
	ExacPNull float64 `json:"exac_pnull"`
}

func (l dbnsfpLine) hgncID() string { return l.HGNCID }

// ImportDBNSFP imports the dbNSFP gene-level score block.
func ImportDBNSFP(logger *slog.Logger, db *store.DB, path string) error {
	return importSource(logger, db, path, func(rec *records.GeneRecord, l dbnsfpLine) {
		rec.DBNSFP = &records.DBNSFP{ExacPLI: l.ExacPLI, ExacPRec: l.ExacPRec, ExacPNull: l.ExacPNull}
	})
}

type gnomadConstraintsLine struct {
	HGNCID      string  `json:"hgnc_id"`
	ExpectedLOF float64 `json:"expected_lof"`
	ObservedLOF float64 `json:"observed_lof"`
	OELOF       float64 `json:"oe_lof"`
	PLI         float64 `json:"pli"`
	MisZ        float64 `json:"mis_z"`
}

func (l gnomadConstraintsLine) hgncID() string { return l.HGNCID }

// ImportGnomadConstraints imports the gnomAD constraint-metrics block
// (observed/expected LoF ratio, pLI, missense Z-score).
func ImportGnomadConstraints(logger *slog.Logger, db *store.DB, path string) error {
	return importSource(logger, db, path, func(rec *records.GeneRecord, l gnomadConstraintsLine) {
		rec.GnomadConstraints = &records.GnomadConstraints{
			ExpectedLOF: l.ExpectedLOF,
			ObservedLOF: l.ObservedLOF,
			OELOF:       l.OELOF,
			PLI:         l.PLI,
			MisZ:        l.MisZ,
		}
	})
}

type ncbiSummaryLine struct {
	HGNCID  string `json:"hgnc_id"`
	Summary string `json:"summary"`
}

func (l ncbiSummaryLine) hgncID() string { return l.HGNCID }

// ImportNCBISummary imports the NCBI ("Entrez") gene summary text
// block.
func ImportNCBISummary(logger *slog.Logger, db *store.DB, path string) error {
	return importSource(logger, db, path, func(rec *records.GeneRecord, l ncbiSummaryLine) {
		rec.NCBISummary = &records.NCBISummary{Summary: l.Summary}
	})
}

type omimLine struct {
	HGNCID     string   `json:"hgnc_id"`
	OMIMID     string   `json:"omim_id"`
	Phenotypes []string `json:"phenotypes"`
}

func (l omimLine) hgncID() string { return l.HGNCID }

// ImportOMIM imports OMIM phenotype associations.
func ImportOMIM(logger *slog.Logger, db *store.DB, path string) error {
	return importSource(logger, db, path, func(rec *records.GeneRecord, l omimLine) {
		rec.OMIM = &records.OMIM{OMIMID: l.OMIMID, Phenotypes: l.Phenotypes}
	})
}

type orphaLine struct {
	HGNCID     string   `json:"hgnc_id"`
	OrphaID    string   `json:"orpha_id"`
	Phenotypes []string `json:"phenotypes"`
}

func (l orphaLine) hgncID() string { return l.HGNCID }

// ImportORPHA imports Orphanet rare-disease associations.
func ImportORPHA(logger *slog.Logger, db *store.DB, path string) error {
	return importSource(logger, db, path, func(rec *records.GeneRecord, l orphaLine) {
		rec.ORPHA = &records.ORPHA{OrphaID: l.OrphaID, Phenotypes: l.Phenotypes}
	})
}

type panelAppLine struct {
	HGNCID     string `json:"hgnc_id"`
	Panel      string `json:"panel"`
	Confidence string `json:"confidence"`
}

func (l panelAppLine) hgncID() string { return l.HGNCID }

// ImportPanelApp imports PanelApp disease-panel memberships. Unlike
// the singleton blocks this accumulates: a gene can sit on many
// panels, and re-importing the same (panel, confidence) pair is
// idempotent rather than appending a duplicate entry.
func ImportPanelApp(logger *slog.Logger, db *store.DB, path string) error {
	return importSource(logger, db, path, func(rec *records.GeneRecord, l panelAppLine) {
		entry := records.PanelAppEntry{Panel: l.Panel, Confidence: l.Confidence}
		for _, existing := range rec.PanelApp {
			if existing == entry {
				return
			}
		}
		rec.PanelApp = append(rec.PanelApp, entry)
	})
}

type rcnvLine struct {
	HGNCID  string  `json:"hgnc_id"`
	PHaplo  float64 `json:"p_haplo"`
	PTriplo float64 `json:"p_triplo"`
}

func (l rcnvLine) hgncID() string { return l.HGNCID }

// ImportRCNV imports the rCNV2 dosage-sensitivity probability block.
func ImportRCNV(logger *slog.Logger, db *store.DB, path string) error {
	return importSource(logger, db, path, func(rec *records.GeneRecord, l rcnvLine) {
		rec.RCNV = &records.RCNV{PHaplo: l.PHaplo, PTriplo: l.PTriplo}
	})
}

type shetLine struct {
	HGNCID string  `json:"hgnc_id"`
	SHet   float64 `json:"s_het"`
}

func (l shetLine) hgncID() string { return l.HGNCID }

// ImportSHet imports the selection-coefficient (sHet) estimate block.
func ImportSHet(logger *slog.Logger, db *store.DB, path string) error {
	return importSource(logger, db, path, func(rec *records.GeneRecord, l shetLine) {
		rec.SHet = &records.SHet{SHet: l.SHet}
	})
}

type gtexLine struct {
	HGNCID string  `json:"hgnc_id"`
	Tissue string  `json:"tissue"`
	TPM    float64 `json:"tpm"`
}

func (l gtexLine) hgncID() string { return l.HGNCID }

// ImportGTEx imports per-tissue median TPM expression values.
// Re-importing the same tissue for a gene replaces its TPM rather
// than appending a second entry for it.
func ImportGTEx(logger *slog.Logger, db *store.DB, path string) error {
	return importSource(logger, db, path, func(rec *records.GeneRecord, l gtexLine) {
		for i, existing := range rec.GTEx {
			if existing.Tissue == l.Tissue {
				rec.GTEx[i].TPM = l.TPM
				return
			}
		}
		rec.GTEx = append(rec.GTEx, records.GTExEntry{Tissue: l.Tissue, TPM: l.TPM})
	})
}

type dominoLine struct {
	HGNCID string  `json:"hgnc_id"`
	Score  float64 `json:"score"`
}

func (l dominoLine) hgncID() string { return l.HGNCID }

// ImportDomino imports the DOMINO dominance-prediction score block.
func ImportDomino(logger *slog.Logger, db *store.DB, path string) error {
	return importSource(logger, db, path, func(rec *records.GeneRecord, l dominoLine) {
		rec.Domino = &records.Domino{Score: l.Score}
	})
}

type decipherHILine struct {
	HGNCID  string  `json:"hgnc_id"`
	HIIndex float64 `json:"hi_index"`
}

func (l decipherHILine) hgncID() string { return l.HGNCID }

// ImportDecipherHI imports the DECIPHER haploinsufficiency index
// block.
func ImportDecipherHI(logger *slog.Logger, db *store.DB, path string) error {
	return importSource(logger, db, path, func(rec *records.GeneRecord, l decipherHILine) {
		rec.DecipherHI = &records.DecipherHI{HIIndex: l.HIIndex}
	})
}
