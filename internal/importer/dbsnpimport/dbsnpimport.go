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

// Package dbsnpimport imports dbSNP rsID assignments, keyed by VarKey.
// The RefSeq contig map is reused from gffimport rather than duplicated,
// and variants are filtered by the COMMON INFO flag and variant class
// (MNVs are always skipped). Pseudo-autosomal-region variants are not
// remapped -- see the note on Import below.
package dbsnpimport

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/brentp/vcfgo"

	"github.com/zymatik-com/annonars/internal/compress"
	"github.com/zymatik-com/annonars/internal/errs"
	"github.com/zymatik-com/annonars/internal/importer/gffimport"
	"github.com/zymatik-com/annonars/internal/keys"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

// Options controls which variants are kept.
type Options struct {
	// CommonOnly restricts the import to variants dbSNP's own COMMON
	// INFO flag marks common.
	CommonOnly bool
}

// Import reads path (a dbSNP VCF, optionally compressed) and writes one
// DBSNPRecord per retained biallelic SNV/indel into db, keyed by VarKey.
// Pseudo-autosomal-region variants are not remapped to a separate
// PAR/PAR2 pseudo-chromosome: the chrom_id table is the fixed
// 1..22/X/Y/MT set, so both copies are simply kept under their real
// chromosome and left to collide/merge like any other variant reported
// on both X and Y.
func Import(logger *slog.Logger, db *store.DB, path string, opts Options) error {
	rc, err := compress.OpenFile(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	vcfReader, err := vcfgo.NewReader(rc, false)
	if err != nil {
		return fmt.Errorf("could not create vcf reader: %w", err)
	}

	for {
		variant := vcfReader.Read()
		if variant == nil {
			break
		}

		if err := importVariant(db, variant, opts); err != nil {
			if logger != nil {
				logger.Warn("skipping dbsnp variant", "id", variant.Id(), "error", err)
			}
		}
	}

	if err := vcfReader.Error(); err != nil && err != io.EOF {
		return fmt.Errorf("vcf reader error: %w", err)
	}

	return nil
}

func importVariant(db *store.DB, variant *vcfgo.Variant, opts Options) error {
	if opts.CommonOnly {
		common, err := variant.Info().Get("COMMON")
		if err != nil {
			return fmt.Errorf("missing COMMON info: %w", err)
		}
		if b, ok := common.(bool); !ok || !b {
			return nil
		}
	}

	variantClass := "SNV"
	if vc, err := variant.Info().Get("VC"); err == nil {
		if s, ok := vc.(string); ok {
			variantClass = s
		}
	}
	if variantClass == "MNV" {
		return nil
	}

	rsid, err := strconv.ParseInt(strings.TrimPrefix(variant.Id(), "rs"), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid rsid %q: %v", errs.ErrInputFormat, variant.Id(), err)
	}

	chrom, ok := gffimport.ContigMap[variant.Chromosome]
	if !ok {
		return fmt.Errorf("%w: %q", errs.ErrUnknownChromosome, variant.Chromosome)
	}

	pos := int64(variant.Pos)

	if len(variant.Alt()) != 1 {
		return fmt.Errorf("not biallelic")
	}
	ref, alt := variant.Ref(), variant.Alt()[0]

	rec := records.DBSNPRecord{
		RSID:         rsid,
		Chrom:        chrom,
		Pos:          pos,
		Ref:          ref,
		Alt:          alt,
		VariantClass: variantClass,
		Assembly:     "GRCh38",
	}

	key, err := keys.VarKey(chrom, pos, ref, alt)
	if err != nil {
		return err
	}

	enc, err := rec.Encode()
	if err != nil {
		return err
	}

	return db.Put(store.DataBucket, key, enc)
}
