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

// Package gffimport imports RefSeq functional-region GFF3 annotations,
// keyed by each feature's "ID" attribute. Reference sequence names are
// canonicalized via a RefSeq-accession contig map; a feature on a
// non-canonical contig is logged and skipped.
package gffimport

import (
	"bufio"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/zymatik-com/annonars/internal/compress"
	"github.com/zymatik-com/annonars/internal/errs"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

// ContigMap canonicalizes a GFF reference sequence accession (e.g.
// "NC_000001.11") to the store's canonical chromosome name. Same shape as
// the dbSNP importer's idToChromosome table, for the GRCh38 assembly.
var ContigMap = map[string]string{
	"NC_000001.11": "1",
	"NC_000002.12": "2",
	"NC_000003.12": "3",
	"NC_000004.12": "4",
	"NC_000005.10": "5",
	"NC_000006.12": "6",
	"NC_000007.14": "7",
	"NC_000008.11": "8",
	"NC_000009.12": "9",
	"NC_000010.11": "10",
	"NC_000011.10": "11",
	"NC_000012.12": "12",
	"NC_000013.11": "13",
	"NC_000014.9":  "14",
	"NC_000015.10": "15",
	"NC_000016.10": "16",
	"NC_000017.11": "17",
	"NC_000018.10": "18",
	"NC_000019.10": "19",
	"NC_000020.11": "20",
	"NC_000021.9":  "21",
	"NC_000022.11": "22",
	"NC_000023.11": "X",
	"NC_000024.10": "Y",
	"NC_012920.1":  "MT",
}

// feature is one parsed GFF3 data line (columns 1-9, no comment/pragma
// lines). Coordinates are 1-based inclusive in the source, stored as-is.
type feature struct {
	SeqID       string
	FeatureType string
	Start       int64
	Stop        int64
	Attributes  map[string]string
}

// parseLine parses one non-comment GFF3 line into a feature, per the
// 9-column tab-separated spec (seqid, source, type, start, end, score,
// strand, phase, attributes).
func parseLine(line string) (*feature, error) {
	cols := strings.Split(line, "\t")
	if len(cols) != 9 {
		return nil, fmt.Errorf("%w: expected 9 columns, got %d", errs.ErrInputFormat, len(cols))
	}

	start, err := strconv.ParseInt(cols[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid start: %v", errs.ErrInputFormat, err)
	}
	stop, err := strconv.ParseInt(cols[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid stop: %v", errs.ErrInputFormat, err)
	}

	attrs := make(map[string]string)
	for _, pair := range strings.Split(cols[8], ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		attrs[kv[0]] = kv[1]
	}

	return &feature{
		SeqID:       cols[0],
		FeatureType: cols[2],
		Start:       start,
		Stop:        stop,
		Attributes:  attrs,
	}, nil
}

// Options controls how a functional-region GFF3 file's features are
// classified once parsed.
type Options struct {
	// Category is the region category recorded on every feature from
	// this file (e.g. "regulatory", "gene", "ncRNA"); the upstream GFF3
	// rarely carries this distinction itself, so it is supplied per
	// input file by the caller.
	Category string
}

// Import reads one functional-region GFF3 file and writes one
// FunctionalRegion record per feature into db, keyed by the feature's
// "ID" attribute. A feature on a non-canonical contig (importFeature
// returns errs.ErrUnknownChromosome) is logged and skipped; the import
// carries on with the remaining features.
func Import(logger *slog.Logger, db *store.DB, path string, opts Options) error {
	rc, err := compress.OpenFile(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		f, err := parseLine(line)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping malformed gff line", "error", err)
			}
			continue
		}

		if err := importFeature(db, f, opts); err != nil {
			if logger != nil {
				logger.Warn("skipping gff feature", "seqid", f.SeqID, "error", err)
			}
		}
	}

	return scanner.Err()
}

func importFeature(db *store.DB, f *feature, opts Options) error {
	id, ok := f.Attributes["ID"]
	if !ok || id == "" {
		return fmt.Errorf("feature missing ID attribute")
	}

	chrom, ok := ContigMap[f.SeqID]
	if !ok {
		return fmt.Errorf("%w: %q", errs.ErrUnknownChromosome, f.SeqID)
	}

	rec := records.FunctionalRegion{
		ID:              id,
		Chrom:           chrom,
		Start:           f.Start,
		Stop:            f.Stop,
		Category:        opts.Category,
		RegulatoryClass: f.Attributes["regulatory_class"],
		Notes:           f.Attributes["Note"],
	}

	enc, err := rec.Encode()
	if err != nil {
		return err
	}

	return db.Put(store.DataBucket, []byte(id), enc)
}
