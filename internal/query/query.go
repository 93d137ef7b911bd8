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

// Package query implements variant_query, range_query and db_info against
// an open dataset store: compute the key, seek, decode. Which record type
// a dataset's values decode into is fixed once at Open time from the
// meta:db-name key, dispatched through the Kind enum below rather than
// re-sniffed on every query.
package query

import (
	"fmt"

	"github.com/zymatik-com/annonars/internal/errs"
	"github.com/zymatik-com/annonars/internal/keys"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

// Kind identifies which record family a dataset's data column family
// decodes into.
type Kind int

const (
	KindUnknown Kind = iota
	KindFrequency
	KindClinVarMinimal
	KindClinVarSV
	KindDBSNP
	KindConservation
	KindGene
	KindGeneClinVar
	KindGeneSV
	KindFunctionalRegion
)

// kindsByName maps the meta:db-name value written at import time to the
// Kind used to decode its data column family. Importers and Dataset must
// agree on these strings.
var kindsByName = map[string]Kind{
	"gnomad-exomes":      KindFrequency,
	"gnomad-genomes":     KindFrequency,
	"gnomad-mtdna":       KindFrequency,
	"helix-mtdna":        KindFrequency,
	"clinvar-minimal":    KindClinVarMinimal,
	"clinvar-sv":         KindClinVarSV,
	"dbsnp":              KindDBSNP,
	"ucsc-conservation":  KindConservation,
	"genes":              KindGene,
	"gene-clinvar":       KindGeneClinVar,
	"gene-sv":            KindGeneSV,
	"functional-regions": KindFunctionalRegion,
}

// RegisterKind lets an importer declare a new db-name -> Kind mapping, for
// datasets added after the built-in table above (tests use this to avoid
// depending on import order between packages).
func RegisterKind(dbName string, kind Kind) {
	kindsByName[dbName] = kind
}

// Dataset is one open (release, dataset) store handle, ready to serve
// queries. Safe for concurrent use by multiple goroutines: the underlying
// *store.DB is read-only and bbolt's own read transactions are
// concurrency-safe.
type Dataset struct {
	DB      *store.DB
	Name    string
	Kind    Kind
	Version string
	Release string

	// FreqSchema is the gnomAD major-version decode schema for
	// KindFrequency datasets, fixed at Open from meta:gnomad-version.
	FreqSchema records.FreqSchema
}

// Open opens path read-only and determines the dataset's Kind from its
// meta:db-name key.
func Open(path string) (*Dataset, error) {
	db, err := store.Open(path, true)
	if err != nil {
		return nil, err
	}

	name, err := db.GetMeta(store.MetaDBName)
	if err != nil {
		db.Close()
		return nil, err
	}

	version, _ := db.GetMeta(store.MetaDBVersion)
	release, _ := db.GetMeta(store.MetaGenomeRelease)

	kind, ok := kindsByName[name]
	if !ok {
		db.Close()
		return nil, fmt.Errorf("%w: %q", errs.ErrDatasetVersionUnsupported, name)
	}

	d := &Dataset{DB: db, Name: name, Kind: kind, Version: version, Release: release}

	// Frequency stores optionally declare which gnomAD release wrote
	// them; a store without the key decodes under the default schema.
	if kind == KindFrequency {
		if v, merr := db.GetMeta(store.MetaGnomadVersion); merr == nil {
			schema, perr := records.ParseGnomadVersion(v)
			if perr != nil {
				db.Close()
				return nil, perr
			}
			d.FreqSchema = schema
		}
	}

	return d, nil
}

// Close releases the underlying store handle.
func (d *Dataset) Close() error {
	return d.DB.Close()
}

// Info is the per-dataset summary returned by db_info / /api/v1/versions.
type Info struct {
	Name           string `json:"name"`
	DBVersion      string `json:"db_version"`
	BuilderVersion string `json:"builder_version"`
	GenomeRelease  string `json:"genome_release"`
}

// DBInfo reads the meta column family gathered at Open time.
func (d *Dataset) DBInfo() (Info, error) {
	meta, err := d.DB.AllMeta()
	if err != nil {
		return Info{}, err
	}

	return Info{
		Name:           d.Name,
		DBVersion:      meta[store.MetaDBVersion],
		BuilderVersion: meta[store.MetaAnnonarsVersion],
		GenomeRelease:  meta[store.MetaGenomeRelease],
	}, nil
}

func (d *Dataset) decode(value []byte) (any, error) {
	switch d.Kind {
	case KindFrequency:
		return records.DecodeFrequencyRecordSchema(d.FreqSchema, value)
	case KindClinVarMinimal:
		return records.DecodeClinVarMinimal(value)
	case KindClinVarSV:
		return records.DecodeClinVarSV(value)
	case KindDBSNP:
		return records.DecodeDBSNPRecord(value)
	case KindConservation:
		return records.DecodeConservationRecordList(value)
	case KindGene:
		return records.DecodeGeneRecord(value)
	case KindGeneClinVar:
		return records.DecodeGeneClinVarAggregate(value)
	case KindGeneSV:
		return records.DecodeGeneSVCarrierCounts(value)
	case KindFunctionalRegion:
		return records.DecodeFunctionalRegion(value)
	default:
		return nil, fmt.Errorf("%w: dataset kind %d has no decoder", errs.ErrDecodeFailure, d.Kind)
	}
}

// VariantQuery computes VarKey(chrom, pos, ref, alt) and looks it up
// directly. Returns (nil, nil) if absent. The conservation dataset is
// keyed by PosKey and its rows span codon windows that can begin before
// the queried variant, so for it the lookup goes through the seek-back
// range scan instead of a point get.
func (d *Dataset) VariantQuery(chrom string, pos int64, ref, alt string) (any, error) {
	if d.Kind == KindConservation {
		recs, err := d.RangeQuery(chrom, pos, pos)
		if err != nil {
			return nil, err
		}
		if len(recs) == 0 {
			return nil, nil
		}
		return recs[0], nil
	}

	key, err := keys.VarKey(chrom, pos, ref, alt)
	if err != nil {
		return nil, err
	}

	value, err := d.DB.Get(store.DataBucket, key)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}

	rec, err := d.decode(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, keys.FormatSPDI(d.Release, chrom, pos, ref, alt))
	}

	return rec, nil
}

// conservationSeekBack is how far before the query start range_query seeks
// for the conservation dataset, since a stored row's window can begin up
// to two bases before any position it covers.
const conservationSeekBack = 2

// RangeQuery canonicalizes chrom, seeks to PosKey(chrom, start) (or two
// bases earlier for conservation, to catch windows that start before the
// query range), and decodes every record whose key's chrom_id matches and
// whose position is <= stop.
func (d *Dataset) RangeQuery(chrom string, start, stop int64) ([]any, error) {
	canon, err := keys.Canonicalize(chrom)
	if err != nil {
		return nil, err
	}

	seekStart := start
	if d.Kind == KindConservation {
		seekStart -= conservationSeekBack
		if seekStart < 1 {
			seekStart = 1
		}
	}

	seekKey, err := keys.PosKey(canon, seekStart)
	if err != nil {
		return nil, err
	}

	wantID, err := keys.ChromID(canon)
	if err != nil {
		return nil, err
	}

	return d.scanFrom(seekKey, wantID, stop)
}

// PositionQuery returns every record stored at exactly (chrom, pos); for
// VarKey-keyed datasets that is one record per alternate allele at the
// position.
func (d *Dataset) PositionQuery(chrom string, pos int64) ([]any, error) {
	return d.RangeQuery(chrom, pos, pos)
}

// All decodes every record in the data column family in key order,
// invoking fn for each. Backs the CLI's full-dataset dump.
func (d *Dataset) All(fn func(rec any) error) error {
	return d.DB.ForEach(store.DataBucket, nil, nil, func(key, value []byte) error {
		rec, err := d.decode(value)
		if err != nil {
			return err
		}
		return fn(rec)
	})
}

func (d *Dataset) scanFrom(seekKey []byte, wantID byte, stop int64) ([]any, error) {
	var out []any
	var decodeErr error

	err := d.DB.ForEach(store.DataBucket, seekKey, func(key []byte) bool {
		if len(key) == 0 || key[0] != wantID {
			return true
		}
		_, pos, kerr := keys.DecodePosKey(key)
		if kerr != nil {
			return true
		}
		return pos > stop
	}, func(key, value []byte) error {
		rec, derr := d.decode(value)
		if derr != nil {
			decodeErr = derr
			return derr
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		if decodeErr != nil {
			return nil, decodeErr
		}
		return nil, err
	}

	return out, nil
}
