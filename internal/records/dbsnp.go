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

import "github.com/zymatik-com/annonars/internal/records/wire"

// DBSNPRecord is the dbSNP record keyed by VarKey: rsID, variant class,
// and the assembly build it was reported against.
type DBSNPRecord struct {
	RSID         int64  `json:"rsid"`
	Chrom        string `json:"chrom"`
	Pos          int64  `json:"pos"`
	Ref          string `json:"ref"`
	Alt          string `json:"alt"`
	VariantClass string `json:"variant_class"`
	Assembly     string `json:"assembly"`
}

const (
	tagDBSNPRSID = iota + 1
	tagDBSNPChrom
	tagDBSNPPos
	tagDBSNPRef
	tagDBSNPAlt
	tagDBSNPVariantClass
	tagDBSNPAssembly
)

func (r DBSNPRecord) Encode() ([]byte, error) {
	w := wire.NewWriter()
	w.WriteInt64(tagDBSNPRSID, r.RSID)
	w.WriteString(tagDBSNPChrom, r.Chrom)
	w.WriteInt64(tagDBSNPPos, r.Pos)
	w.WriteString(tagDBSNPRef, r.Ref)
	w.WriteString(tagDBSNPAlt, r.Alt)
	w.WriteString(tagDBSNPVariantClass, r.VariantClass)
	w.WriteString(tagDBSNPAssembly, r.Assembly)
	return w.Bytes(), nil
}

func DecodeDBSNPRecord(b []byte) (*DBSNPRecord, error) {
	fields, err := wire.NewReader(b).Fields()
	if err != nil {
		return nil, err
	}

	r := &DBSNPRecord{}
	if p, ok := fields[tagDBSNPRSID]; ok {
		if r.RSID, err = wire.ParseInt64(p[0]); err != nil {
			return nil, err
		}
	}
	if p, ok := fields[tagDBSNPChrom]; ok {
		r.Chrom = wire.ParseString(p[0])
	}
	if p, ok := fields[tagDBSNPPos]; ok {
		if r.Pos, err = wire.ParseInt64(p[0]); err != nil {
			return nil, err
		}
	}
	if p, ok := fields[tagDBSNPRef]; ok {
		r.Ref = wire.ParseString(p[0])
	}
	if p, ok := fields[tagDBSNPAlt]; ok {
		r.Alt = wire.ParseString(p[0])
	}
	if p, ok := fields[tagDBSNPVariantClass]; ok {
		r.VariantClass = wire.ParseString(p[0])
	}
	if p, ok := fields[tagDBSNPAssembly]; ok {
		r.Assembly = wire.ParseString(p[0])
	}

	return r, nil
}
