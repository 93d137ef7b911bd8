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

// Package keys implements the bijection between (chrom, pos) / (chrom, pos,
// ref, alt) tuples and the ordered byte keys used throughout the store, plus
// chromosome name canonicalization.
package keys

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/zymatik-com/annonars/internal/errs"
)

// chromOrder fixes the chrom_id assignment: 1..22, X=23, Y=24, MT=25.
var chromOrder = []string{
	"1", "2", "3", "4", "5", "6", "7", "8", "9", "10",
	"11", "12", "13", "14", "15", "16", "17", "18", "19", "20",
	"21", "22", "X", "Y", "MT",
}

var chromToID = func() map[string]byte {
	m := make(map[string]byte, len(chromOrder))
	for i, c := range chromOrder {
		m[c] = byte(i + 1)
	}
	return m
}()

var idToChrom = func() map[byte]string {
	m := make(map[byte]string, len(chromOrder))
	for i, c := range chromOrder {
		m[byte(i+1)] = c
	}
	return m
}()

// maxPos is the largest position we will ever accept; positions must fit in
// an unsigned 31 bits so that the big-endian encoding never looks negative
// to anything that happens to treat it as signed.
const maxPos = (1 << 31) - 1

// Canonicalize strips a leading "chr" (case-insensitive), aliases "M" to
// "MT", and validates the result against the allowed chromosome set.
func Canonicalize(chrom string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(chrom))
	c = strings.TrimPrefix(c, "CHR")

	if c == "M" {
		c = "MT"
	}

	if _, ok := chromToID[c]; !ok {
		return "", fmt.Errorf("%w: %q", errs.ErrUnknownChromosome, chrom)
	}

	return c, nil
}

// IsCanonical reports whether Canonicalize would succeed for chrom.
func IsCanonical(chrom string) bool {
	_, err := Canonicalize(chrom)
	return err == nil
}

// ChromID returns the fixed small integer identifying a canonical
// chromosome (1..22, X=23, Y=24, MT=25).
func ChromID(chrom string) (byte, error) {
	canon, err := Canonicalize(chrom)
	if err != nil {
		return 0, err
	}

	return chromToID[canon], nil
}

// ChromFromID is the inverse of ChromID.
func ChromFromID(id byte) (string, error) {
	chrom, ok := idToChrom[id]
	if !ok {
		return "", fmt.Errorf("%w: chrom_id %d", errs.ErrUnknownChromosome, id)
	}

	return chrom, nil
}

func validPos(pos int64) error {
	if pos <= 0 || pos > maxPos {
		return fmt.Errorf("position %d out of range (1..%d)", pos, maxPos)
	}

	return nil
}

func validBases(s string) error {
	if len(s) == 0 {
		return fmt.Errorf("empty allele bases")
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= utf8RuneSelf {
			return fmt.Errorf("non-ASCII base in allele %q", s)
		}
	}

	return nil
}

const utf8RuneSelf = 0x80

// PosKeyLen is the fixed length of a PosKey: chrom_id || be_u32(pos).
const PosKeyLen = 1 + 4

// PosKey encodes (chrom, pos) as `chrom_id (1 byte) || be_u32(pos)`.
func PosKey(chrom string, pos int64) ([]byte, error) {
	id, err := ChromID(chrom)
	if err != nil {
		return nil, err
	}

	if err := validPos(pos); err != nil {
		return nil, err
	}

	buf := make([]byte, PosKeyLen)
	buf[0] = id
	binary.BigEndian.PutUint32(buf[1:], uint32(pos))

	return buf, nil
}

// DecodePosKey is the inverse of PosKey. It is total on well-formed input:
// any PosKeyLen-byte slice with a valid chrom_id decodes.
func DecodePosKey(b []byte) (chrom string, pos int64, err error) {
	if len(b) < PosKeyLen {
		return "", 0, fmt.Errorf("pos key too short: %d bytes", len(b))
	}

	chrom, err = ChromFromID(b[0])
	if err != nil {
		return "", 0, err
	}

	pos = int64(binary.BigEndian.Uint32(b[1:PosKeyLen]))

	return chrom, pos, nil
}

// VarKey encodes (chrom, pos, ref, alt) as
// `chrom_id || be_u32(pos) || ref || 0x00 || alt || 0x00`.
//
// Because it shares the PosKey prefix, lexicographic order on VarKey bytes
// agrees with (chrom, pos) order, and PosKey(c, p) <= VarKey(c, p, *, *).
func VarKey(chrom string, pos int64, ref, alt string) ([]byte, error) {
	prefix, err := PosKey(chrom, pos)
	if err != nil {
		return nil, err
	}

	if err := validBases(ref); err != nil {
		return nil, err
	}
	if err := validBases(alt); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, len(prefix)+len(ref)+len(alt)+2)
	buf = append(buf, prefix...)
	buf = append(buf, ref...)
	buf = append(buf, 0x00)
	buf = append(buf, alt...)
	buf = append(buf, 0x00)

	return buf, nil
}

// DecodeVarKey is the inverse of VarKey. Decoding is total for any byte
// string actually produced by VarKey.
func DecodeVarKey(b []byte) (chrom string, pos int64, ref, alt string, err error) {
	chrom, pos, err = DecodePosKey(b)
	if err != nil {
		return "", 0, "", "", err
	}

	rest := b[PosKeyLen:]

	nul := indexByte(rest, 0x00)
	if nul < 0 {
		return "", 0, "", "", fmt.Errorf("var key missing ref terminator")
	}
	ref = string(rest[:nul])
	rest = rest[nul+1:]

	nul = indexByte(rest, 0x00)
	if nul < 0 {
		return "", 0, "", "", fmt.Errorf("var key missing alt terminator")
	}
	alt = string(rest[:nul])

	return chrom, pos, ref, alt, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// FormatSPDI renders a canonical SPDI-like identifier: RELEASE:CHROM:POS:REF:ALT.
func FormatSPDI(release, chrom string, pos int64, ref, alt string) string {
	return release + ":" + chrom + ":" + strconv.FormatInt(pos, 10) + ":" + ref + ":" + alt
}
