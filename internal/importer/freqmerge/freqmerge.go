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

// Package freqmerge streams N per-cohort frequency stores (typically
// gnomAD exomes + gnomAD genomes) and fuses records sharing a VarKey
// into a single output record. The merge is a textbook N-way sorted
// merge kept as a container/heap priority queue, rather than the
// "have genome / have exome / same key / advance" case enumeration a
// hand-rolled two-way version tends toward -- it generalizes for free
// to a third or fourth cohort source.
package freqmerge

import (
	"container/heap"
	"fmt"

	"github.com/zymatik-com/annonars/internal/errs"
	"github.com/zymatik-com/annonars/internal/records"
	"github.com/zymatik-com/annonars/internal/store"
)

// cursor adapts one source's data column family into a peekable
// stream. It is only valid for the lifetime of the store.Cursor it
// wraps, i.e. within the enclosing store.DB.WithCursor call.
type cursor struct {
	cf       *store.Cursor
	key, val []byte
	done     bool
}

func newCursor(c *store.Cursor) *cursor {
	c.Seek(nil)
	cur := &cursor{cf: c}
	cur.advance()
	return cur
}

func (c *cursor) advance() {
	if !c.cf.Valid() {
		c.done = true
		c.key, c.val = nil, nil
		return
	}
	c.key = append([]byte(nil), c.cf.Key()...)
	c.val = append([]byte(nil), c.cf.Value()...)
	c.cf.Next()
}

// heapQueue orders open cursors by current key, ascending.
type heapQueue []*cursor

func (h heapQueue) Len() int           { return len(h) }
func (h heapQueue) Less(i, j int) bool { return string(h[i].key) < string(h[j].key) }
func (h heapQueue) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *heapQueue) Push(x any) { *h = append(*h, x.(*cursor)) }

func (h *heapQueue) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Merge reads every record out of sources (each a dataset store open in
// any mode, data column family only) in VarKey order, fuses records
// sharing a key via records.MergeFrequency, and writes the result into
// out's data column family.
//
// bbolt read transactions are scoped to the WithCursor call that opens
// them, so every source's cursor is opened via a nested closure: all N
// transactions stay open simultaneously for the duration of the merge,
// then unwind together once it completes.
func Merge(sources []*store.DB, out *store.DB) error {
	return openCursors(sources, nil, out)
}

func openCursors(remaining []*store.DB, opened []*cursor, out *store.DB) error {
	if len(remaining) == 0 {
		return runMerge(opened, out)
	}

	return remaining[0].WithCursor(store.DataBucket, func(c *store.Cursor) error {
		cur := newCursor(c)
		return openCursors(remaining[1:], append(opened, cur), out)
	})
}

func runMerge(cursors []*cursor, out *store.DB) error {
	h := make(heapQueue, 0, len(cursors))
	for _, c := range cursors {
		if !c.done {
			h = append(h, c)
		}
	}
	heap.Init(&h)

	for h.Len() > 0 {
		first := h[0]
		key := first.key

		merged, err := records.DecodeFrequencyRecord(first.val)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrDecodeFailure, err)
		}

		// Drain every open cursor currently sitting on this key.
		for h.Len() > 0 && string(h[0].key) == string(key) {
			top := h[0]
			if top != first {
				other, err := records.DecodeFrequencyRecord(top.val)
				if err != nil {
					return fmt.Errorf("%w: %v", errs.ErrDecodeFailure, err)
				}

				fused, err := records.MergeFrequency(*merged, *other)
				if err != nil {
					return fmt.Errorf("%w: %v", errs.ErrDuplicateKeyInStream, err)
				}
				merged = &fused
			}

			top.advance()
			if top.done {
				heap.Pop(&h)
			} else {
				heap.Fix(&h, 0)
			}
		}

		enc, err := merged.Encode()
		if err != nil {
			return err
		}
		if err := out.Put(store.DataBucket, key, enc); err != nil {
			return err
		}
	}

	return nil
}
