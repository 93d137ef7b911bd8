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

// Package compress auto-detects and transparently decompresses upstream
// dataset files (gzip, bgzip, bzip2, zstd, xz, lz4, zlib, or plain text),
// so importers never need to know ahead of time how a release happens to
// be packaged. Writer exists for the inverse direction, chosen by file
// extension, used only by the rare path that re-emits a derived artifact.
package compress

import (
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	gzip "github.com/klauspost/pgzip"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

type autoDecompressingReadCloser struct {
	io.Reader
	close func() error
}

func (r *autoDecompressingReadCloser) Close() error {
	if r.close != nil {
		return r.close()
	}
	return nil
}

// Reader wraps r in a decompressing reader chosen by sniffing its first
// bytes. Plain-text (and bgzip, which is valid gzip) streams both fall
// into the gzip case or the no-op default, whichever the magic bytes say.
func Reader(r io.Reader) (io.ReadCloser, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("could not sniff stream header: %w", err)
	}
	buf = buf[:n]

	r = io.MultiReader(bytes.NewReader(buf), r)

	switch {
	case bytes.HasPrefix(buf, []byte{0x42, 0x5A, 0x68}): // BZIP2
		return &autoDecompressingReadCloser{Reader: bzip2.NewReader(r)}, nil
	case len(buf) >= 2 && bytes.Equal(buf[0:2], []byte{0x1F, 0x8B}): // GZIP / BGZF
		gzReader, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("could not open gzip stream: %w", err)
		}
		return &autoDecompressingReadCloser{Reader: gzReader, close: gzReader.Close}, nil
	case bytes.HasPrefix(buf, []byte{0x04, 0x22, 0x4D, 0x18}): // LZ4
		return &autoDecompressingReadCloser{Reader: lz4.NewReader(r)}, nil
	case bytes.HasPrefix(buf, []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}): // XZ
		xzReader, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("could not open xz stream: %w", err)
		}
		return &autoDecompressingReadCloser{Reader: xzReader}, nil
	case len(buf) >= 2 && (bytes.Equal(buf[0:2], []byte{0x78, 0x01}) ||
		bytes.Equal(buf[0:2], []byte{0x78, 0x9C}) ||
		bytes.Equal(buf[0:2], []byte{0x78, 0xDA})): // ZLIB
		zlibReader, err := zlib.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("could not open zlib stream: %w", err)
		}
		return &autoDecompressingReadCloser{Reader: zlibReader, close: zlibReader.Close}, nil
	case bytes.HasPrefix(buf, []byte{0x28, 0xB5, 0x2F, 0xFD}): // ZSTD
		zstdReader, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("could not open zstd stream: %w", err)
		}
		return &autoDecompressingReadCloser{Reader: zstdReader, close: func() error {
			zstdReader.Close()
			return nil
		}}, nil
	}

	return &autoDecompressingReadCloser{Reader: r}, nil
}

// OpenFile opens path and wraps it with Reader, so every importer entry
// point can take a raw upstream path without caring how it was shipped.
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}

	rc, err := Reader(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &fileBackedReadCloser{ReadCloser: rc, file: f}, nil
}

type fileBackedReadCloser struct {
	io.ReadCloser
	file *os.File
}

func (f *fileBackedReadCloser) Close() error {
	err := f.ReadCloser.Close()
	if cerr := f.file.Close(); err == nil {
		err = cerr
	}
	return err
}

type autoCompressingWriteCloser struct {
	io.WriteCloser
}

// Writer picks a compressor by the suffix of name, defaulting to gzip.
func Writer(name string, w io.Writer) (io.WriteCloser, error) {
	switch {
	case strings.HasSuffix(name, ".lz4"):
		return &autoCompressingWriteCloser{WriteCloser: lz4.NewWriter(w)}, nil
	case strings.HasSuffix(name, ".xz"):
		xzWriter, err := xz.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("could not open xz writer: %w", err)
		}
		return &autoCompressingWriteCloser{WriteCloser: xzWriter}, nil
	case strings.HasSuffix(name, ".zst"):
		zstdWriter, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("could not open zstd writer: %w", err)
		}
		return &autoCompressingWriteCloser{WriteCloser: zstdWriter}, nil
	default:
		return &autoCompressingWriteCloser{WriteCloser: gzip.NewWriter(w)}, nil
	}
}
