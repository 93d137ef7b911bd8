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

// Package errs defines the error taxonomy shared across importers, the
// query engine, and the HTTP surface, so that each layer can classify a
// failure without string matching.
package errs

import "errors"

var (
	// ErrInputFormat marks a malformed upstream line/record. Lenient
	// importers log and skip; strict importers treat it as fatal.
	ErrInputFormat = errors.New("input format error")

	// ErrSchemaIncompatible marks TSV schemas that cannot be merged
	// under the promotion lattice.
	ErrSchemaIncompatible = errors.New("schema incompatible")

	// ErrUnknownChromosome marks a non-canonical chromosome string.
	ErrUnknownChromosome = errors.New("unknown chromosome")

	// ErrMissingMetadata marks a required meta key absent on open.
	ErrMissingMetadata = errors.New("missing metadata")

	// ErrDatasetVersionUnsupported marks a meta:db-version the engine
	// cannot dispatch.
	ErrDatasetVersionUnsupported = errors.New("dataset version unsupported")

	// ErrDuplicateKeyInStream marks a key seen twice within one
	// cohort/stream where at most one occurrence is expected.
	ErrDuplicateKeyInStream = errors.New("duplicate key in stream")

	// ErrDecodeFailure marks a stored value that cannot be decoded
	// under its expected schema.
	ErrDecodeFailure = errors.New("decode failure")

	// ErrStore marks an underlying store I/O failure.
	ErrStore = errors.New("store error")

	// ErrDatasetNotOpened marks a query against a dataset/release for
	// which no store handle has been opened.
	ErrDatasetNotOpened = errors.New("dataset not opened")

	// ErrMissingRelease marks a query with no recognized genome release.
	ErrMissingRelease = errors.New("missing release")
)
