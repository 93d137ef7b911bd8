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

package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zymatik-com/annonars/internal/errs"
)

// CreatedFrom names one upstream input a dataset was built from, recorded
// under the spec.yaml sidecar's x-created-from list.
type CreatedFrom struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// SpecFile is the sibling "spec.yaml" every dataset directory carries
// alongside its store file. It is written once, at the end of
// a successful import, and is the machine-readable lineage record the
// /api/v1/versions endpoint surfaces.
type SpecFile struct {
	Identifier    string        `yaml:"dc.identifier"`
	Title         string        `yaml:"dc.title"`
	Creator       string        `yaml:"dc.creator"`
	Contributor   []string      `yaml:"dc.contributor,omitempty"`
	Format        string        `yaml:"dc.format"`
	Date          string        `yaml:"dc.date"`
	Version       string        `yaml:"x-version"`
	GenomeRelease string        `yaml:"x-genome-release,omitempty"`
	Description   string        `yaml:"dc.description"`
	Source        []string      `yaml:"dc.source"`
	CreatedFrom   []CreatedFrom `yaml:"x-created-from"`
}

// SpecFilePath derives the sidecar path for a dataset store file: the same
// directory and basename, with the store's own extension replaced by
// ".spec.yaml".
func SpecFilePath(storePath string) string {
	ext := filepath.Ext(storePath)
	return strings.TrimSuffix(storePath, ext) + ".spec.yaml"
}

// WriteSpecFile marshals s as YAML to the sidecar path for storePath,
// overwriting any existing sidecar. Importers call this once, after
// Compact, so the sidecar only ever describes a complete dataset.
func WriteSpecFile(storePath string, s SpecFile) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: could not marshal spec.yaml: %v", errs.ErrStore, err)
	}

	if err := os.WriteFile(SpecFilePath(storePath), data, 0o644); err != nil {
		return fmt.Errorf("%w: could not write spec.yaml: %v", errs.ErrStore, err)
	}

	return nil
}

// ReadSpecFile reads and parses the sidecar for storePath. It returns
// (nil, nil) if no sidecar exists -- older datasets built before this
// sidecar was introduced, or stores assembled by hand for testing, are not
// an error.
func ReadSpecFile(storePath string) (*SpecFile, error) {
	data, err := os.ReadFile(SpecFilePath(storePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: could not read spec.yaml: %v", errs.ErrStore, err)
	}

	var s SpecFile
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: could not parse spec.yaml: %v", errs.ErrStore, err)
	}

	return &s, nil
}
