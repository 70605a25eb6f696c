/*
 * === This file is part of ALICE O² ===
 *
 * Copyright 2024 CERN and copyright holders of ALICE O².
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 * In applying this license CERN does not waive the privileges and
 * immunities granted to it by virtue of its status as an
 * Intergovernmental Organization or submit itself to any jurisdiction.
 */

package recipe

import (
	"strings"

	"github.com/AliceO2Group/ProcessControl/configuration"
)

// Load reads the recipe document at uri (file:// or consul://) and parses
// it with overrides laid over its vars.
func Load(uri string, overrides map[string]string) (*Recipe, error) {
	raw, err := configuration.ReadDocument(uri)
	if err != nil {
		return nil, err
	}
	return Parse(raw, overrides)
}

// List returns the document URIs of the recipes stored under sourceUri.
func List(sourceUri string) ([]string, error) {
	src, err := configuration.NewSource(sourceUri)
	if err != nil {
		return nil, err
	}
	keys, err := src.GetKeysByPrefix("")
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(sourceUri, "/")
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasSuffix(k, ".yaml") || strings.HasSuffix(k, ".yml") {
			out = append(out, base+"/"+k)
		}
	}
	return out, nil
}
