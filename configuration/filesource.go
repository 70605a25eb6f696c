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

package configuration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileSource maps keys to files below a directory.
type FileSource struct {
	root string
}

func NewFileSource(root string) (*FileSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrBadUri, root)
	}
	return &FileSource{root: root}, nil
}

func (fsrc *FileSource) Get(key string) (string, error) {
	data, err := os.ReadFile(fsrc.pathForKey(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (fsrc *FileSource) GetKeysByPrefix(keyPrefix string) ([]string, error) {
	keys := make([]string, 0)
	base := fsrc.pathForKey(keyPrefix)
	if _, err := os.Stat(base); errors.Is(err, fs.ErrNotExist) {
		return keys, nil
	}
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(fsrc.root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(keys)
	return keys, err
}

func (fsrc *FileSource) Put(key string, value string) error {
	p := fsrc.pathForKey(key)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	return os.WriteFile(p, []byte(value), 0644)
}

func (fsrc *FileSource) Exists(key string) (bool, error) {
	info, err := os.Stat(fsrc.pathForKey(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (fsrc *FileSource) pathForKey(key string) string {
	key = formatKey(key)
	// keys never escape the root
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	return filepath.Join(fsrc.root, strings.TrimPrefix(clean, string(filepath.Separator)))
}
