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

// Package configuration reads the documents a PECS process is configured
// with, such as service definitions and recipes, from a key-value source.
//
// A document URI names both the source and the key:
//
//	file:///etc/pecs/recipes/brew.yaml
//	consul://localhost:8500/pecs/recipes/brew.yaml
package configuration

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

var (
	ErrBadUri      = errors.New("bad URI for configuration source")
	ErrKeyNotFound = errors.New("key not found")
)

type Source interface {
	Get(key string) (string, error)
	GetKeysByPrefix(keyPrefix string) ([]string, error)
	Put(key string, value string) error
	Exists(key string) (bool, error)
}

// NewSource opens the source rooted at uri: a directory for file://, a
// Consul agent (and optional key prefix) for consul://.
func NewSource(uri string) (Source, error) {
	switch {
	case strings.HasPrefix(uri, "consul://"):
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrBadUri, err)
		}
		return NewConsulSource(u.Host, u.Path)
	case strings.HasPrefix(uri, "file://"):
		return NewFileSource(pathForUri(uri))
	}
	return nil, fmt.Errorf("%w: %s", ErrBadUri, uri)
}

// SplitDocumentUri separates a document URI into the URI of its source and
// the document's key within that source.
func SplitDocumentUri(uri string) (sourceUri string, key string, err error) {
	switch {
	case strings.HasPrefix(uri, "consul://"):
		var u *url.URL
		u, err = url.Parse(uri)
		if err != nil {
			return "", "", fmt.Errorf("%w: %s", ErrBadUri, err)
		}
		key = formatKey(u.Path)
		if u.Host == "" || key == "" {
			return "", "", fmt.Errorf("%w: %s", ErrBadUri, uri)
		}
		return "consul://" + u.Host, key, nil
	case strings.HasPrefix(uri, "file://"):
		path := pathForUri(uri)
		if path == "" || strings.HasSuffix(path, "/") {
			return "", "", fmt.Errorf("%w: %s", ErrBadUri, uri)
		}
		return "file://" + filepath.Dir(path), filepath.Base(path), nil
	}
	return "", "", fmt.Errorf("%w: %s", ErrBadUri, uri)
}

// ReadDocument fetches the document at uri.
func ReadDocument(uri string) ([]byte, error) {
	sourceUri, key, err := SplitDocumentUri(uri)
	if err != nil {
		return nil, err
	}
	src, err := NewSource(sourceUri)
	if err != nil {
		return nil, err
	}
	value, err := src.Get(key)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", uri, err)
	}
	return []byte(value), nil
}

func formatKey(key string) string {
	return strings.TrimLeft(key, "/")
}

func pathForUri(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}
