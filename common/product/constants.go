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

// Package product holds name and version information of the process
// equipment control system binaries.
package product

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var ( // Acquired from -ldflags="-X=..." in Makefile
	VERSION_MAJOR = "0"
	VERSION_MINOR = "0"
	VERSION_PATCH = "0"
	BUILD         = ""
)

var (
	NAME             = "pecs"
	PRETTY_SHORTNAME = "PECS"
	PRETTY_FULLNAME  = "Process Equipment Control System"
	VERSION          string
	VERSION_BUILD    string
)

func init() {
	// Built with go build directly instead of make
	if VERSION_MAJOR == "0" && VERSION_MINOR == "0" && VERSION_PATCH == "0" && BUILD == "" {
		basePath := filepath.Dir(executableDir())
		readVersionFile(filepath.Join(basePath, "VERSION"))
		BUILD = revisionFromGit(basePath)
	}

	VERSION = strings.Join([]string{VERSION_MAJOR, VERSION_MINOR, VERSION_PATCH}, ".")
	VERSION_BUILD = VERSION
	if BUILD != "" {
		VERSION_BUILD = strings.Join([]string{VERSION, BUILD}, "-")
	}
}

func executableDir() string {
	ex, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(ex)
}

// readVersionFile parses lines of the form VERSION_MAJOR := 1
func readVersionFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), ":=")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "VERSION_MAJOR":
			VERSION_MAJOR = value
		case "VERSION_MINOR":
			VERSION_MINOR = value
		case "VERSION_PATCH":
			VERSION_PATCH = value
		}
	}
}

// revisionFromGit is the equivalent of git rev-parse --short HEAD, best-effort.
func revisionFromGit(repoPath string) string {
	r, err := git.PlainOpen(repoPath)
	if err != nil {
		return ""
	}
	h, err := r.ResolveRevision(plumbing.Revision("HEAD"))
	if err != nil {
		return ""
	}
	return h.String()[:7]
}
