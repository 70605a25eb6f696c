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

package configuration_test

import (
	"os"
	"path/filepath"

	"github.com/AliceO2Group/ProcessControl/configuration"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("configuration source", func() {
	Describe("when splitting document URIs", func() {
		It("should split a file URI into directory and file name", func() {
			src, key, err := configuration.SplitDocumentUri("file:///etc/pecs/recipes/brew.yaml")
			Expect(err).NotTo(HaveOccurred())
			Expect(src).To(Equal("file:///etc/pecs/recipes"))
			Expect(key).To(Equal("brew.yaml"))
		})

		It("should split a Consul URI into agent and key", func() {
			src, key, err := configuration.SplitDocumentUri("consul://localhost:8500/pecs/recipes/brew.yaml")
			Expect(err).NotTo(HaveOccurred())
			Expect(src).To(Equal("consul://localhost:8500"))
			Expect(key).To(Equal("pecs/recipes/brew.yaml"))
		})

		It("should reject unknown schemes and keyless URIs", func() {
			_, _, err := configuration.SplitDocumentUri("http://example.com/brew.yaml")
			Expect(err).To(MatchError(configuration.ErrBadUri))
			_, _, err = configuration.SplitDocumentUri("consul://localhost:8500")
			Expect(err).To(MatchError(configuration.ErrBadUri))
			_, _, err = configuration.SplitDocumentUri("file:///etc/pecs/")
			Expect(err).To(MatchError(configuration.ErrBadUri))
		})
	})

	Describe("when interacting with an instance", func() {
		Context("with Consul backend", func() {
			It("should be of type *ConsulSource", func() {
				c, err := configuration.NewSource("consul://dummy:8500/pecs")
				Expect(err).NotTo(HaveOccurred())
				_, ok := c.(*configuration.ConsulSource)
				Expect(ok).To(BeTrue())
			})
		})

		Context("with file backend", func() {
			var (
				root string
				c    configuration.Source
			)

			BeforeEach(func() {
				var err error
				root, err = os.MkdirTemp(tmpDir, "source")
				Expect(err).NotTo(HaveOccurred())
				c, err = configuration.NewSource("file://" + root)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should be of type *FileSource", func() {
				_, ok := c.(*configuration.FileSource)
				Expect(ok).To(BeTrue())
			})

			It("should put and get a value", func() {
				Expect(c.Put("recipes/brew.yaml", "name: brew")).To(Succeed())
				Expect(c.Get("recipes/brew.yaml")).To(Equal("name: brew"))
				Expect(c.Get("/recipes/brew.yaml")).To(Equal("name: brew"))
			})

			It("should report missing keys", func() {
				_, err := c.Get("nope.yaml")
				Expect(err).To(MatchError(configuration.ErrKeyNotFound))
				Expect(c.Exists("nope.yaml")).To(BeFalse())
			})

			It("should not treat directories as keys", func() {
				Expect(c.Put("recipes/brew.yaml", "x")).To(Succeed())
				Expect(c.Exists("recipes")).To(BeFalse())
				Expect(c.Exists("recipes/brew.yaml")).To(BeTrue())
			})

			It("should list keys by prefix", func() {
				Expect(c.Put("recipes/brew.yaml", "x")).To(Succeed())
				Expect(c.Put("recipes/rinse.yaml", "y")).To(Succeed())
				Expect(c.Put("services.yaml", "z")).To(Succeed())
				Expect(c.GetKeysByPrefix("recipes")).To(Equal([]string{"recipes/brew.yaml", "recipes/rinse.yaml"}))
				Expect(c.GetKeysByPrefix("missing")).To(BeEmpty())
			})

			It("should keep keys inside the root", func() {
				Expect(c.Put("../escape.yaml", "x")).To(Succeed())
				_, err := os.Stat(filepath.Join(root, "escape.yaml"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should read a document by URI", func() {
				Expect(c.Put("services.yaml", "services: []")).To(Succeed())
				data, err := configuration.ReadDocument("file://" + filepath.Join(root, "services.yaml"))
				Expect(err).NotTo(HaveOccurred())
				Expect(string(data)).To(Equal("services: []"))
			})
		})

		It("should fail on a file source that is not a directory", func() {
			f, err := os.CreateTemp(tmpDir, "plain")
			Expect(err).NotTo(HaveOccurred())
			f.Close()
			_, err = configuration.NewSource("file://" + f.Name())
			Expect(err).To(HaveOccurred())
		})
	})
})
