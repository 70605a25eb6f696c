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
	"fmt"
	"path"
	"strings"

	"github.com/hashicorp/consul/api"
)

type ConsulSource struct {
	prefix string
	kv     *api.KV
}

// NewConsulSource connects to the agent at address. Keys are resolved under
// prefix.
func NewConsulSource(address string, prefix string) (cc *ConsulSource, err error) {
	cfg := api.DefaultConfig()
	if address != "" {
		cfg.Address = address
	}
	cli, err := api.NewClient(cfg)
	if err != nil {
		return
	}
	cc = &ConsulSource{
		prefix: formatKey(prefix),
		kv:     cli.KV(),
	}
	return
}

func (cc *ConsulSource) Get(key string) (value string, err error) {
	var kvp *api.KVPair
	kvp, _, err = cc.kv.Get(cc.fullKey(key), nil)
	if err != nil {
		return
	}
	if kvp == nil {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	value = string(kvp.Value[:])
	return
}

// GetKeysByPrefix lists the keys under keyPrefix, relative to the source
// prefix.
func (cc *ConsulSource) GetKeysByPrefix(keyPrefix string) (keys []string, err error) {
	requestKey := cc.fullKey(keyPrefix)
	// Without a trailing separator we would also get the siblings of
	// keyPrefix that share its name as a prefix.
	if len(requestKey) > 0 {
		requestKey = strings.TrimSuffix(requestKey, "/") + "/"
	}
	var raw []string
	raw, _, err = cc.kv.Keys(requestKey, "", nil)
	if err != nil {
		return
	}
	keys = make([]string, 0, len(raw))
	for _, k := range raw {
		if strings.HasSuffix(k, "/") {
			continue
		}
		keys = append(keys, cc.relativeKey(k))
	}
	return
}

func (cc *ConsulSource) Put(key string, value string) (err error) {
	kvp := &api.KVPair{Key: cc.fullKey(key), Value: []byte(value)}
	_, err = cc.kv.Put(kvp, nil)
	return
}

func (cc *ConsulSource) Exists(key string) (exists bool, err error) {
	kvp, _, err := cc.kv.Get(cc.fullKey(key), nil)
	if err != nil {
		return
	}
	exists = kvp != nil
	return
}

func (cc *ConsulSource) fullKey(key string) string {
	key = formatKey(key)
	if cc.prefix == "" {
		return key
	}
	if key == "" {
		return cc.prefix
	}
	return path.Join(cc.prefix, key)
}

func (cc *ConsulSource) relativeKey(fullKey string) string {
	if cc.prefix == "" {
		return fullKey
	}
	return strings.TrimPrefix(strings.TrimPrefix(fullKey, cc.prefix), "/")
}
