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

// Package peactl implements the Process Equipment Control Utility, a
// command line client of the PECS core HTTP API.
package peactl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/AliceO2Group/ProcessControl/common/logger"
	"github.com/AliceO2Group/ProcessControl/core"
	"github.com/AliceO2Group/ProcessControl/core/recipe"
	"github.com/AliceO2Group/ProcessControl/core/service"
	"github.com/sirupsen/logrus"
)

var log = logger.New(logrus.StandardLogger(), "peactl")

// Client talks to one PECS core.
type Client struct {
	base string
	http *http.Client
}

// NewClient accepts HOST:PORT or a full http(s) URL.
func NewClient(endpoint string) *Client {
	base := strings.TrimSuffix(endpoint, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{base: base, http: &http.Client{}}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.WithField("method", method).
		WithField("path", path).
		Debug("calling core")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var failure struct {
			Error string `json:"error"`
		}
		if err = json.NewDecoder(resp.Body).Decode(&failure); err != nil || failure.Error == "" {
			return fmt.Errorf("%s %s: %s", method, path, resp.Status)
		}
		return fmt.Errorf("%s (%s)", failure.Error, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) ListServices(ctx context.Context, filter string) (statuses []service.Status, err error) {
	path := "/services"
	if filter != "" {
		path += "?filter=" + url.QueryEscape(filter)
	}
	err = c.do(ctx, http.MethodGet, path, nil, &statuses)
	return
}

func (c *Client) GetService(ctx context.Context, name string) (status service.Status, err error) {
	err = c.do(ctx, http.MethodGet, "/services/"+url.PathEscape(name), nil, &status)
	return
}

func (c *Client) Command(ctx context.Context, name string, command string) (result core.CommandResult, err error) {
	path := "/services/" + url.PathEscape(name) + "/commands/" + url.PathEscape(command)
	err = c.do(ctx, http.MethodPost, path, nil, &result)
	return
}

func (c *Client) GetProcedure(ctx context.Context, name string) (p core.Procedure, err error) {
	err = c.do(ctx, http.MethodGet, "/services/"+url.PathEscape(name)+"/procedure", nil, &p)
	return
}

func (c *Client) SetProcedure(ctx context.Context, name string, requested int) (p core.Procedure, err error) {
	err = c.do(ctx, http.MethodPut, "/services/"+url.PathEscape(name)+"/procedure", core.Procedure{Requested: requested}, &p)
	return
}

func (c *Client) ListRecipes(ctx context.Context) (uris []string, err error) {
	err = c.do(ctx, http.MethodGet, "/recipes", nil, &uris)
	return
}

func (c *Client) CheckRecipe(ctx context.Context, uri string, vars map[string]string) (r *recipe.Recipe, err error) {
	r = &recipe.Recipe{}
	err = c.do(ctx, http.MethodPost, "/recipes/check", core.RecipeRequest{Uri: uri, Vars: vars}, r)
	return
}

func (c *Client) RunRecipe(ctx context.Context, uri string, vars map[string]string) (info core.RunInfo, err error) {
	err = c.do(ctx, http.MethodPost, "/recipes/run", core.RecipeRequest{Uri: uri, Vars: vars}, &info)
	return
}

func (c *Client) ListRuns(ctx context.Context) (infos []core.RunInfo, err error) {
	err = c.do(ctx, http.MethodGet, "/runs", nil, &infos)
	return
}

func (c *Client) GetRun(ctx context.Context, id string) (info core.RunInfo, err error) {
	err = c.do(ctx, http.MethodGet, "/runs/"+url.PathEscape(id), nil, &info)
	return
}

func (c *Client) CancelRun(ctx context.Context, id string) (info core.RunInfo, err error) {
	err = c.do(ctx, http.MethodDelete, "/runs/"+url.PathEscape(id), nil, &info)
	return
}
