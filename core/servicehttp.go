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

package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AliceO2Group/ProcessControl/configuration"
	"github.com/AliceO2Group/ProcessControl/core/recipe"
	"github.com/AliceO2Group/ProcessControl/core/service"
	"github.com/AliceO2Group/ProcessControl/core/service/sm"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
)

// CommandResult is the response to POST /services/{name}/commands/{command}.
type CommandResult struct {
	Service  string   `json:"service"`
	Command  string   `json:"command"`
	Accepted bool     `json:"accepted"`
	State    sm.State `json:"state"`
}

// Procedure is the body of GET and PUT /services/{name}/procedure.
// Current is ignored on PUT.
type Procedure struct {
	Requested int `json:"requested"`
	Current   int `json:"current"`
}

// RecipeRequest is the body of POST /recipes/run and POST /recipes/check.
type RecipeRequest struct {
	Uri  string            `json:"uri"`
	Vars map[string]string `json:"vars,omitempty"`
}

type HttpService struct {
	services *service.Manager
	runner   *Runner
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	out, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		log.WithError(err).Warn("cannot marshal HTTP response")
		return
	}
	_, _ = fmt.Fprintln(w, string(out))
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrServiceNotFound),
		errors.Is(err, ErrRunNotFound),
		errors.Is(err, configuration.ErrKeyNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotInitialized):
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func (httpsvc *HttpService) lookupService(w http.ResponseWriter, r *http.Request) (*service.Service, bool) {
	svc, err := httpsvc.services.Get(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, statusForError(err), err)
		return nil, false
	}
	return svc, true
}

func (httpsvc *HttpService) ApiListServices(w http.ResponseWriter, r *http.Request) {
	queryArgs := r.URL.Query()
	services, err := httpsvc.services.Filter(queryArgs.Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch queryArgs.Get("format") {
	case "text":
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		for _, svc := range services {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", svc.Name(), svc.State())
		}
	default:
		statuses := make([]service.Status, 0, len(services))
		for _, svc := range services {
			statuses = append(statuses, svc.Status())
		}
		writeJSON(w, http.StatusOK, statuses)
	}
}

func (httpsvc *HttpService) ApiGetService(w http.ResponseWriter, r *http.Request) {
	svc, ok := httpsvc.lookupService(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, svc.Status())
}

func (httpsvc *HttpService) ApiCommandService(w http.ResponseWriter, r *http.Request) {
	svc, ok := httpsvc.lookupService(w, r)
	if !ok {
		return
	}
	cmd, err := sm.ParseCommand(mux.Vars(r)["command"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	accepted, settled, err := svc.Deliver(r.Context(), cmd)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, CommandResult{
		Service:  svc.Name(),
		Command:  cmd.String(),
		Accepted: accepted,
		State:    settled,
	})
}

func (httpsvc *HttpService) ApiGetProcedure(w http.ResponseWriter, r *http.Request) {
	svc, ok := httpsvc.lookupService(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, Procedure{Requested: svc.ProcedureReq(), Current: svc.ProcedureCur()})
}

func (httpsvc *HttpService) ApiPutProcedure(w http.ResponseWriter, r *http.Request) {
	svc, ok := httpsvc.lookupService(w, r)
	if !ok {
		return
	}
	var body Procedure
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("cannot decode procedure: %w", err))
		return
	}
	if body.Requested < 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid procedure %d", body.Requested))
		return
	}
	svc.SetProcedureReq(body.Requested)
	writeJSON(w, http.StatusOK, Procedure{Requested: svc.ProcedureReq(), Current: svc.ProcedureCur()})
}

func (httpsvc *HttpService) ApiListRecipes(w http.ResponseWriter, r *http.Request) {
	uris, err := httpsvc.runner.Recipes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, uris)
}

func decodeRecipeRequest(w http.ResponseWriter, r *http.Request) (RecipeRequest, bool) {
	var req RecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("cannot decode request: %w", err))
		return req, false
	}
	if strings.TrimSpace(req.Uri) == "" {
		writeError(w, http.StatusBadRequest, errors.New("no recipe URI given"))
		return req, false
	}
	return req, true
}

func (httpsvc *HttpService) ApiCheckRecipe(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRecipeRequest(w, r)
	if !ok {
		return
	}
	parsed, _, err := httpsvc.runner.Check(req.Uri, req.Vars)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, parsed)
}

func (httpsvc *HttpService) ApiRunRecipe(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRecipeRequest(w, r)
	if !ok {
		return
	}
	run, err := httpsvc.runner.Start(req.Uri, req.Vars)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, run.Info())
}

func (httpsvc *HttpService) ApiListRuns(w http.ResponseWriter, r *http.Request) {
	runs := httpsvc.runner.List()
	infos := make([]RunInfo, 0, len(runs))
	for _, run := range runs {
		infos = append(infos, run.Info())
	}
	writeJSON(w, http.StatusOK, infos)
}

func (httpsvc *HttpService) ApiGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := httpsvc.runner.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, run.Info())
}

func (httpsvc *HttpService) ApiCancelRun(w http.ResponseWriter, r *http.Request) {
	run, err := httpsvc.runner.Cancel(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, run.Info())
}

func (httpsvc *HttpService) ApiListKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"operations": recipe.OperationKinds(),
		"conditions": recipe.ConditionKinds(),
	})
}

func newHandlerForHttpService(httpsvc *HttpService, metricsPath string) http.Handler {
	router := mux.NewRouter()

	// service API

	apiServices := router.PathPrefix("/services").Subrouter()
	apiServices.HandleFunc("", httpsvc.ApiListServices).Methods(http.MethodGet)
	apiServices.HandleFunc("/", httpsvc.ApiListServices).Methods(http.MethodGet)
	apiServices.HandleFunc("/{name}", httpsvc.ApiGetService).Methods(http.MethodGet)
	// POST /services/{name}/commands/{command}
	apiServices.HandleFunc("/{name}/commands/{command}", httpsvc.ApiCommandService).Methods(http.MethodPost)
	apiServices.HandleFunc("/{name}/procedure", httpsvc.ApiGetProcedure).Methods(http.MethodGet)
	apiServices.HandleFunc("/{name}/procedure", httpsvc.ApiPutProcedure).Methods(http.MethodPut)

	// recipe API

	apiRecipes := router.PathPrefix("/recipes").Subrouter()
	apiRecipes.HandleFunc("", httpsvc.ApiListRecipes).Methods(http.MethodGet)
	apiRecipes.HandleFunc("/", httpsvc.ApiListRecipes).Methods(http.MethodGet)
	apiRecipes.HandleFunc("/kinds", httpsvc.ApiListKinds).Methods(http.MethodGet)
	apiRecipes.HandleFunc("/check", httpsvc.ApiCheckRecipe).Methods(http.MethodPost)
	apiRecipes.HandleFunc("/run", httpsvc.ApiRunRecipe).Methods(http.MethodPost)

	apiRuns := router.PathPrefix("/runs").Subrouter()
	apiRuns.HandleFunc("", httpsvc.ApiListRuns).Methods(http.MethodGet)
	apiRuns.HandleFunc("/", httpsvc.ApiListRuns).Methods(http.MethodGet)
	apiRuns.HandleFunc("/{id}", httpsvc.ApiGetRun).Methods(http.MethodGet)
	apiRuns.HandleFunc("/{id}", httpsvc.ApiCancelRun).Methods(http.MethodDelete)

	if metricsPath != "" {
		router.Handle(metricsPath, promhttp.Handler()).Methods(http.MethodGet)
	}
	return router
}

// NewHandler returns the control API of services and runner, without
// metrics.
func NewHandler(services *service.Manager, runner *Runner) http.Handler {
	return newHandlerForHttpService(&HttpService{services: services, runner: runner}, "")
}

// NewHttpService starts serving the control API on listenPort. Errors of
// the listener are logged.
func NewHttpService(services *service.Manager, runner *Runner) (svr *http.Server) {
	httpsvc := &HttpService{
		services: services,
		runner:   runner,
	}
	httpsvr := &http.Server{
		Handler:      newHandlerForHttpService(httpsvc, viper.GetString("metrics.path")),
		Addr:         ":" + strconv.Itoa(viper.GetInt("listenPort")),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	// async-start of http Service and capture error
	go func() {
		err := httpsvr.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP service returned error")
		}
	}()
	return httpsvr
}
