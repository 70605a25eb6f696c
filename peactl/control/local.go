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

package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/AliceO2Group/ProcessControl/common/event"
	"github.com/AliceO2Group/ProcessControl/core"
	"github.com/AliceO2Group/ProcessControl/core/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// documentUri accepts a local path as well as a configuration URI.
func documentUri(arg string) (string, error) {
	if strings.Contains(arg, "://") {
		return arg, nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", err
	}
	return "file://" + abs, nil
}

// localServices builds and starts the services of the definitions document
// given with --services.
func localServices(ctx context.Context, cmd *cobra.Command, writer event.Writer) (*service.Manager, error) {
	servicesArg, err := cmd.Flags().GetString("services")
	if err != nil {
		return nil, err
	}
	if servicesArg == "" {
		return nil, errors.New("a services document is required with --local, pass it with --services")
	}
	uri, err := documentUri(servicesArg)
	if err != nil {
		return nil, err
	}
	defs, err := service.LoadDefinitions(uri)
	if err != nil {
		return nil, err
	}
	services, err := service.NewManagerFromDefinitions(defs, service.WithEventWriter(writer))
	if err != nil {
		return nil, err
	}
	if err = services.StartAll(ctx); err != nil {
		return nil, err
	}
	return services, nil
}

// printingWriter renders events as lines on a shared output.
type printingWriter struct {
	mu sync.Mutex
	o  io.Writer
}

func (w *printingWriter) WriteEvent(e event.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = fmt.Fprintf(w.o, "%s  %-24s %s\n", formatTimestamp(e.GetTimestamp()), yellow(e.GetName()), e.GetKey())
}

func (*printingWriter) Close() {}

func CheckRecipeLocal(ctx context.Context, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	vars, err := varsFromFlags(cmd)
	if err != nil {
		return
	}
	services, err := localServices(ctx, cmd, &event.DummyWriter{})
	if err != nil {
		return
	}
	uri, err := documentUri(args[0])
	if err != nil {
		return
	}
	r, _, err := core.NewRunner(ctx, services, nil, "").Check(uri, vars)
	if err != nil {
		return
	}
	drawRecipe(r, o)
	_, _ = fmt.Fprintf(o, "recipe %s is %s\n", r.Name, green("valid"))
	return nil
}

// RunRecipeLocal runs a recipe in process against the services of a
// definitions document, printing events until the run ends.
func RunRecipeLocal(ctx context.Context, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	vars, err := varsFromFlags(cmd)
	if err != nil {
		return
	}
	writer := &printingWriter{o: o}
	services, err := localServices(ctx, cmd, writer)
	if err != nil {
		return
	}
	uri, err := documentUri(args[0])
	if err != nil {
		return
	}

	runner := core.NewRunner(ctx, services, writer, "")
	run, err := runner.Start(uri, vars)
	if err != nil {
		return
	}
	waitErr := run.Wait(ctx)
	runner.CancelAll(context.Background())

	info := run.Info()
	for _, id := range sortedFailureIds(info.Failures) {
		_, _ = fmt.Fprintf(o, "failed:  %s: %s\n", red(id), info.Failures[id])
	}
	_, _ = fmt.Fprintf(o, "run %s of %s is %s\n", grey(info.Id), info.Recipe, colorRunStatus(info.Status))
	for name, state := range services.States() {
		log.WithField("service", name).
			WithField("state", state).
			Debug("final service state")
	}
	return waitErr
}

// WatchEvents follows every event topic on the configured Kafka brokers
// until interrupted.
func WatchEvents(ctx context.Context, cmd *cobra.Command, args []string, o io.Writer) error {
	brokers := viper.GetStringSlice("kafkaEndpoints")
	if len(brokers) == 0 {
		return errors.New("no kafka endpoints configured")
	}
	group, err := cmd.Flags().GetString("group")
	if err != nil {
		return err
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	errs := make(chan error, len(event.Topics()))
	for _, t := range event.Topics() {
		reader := event.NewReaderWithTopic(brokers, t, group)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer reader.Close()
			for {
				payload, err := reader.Next(ctx)
				if err != nil {
					if ctx.Err() == nil {
						errs <- err
					}
					return
				}
				fields := payload.AsMap()
				mu.Lock()
				_, _ = fmt.Fprintf(o, "%-24s %v\n", yellow(fields["_messageType"]), fields)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errs)
	if err, ok := <-errs; ok {
		return err
	}
	return nil
}
