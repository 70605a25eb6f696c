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

// Package control handles the details of control calls to the PECS core,
// and of the calls peactl can serve on its own.
package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/AliceO2Group/ProcessControl/common/logger"
	"github.com/AliceO2Group/ProcessControl/peactl"
	"github.com/briandowns/spinner"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	CALL_TIMEOUT = 55 * time.Second
	SPINNER_TICK = 100 * time.Millisecond
)

var log = logger.New(logrus.StandardLogger(), "peactl")

type RunFunc func(*cobra.Command, []string)

type ControlCall func(context.Context, *peactl.Client, *cobra.Command, []string, io.Writer) error

// LocalCall is a call served by peactl itself, without a core.
type LocalCall func(context.Context, *cobra.Command, []string, io.Writer) error

func WrapCall(call ControlCall) RunFunc {
	return WrapLocalCall(func(ctx context.Context, cmd *cobra.Command, args []string, o io.Writer) error {
		endpoint := viper.GetString("endpoint")
		log.WithPrefix(cmd.Use).
			WithField("endpoint", endpoint).
			Debug("initializing HTTP client")
		return call(ctx, peactl.NewClient(endpoint), cmd, args, o)
	})
}

func WrapLocalCall(call LocalCall) RunFunc {
	return func(cmd *cobra.Command, args []string) {
		s := spinner.New(spinner.CharSets[11], SPINNER_TICK)
		_ = s.Color("yellow")
		s.Suffix = " working..."
		s.Start()

		timeout := CALL_TIMEOUT
		if flag := cmd.Flags().Lookup("timeout"); flag != nil {
			if d, err := time.ParseDuration(flag.Value.String()); err == nil && d > 0 {
				timeout = d
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var out strings.Builder
		err := call(ctx, cmd, args, &out)
		s.Stop()
		if err != nil {
			fmt.Print(out.String())
			log.WithPrefix(cmd.Use).
				WithError(err).
				Error("command finished with error")
			os.Exit(1)
		}

		fmt.Print(out.String())
	}
}

// WrapStreamingCall runs call with its output going straight to stdout,
// until it returns or the process is interrupted.
func WrapStreamingCall(call LocalCall) RunFunc {
	return func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if flag := cmd.Flags().Lookup("timeout"); flag != nil {
			if d, err := time.ParseDuration(flag.Value.String()); err == nil && d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}
		}

		if err := call(ctx, cmd, args, os.Stdout); err != nil {
			log.WithPrefix(cmd.Use).
				WithError(err).
				Error("command finished with error")
			os.Exit(1)
		}
	}
}

func varsFromFlags(cmd *cobra.Command) (map[string]string, error) {
	pairs, err := cmd.Flags().GetStringToString("var")
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

func ListServices(ctx context.Context, client *peactl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	filter, err := cmd.Flags().GetString("filter")
	if err != nil {
		return
	}
	statuses, err := client.ListServices(ctx, filter)
	if err != nil {
		return
	}
	if len(statuses) == 0 {
		_, _ = fmt.Fprintln(o, "no services")
		return nil
	}

	table := newTable(o, []string{"name", "state", "procedure req", "procedure cur"})
	for _, st := range statuses {
		table.Append([]string{
			st.Name,
			colorState(st.State.String()),
			strconv.Itoa(st.ProcedureReq),
			strconv.Itoa(st.ProcedureCur),
		})
	}
	table.Render()
	return nil
}

func ShowService(ctx context.Context, client *peactl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	st, err := client.GetService(ctx, args[0])
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(o, "service:        %s\n", st.Name)
	_, _ = fmt.Fprintf(o, "state:          %s\n", colorState(st.State.String()))
	_, _ = fmt.Fprintf(o, "procedure req:  %d\n", st.ProcedureReq)
	_, _ = fmt.Fprintf(o, "procedure cur:  %d\n", st.ProcedureCur)

	commands := make([]string, 0, len(st.CommandEnabled))
	for c := range st.CommandEnabled {
		commands = append(commands, c)
	}
	sort.Strings(commands)
	enabled := make([]string, 0, len(commands))
	for _, c := range commands {
		if st.CommandEnabled[c] {
			enabled = append(enabled, green(c))
		} else {
			enabled = append(enabled, grey(c))
		}
	}
	_, _ = fmt.Fprintf(o, "commands:       %s\n", strings.Join(enabled, " "))
	return nil
}

func CommandService(ctx context.Context, client *peactl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	result, err := client.Command(ctx, args[0], args[1])
	if err != nil {
		return
	}
	if !result.Accepted {
		return fmt.Errorf("%s not enabled for %s in state %s", result.Command, result.Service, result.State)
	}
	_, _ = fmt.Fprintf(o, "%s accepted, %s is now %s\n", result.Command, result.Service, colorState(result.State.String()))
	return nil
}

// Procedure shows the procedure of a service, or requests a new one when
// given a second argument.
func Procedure(ctx context.Context, client *peactl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	if len(args) == 2 {
		requested, convErr := strconv.Atoi(args[1])
		if convErr != nil || requested < 0 {
			return fmt.Errorf("invalid procedure %q", args[1])
		}
		proc, err := client.SetProcedure(ctx, args[0], requested)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(o, "requested: %s\ncurrent:   %d\n", blue(proc.Requested), proc.Current)
		return nil
	}
	proc, err := client.GetProcedure(ctx, args[0])
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(o, "requested: %d\ncurrent:   %d\n", proc.Requested, proc.Current)
	return nil
}

func ListRecipes(ctx context.Context, client *peactl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	uris, err := client.ListRecipes(ctx)
	if err != nil {
		return
	}
	if len(uris) == 0 {
		_, _ = fmt.Fprintln(o, "no recipes")
	}
	for _, uri := range uris {
		_, _ = fmt.Fprintln(o, uri)
	}
	return nil
}

func CheckRecipe(ctx context.Context, client *peactl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	vars, err := varsFromFlags(cmd)
	if err != nil {
		return
	}
	r, err := client.CheckRecipe(ctx, args[0], vars)
	if err != nil {
		return
	}
	drawRecipe(r, o)
	_, _ = fmt.Fprintf(o, "recipe %s is %s\n", r.Name, green("valid"))
	return nil
}

func RunRecipe(ctx context.Context, client *peactl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	vars, err := varsFromFlags(cmd)
	if err != nil {
		return
	}
	info, err := client.RunRecipe(ctx, args[0], vars)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(o, "recipe %s started\n", info.Recipe)
	_, _ = fmt.Fprintf(o, "run id:  %s\n", grey(info.Id))
	_, _ = fmt.Fprintf(o, "status:  %s\n", colorRunStatus(info.Status))
	return nil
}

func ListRuns(ctx context.Context, client *peactl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	infos, err := client.ListRuns(ctx)
	if err != nil {
		return
	}
	if len(infos) == 0 {
		_, _ = fmt.Fprintln(o, "no recipe runs")
		return nil
	}
	table := newTable(o, []string{"id", "recipe", "started", "status", "marking"})
	for _, info := range infos {
		table.Append([]string{
			info.Id,
			info.Recipe,
			formatTimestamp(info.StartedAt),
			colorRunStatus(info.Status),
			strings.Join(info.Marking, ", "),
		})
	}
	table.Render()
	return nil
}

func ShowRun(ctx context.Context, client *peactl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	info, err := client.GetRun(ctx, args[0])
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(o, "run id:   %s\n", grey(info.Id))
	_, _ = fmt.Fprintf(o, "recipe:   %s (%s)\n", info.Recipe, info.Uri)
	_, _ = fmt.Fprintf(o, "started:  %s\n", formatTimestamp(info.StartedAt))
	_, _ = fmt.Fprintf(o, "status:   %s\n", colorRunStatus(info.Status))
	_, _ = fmt.Fprintf(o, "marking:  %s\n", strings.Join(info.Marking, ", "))
	for _, id := range sortedFailureIds(info.Failures) {
		_, _ = fmt.Fprintf(o, "failed:   %s: %s\n", red(id), info.Failures[id])
	}
	return nil
}

func CancelRun(ctx context.Context, client *peactl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	info, err := client.CancelRun(ctx, args[0])
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(o, "run %s is %s\n", info.Id, colorRunStatus(info.Status))
	return nil
}

func StateMachineTable(_ context.Context, cmd *cobra.Command, args []string, o io.Writer) error {
	if len(args) != 0 {
		return errors.New("statemachine table takes no arguments")
	}
	drawStateMachineTable(o)
	return nil
}
