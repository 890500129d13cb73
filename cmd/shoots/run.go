/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/Comcast/shoots/core"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	yaml2 "gopkg.in/yaml.v2"
)

var runCmd = &cobra.Command{
	Use:   "run FILE",
	Short: "Execute an action tree",
	Long: `Executes the actions in FILE (JSON or YAML) against the state and
prints the final state.  Emitted events are printed as JSON lines or
published to an MQTT topic.  With --wait, shoots keeps running so that
connection callbacks can fire.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFile(cmd, args[0], cmd.OutOrStdout())
	},
}

func init() {
	runCmd.Flags().String("mqtt", "", "MQTT broker URL (tcp://host:1883) for emitted events")
	runCmd.Flags().String("topic", "shoots/events", "MQTT topic for emitted events")
	runCmd.Flags().String("metrics", "", "address for a Prometheus /metrics endpoint")
	runCmd.Flags().Duration("wait", 0, "how long to wait for connection callbacks after the actions finish")
	runCmd.Flags().String("format", "json", "output format for the final state: json or yaml")
	rootCmd.AddCommand(runCmd)
}

func runFile(cmd *cobra.Command, filename string, out io.Writer) error {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	as, err := core.ParseYAML(bs)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	e, err := setup(cmd, out)
	if err != nil {
		return err
	}
	c := e.ctx
	defer c.Dispose()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if broker, _ := cmd.Flags().GetString("mqtt"); broker != "" {
		topic, _ := cmd.Flags().GetString("topic")
		sink, err := newMQTTSink(broker, topic, e.logger)
		if err != nil {
			return err
		}
		defer sink.Close()
		c.Emit = sink.Emit
	}

	if addr, _ := cmd.Flags().GetString("metrics"); addr != "" {
		srv := &http.Server{Addr: addr, Handler: metricsRouter(e.registry)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				e.logger.Error("metrics server", "err", err)
			}
		}()
		defer srv.Close()
	}

	if err = c.ExecuteActions(ctx, as); err != nil {
		return err
	}

	if wait, _ := cmd.Flags().GetDuration("wait"); 0 < wait {
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}

	format, _ := cmd.Flags().GetString("format")
	return render(out, c.State.Snapshot(), format)
}

// metricsRouter serves the registry at /metrics.
func metricsRouter(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return r
}

func render(w io.Writer, x interface{}, format string) error {
	var (
		bs  []byte
		err error
	)
	switch format {
	case "yaml":
		bs, err = yaml2.Marshal(x)
	case "json", "":
		bs, err = json.MarshalIndent(x, "", "  ")
		bs = append(bs, '\n')
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(bs)
	return err
}
