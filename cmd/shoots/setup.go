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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Comcast/shoots/clip"
	"github.com/Comcast/shoots/config"
	"github.com/Comcast/shoots/conn"
	"github.com/Comcast/shoots/core"
	"github.com/Comcast/shoots/interpreters"
	"github.com/Comcast/shoots/logging"
	"github.com/Comcast/shoots/metrics"
	"github.com/Comcast/shoots/request"

	"github.com/jsccast/yaml"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// env is what the commands share.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	ctx      *core.Context
}

// loadState reads a JSON or YAML object.  An empty filename gives an
// empty state.
func loadState(filename string) (map[string]interface{}, error) {
	if filename == "" {
		return map[string]interface{}{}, nil
	}
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var x interface{}
	if err = yaml.Unmarshal(bs, &x); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	m, err := core.CanonicalState(x)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return m, nil
}

// setup builds the configuration, the logger, and a Context with all
// of its collaborators.
func setup(cmd *cobra.Command, out io.Writer) (*env, error) {
	configFile, _ := cmd.Flags().GetString("config")
	stateFile, _ := cmd.Flags().GetString("state")
	level, _ := cmd.Flags().GetString("log-level")

	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, err
		}
	}
	if level == "" {
		level = cfg.LogLevel
	}
	logger := logging.New(logging.ParseLevel(level))

	state, err := loadState(stateFile)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	c := core.NewContext(core.NewMapState(state))
	c.Logger = logger
	c.Metrics = m
	c.Clipboard = clip.Default()
	c.Emit = printEmitter(out)

	if c.Requests, err = request.New(cfg, request.Options{
		Eval:    c.Eval,
		Logger:  logger,
		Metrics: m,
	}); err != nil {
		return nil, err
	}
	c.Conns = conn.NewManager(conn.Options{
		ConnectTimeout: cfg.ConnectTimeout,
		Logger:         logger,
		Metrics:        m,
	})

	is := interpreters.Standard()
	if cfg.Scripts {
		c.Scripts = is.Find("ecmascript")
	} else {
		c.Scripts = is.Find("noop")
	}

	return &env{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		ctx:      c,
	}, nil
}

// printEmitter writes each emitted event as a line of JSON.
func printEmitter(w io.Writer) core.Emitter {
	return func(ctx context.Context, name string, payload interface{}) error {
		bs, err := eventMessage(name, payload)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", bs)
		return err
	}
}

// eventMessage is the wire form of an emitted event.
func eventMessage(name string, payload interface{}) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"event":   name,
		"payload": payload,
		"at":      core.Timestamp(),
	})
}
