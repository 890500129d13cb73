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

// Package config is the global configuration object consulted by the
// request orchestrator, the connection manager, and the CLI.
package config

import (
	"fmt"
	"net/http"
	"os"
	"reflect"
	"time"

	"github.com/Comcast/shoots/util"

	"github.com/jsccast/yaml"
	"github.com/mitchellh/mapstructure"
	yaml2 "gopkg.in/yaml.v2"
)

// Envelope describes a business-status wrapper around response
// payloads, such as {"code": 0, "msg": "ok", "data": {...}}.
type Envelope struct {
	CodeField string `mapstructure:"codeField"`
	MsgField  string `mapstructure:"msgField"`
	DataField string `mapstructure:"dataField"`

	// SuccessCode is a single value or a list of acceptable
	// values.
	SuccessCode interface{} `mapstructure:"successCode"`
}

// SuccessCodes returns the acceptable codes as a list.
func (e *Envelope) SuccessCodes() []interface{} {
	switch vv := e.SuccessCode.(type) {
	case nil:
		return nil
	case []interface{}:
		return vv
	}
	v := reflect.ValueOf(e.SuccessCode)
	if v.Kind() == reflect.Slice {
		acc := make([]interface{}, v.Len())
		for i := range acc {
			acc[i] = v.Index(i).Interface()
		}
		return acc
	}
	return []interface{}{e.SuccessCode}
}

// Config is the global configuration.
type Config struct {
	// BaseURL prefixes request targets that aren't absolute.
	BaseURL string `mapstructure:"baseURL"`

	DefaultHeaders map[string]string `mapstructure:"defaultHeaders"`

	ResponseEnvelope *Envelope `mapstructure:"responseEnvelope"`

	// ResponseDataPath extracts the payload from bodies without
	// an envelope.
	ResponseDataPath string `mapstructure:"responseDataPath"`

	// Timeout applies to each request.  Zero means none.
	Timeout time.Duration `mapstructure:"timeout"`

	// ConnectTimeout is used when a connect action doesn't
	// specify one.  Zero means none.
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`

	// Scripts enables the script interpreter.
	Scripts bool `mapstructure:"scripts"`

	// Cookies enables a cookie jar for requests.
	Cookies bool `mapstructure:"cookies"`

	LogLevel string `mapstructure:"logLevel"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DefaultHeaders: map[string]string{},
		ConnectTimeout: 10 * time.Second,
		Timeout:        30 * time.Second,
		Scripts:        true,
		Cookies:        true,
		LogLevel:       "info",
	}
}

// BadConfig is returned for configuration that doesn't decode.
type BadConfig struct {
	Source string
	Err    error
}

func (e *BadConfig) Error() string {
	return "bad config " + e.Source + ": " + e.Err.Error()
}

func (e *BadConfig) Unwrap() error {
	return e.Err
}

// Parse reads YAML (or JSON) configuration on top of Default().
func Parse(bs []byte) (*Config, error) {
	var x interface{}
	if err := yaml.Unmarshal(bs, &x); err != nil {
		return nil, &BadConfig{Source: "yaml", Err: err}
	}
	return Decode(util.StringMaps(x))
}

// Decode decodes a map on top of Default().  Unknown keys are
// errors.
func Decode(x interface{}) (*Config, error) {
	c := Default()
	if x == nil {
		return c, nil
	}
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			millisHook,
		),
		ErrorUnused: true,
		Result:      c,
	})
	if err != nil {
		return nil, err
	}
	if err = d.Decode(x); err != nil {
		return nil, &BadConfig{Source: "decode", Err: err}
	}
	return c, nil
}

// millisHook reads bare numbers as milliseconds for durations.
func millisHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if t != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch vv := data.(type) {
	case int:
		return time.Duration(vv) * time.Millisecond, nil
	case int64:
		return time.Duration(vv) * time.Millisecond, nil
	case float64:
		return time.Duration(vv * float64(time.Millisecond)), nil
	}
	return data, nil
}

// Load reads the file at the given path.
func Load(path string) (*Config, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	m := yaml2.MapSlice{
		{Key: "baseURL", Value: c.BaseURL},
		{Key: "defaultHeaders", Value: c.DefaultHeaders},
	}
	if e := c.ResponseEnvelope; e != nil {
		m = append(m, yaml2.MapItem{Key: "responseEnvelope", Value: yaml2.MapSlice{
			{Key: "codeField", Value: e.CodeField},
			{Key: "msgField", Value: e.MsgField},
			{Key: "dataField", Value: e.DataField},
			{Key: "successCode", Value: e.SuccessCode},
		}})
	}
	m = append(m,
		yaml2.MapItem{Key: "responseDataPath", Value: c.ResponseDataPath},
		yaml2.MapItem{Key: "timeout", Value: c.Timeout.String()},
		yaml2.MapItem{Key: "connectTimeout", Value: c.ConnectTimeout.String()},
		yaml2.MapItem{Key: "scripts", Value: c.Scripts},
		yaml2.MapItem{Key: "cookies", Value: c.Cookies},
		yaml2.MapItem{Key: "logLevel", Value: c.LogLevel},
	)
	return yaml2.Marshal(m)
}

// Header returns the default headers with canonical names.
func (c *Config) Header() map[string]string {
	acc := make(map[string]string, len(c.DefaultHeaders))
	for k, v := range c.DefaultHeaders {
		acc[http.CanonicalHeaderKey(k)] = v
	}
	return acc
}
