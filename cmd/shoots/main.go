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


// Package main is the shoots command-line tool.
//
// Commands:
//
//	run FILE      execute an action tree (JSON or YAML)
//	eval EXPR     evaluate an expression or template against a state
//	repl          evaluate expressions and run actions interactively
//	schema        print the JSON Schema of the action format
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "shoots",
	Short:        "shoots executes declarative action trees",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("state", "", "JSON or YAML file with the initial state")
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn, or error (overrides the configuration)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
