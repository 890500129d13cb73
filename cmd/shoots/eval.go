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
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/shoots/core"
	"github.com/Comcast/shoots/expr"

	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval EXPR",
	Short: "Evaluate an expression or template against the state",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer e.ctx.Dispose()
		format, _ := cmd.Flags().GetString("format")
		return evalPrint(cmd.OutOrStdout(), e.ctx, strings.Join(args, " "), format)
	},
}

func init() {
	evalCmd.Flags().String("format", "json", "output format: json or yaml")
	rootCmd.AddCommand(evalCmd)
}

// evaluate treats src as a template if it has a placeholder and as an
// expression otherwise.
func evaluate(c *core.Context, src string) (interface{}, error) {
	if expr.IsTemplate(src) {
		return c.Eval.EvaluateTemplate(src, c.Scope())
	}
	return c.Eval.Evaluate(src, c.Scope())
}

func evalPrint(w io.Writer, c *core.Context, src, format string) error {
	x, err := evaluate(c, src)
	if err != nil {
		return err
	}
	if expr.IsUndefined(x) {
		_, err = fmt.Fprintln(w, "undefined")
		return err
	}
	return render(w, x, format)
}
