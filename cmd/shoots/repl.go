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
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/shoots/core"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Evaluate expressions and run actions interactively",
	Long: `Each line is an expression or a template, unless it starts with
'{' or '[', in which case it's a JSON action tree to execute.

Commands:

	.state   print the state
	.quit    exit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer e.ctx.Dispose()

		rl, err := readline.NewEx(&readline.Config{
			Prompt:          "shoots> ",
			AutoComplete:    readline.NewPrefixCompleter(readline.PcItem(".state"), readline.PcItem(".quit")),
			InterruptPrompt: "^C",
			EOFPrompt:       ".quit",
		})
		if err != nil {
			return fmt.Errorf("init readline: %w", err)
		}
		defer rl.Close()

		for {
			line, err := rl.Readline()
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if !replLine(cmd.Context(), rl.Stdout(), e.ctx, line) {
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}

// replLine handles one line.  It returns false to quit.
func replLine(ctx context.Context, w io.Writer, c *core.Context, line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
	case line == ".quit":
		return false
	case line == ".state":
		if err := render(w, c.State.Snapshot(), "json"); err != nil {
			fmt.Fprintf(w, "error: %s\n", err)
		}
	case strings.HasPrefix(line, "{"), strings.HasPrefix(line, "["):
		as, err := core.ParseJSON([]byte(line))
		if err == nil {
			err = c.ExecuteActions(ctx, as)
		}
		if err != nil {
			fmt.Fprintf(w, "error: %s\n", err)
		}
	default:
		if err := evalPrint(w, c, line, "json"); err != nil {
			fmt.Fprintf(w, "error: %s\n", err)
		}
	}
	return true
}
