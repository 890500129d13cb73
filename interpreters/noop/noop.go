// Package noop provides an Interpreter that refuses to run scripts.
package noop

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Comcast/shoots/core"
	"github.com/Comcast/shoots/logging"
)

// ErrDisabled is returned by Exec.
var ErrDisabled = errors.New("scripts are disabled")

// Interpreter is a core.Interpreter for configurations that turn
// scripts off.
type Interpreter struct {
	// Silent suppresses the warning logged for each refused script.
	Silent bool
}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func (i *Interpreter) Compile(ctx context.Context, code string) (interface{}, error) {
	return nil, nil
}

func (i *Interpreter) Exec(ctx context.Context, env *core.ScriptEnv, code string, compiled interface{}) error {
	if !i.Silent {
		var logger *slog.Logger
		if env != nil {
			logger = env.Logger
		}
		logging.OrDefault(logger).Warn("script refused", "source", code)
	}
	return ErrDisabled
}
