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

// Package clip provides the clipboards used by copy actions.
package clip

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
)

// ErrUnsupported is returned by System on platforms without a
// clipboard utility.
var ErrUnsupported = errors.New("system clipboard unsupported")

// System writes to the operating system's clipboard.
type System struct{}

func (System) WriteText(text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}

// Terminal writes an OSC 52 escape sequence, which many terminal
// emulators turn into a clipboard write.
type Terminal struct {
	// W defaults to os.Stderr.
	W io.Writer
}

func (t Terminal) WriteText(text string) error {
	w := t.W
	if w == nil {
		w = os.Stderr
	}
	seq := osc52.New(text)
	switch {
	case os.Getenv("TMUX") != "":
		seq = seq.Tmux()
	case strings.HasPrefix(os.Getenv("TERM"), "screen"):
		seq = seq.Screen()
	}
	_, err := seq.WriteTo(w)
	return err
}

// Writer is what Chain tries.
type Writer interface {
	WriteText(text string) error
}

// Chain tries each Writer in turn until one succeeds.
type Chain []Writer

// Default tries the system clipboard and then the terminal.
func Default() Chain {
	return Chain{System{}, Terminal{}}
}

func (c Chain) WriteText(text string) error {
	if len(c) == 0 {
		return errors.New("no clipboards")
	}
	var errs []error
	for _, w := range c {
		err := w.WriteText(text)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
