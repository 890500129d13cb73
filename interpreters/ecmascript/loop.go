package ecmascript

import (
	"context"
	"errors"

	"github.com/Comcast/shoots/core"

	"github.com/dop251/goja"
)

// loop runs promise settlements on the goroutine that owns the
// runtime.  Host functions that finish later post their settlements
// here.
type loop struct {
	o    *goja.Runtime
	jobs chan func()
	done chan struct{}

	// disposed, when closed, stops settlements from running.
	disposed <-chan struct{}

	// pending counts promises a host function still has to settle.
	// Only the owning goroutine touches it.
	pending int
}

func newLoop(o *goja.Runtime, disposed <-chan struct{}) *loop {
	return &loop{
		o:        o,
		jobs:     make(chan func()),
		done:     make(chan struct{}),
		disposed: disposed,
	}
}

func (l *loop) isDisposed() bool {
	select {
	case <-l.disposed:
		return true
	default:
		return false
	}
}

func (l *loop) stop() {
	close(l.done)
}

// post hands f to the owning goroutine.  After stop, f is dropped.
func (l *loop) post(f func()) {
	select {
	case l.jobs <- f:
	case <-l.done:
	}
}

// async returns a promise settled by f, which runs on its own
// goroutine.
func (l *loop) async(f func() (interface{}, error)) goja.Value {
	p, resolve, reject := l.o.NewPromise()
	l.pending++
	go func() {
		x, err := f()
		l.post(func() {
			if err != nil {
				reject(l.o.NewGoError(err))
				return
			}
			resolve(x)
		})
	}()
	return l.o.ToValue(p)
}

// await waits for v to settle if it's a promise.
func (l *loop) await(ctx context.Context, v goja.Value) error {
	if v == nil {
		return nil
	}
	p, is := v.Export().(*goja.Promise)
	if !is {
		return nil
	}
	for p.State() == goja.PromiseStatePending {
		if l.pending == 0 {
			return Unsettled
		}
		select {
		case f := <-l.jobs:
			l.pending--
			if l.isDisposed() {
				return core.ErrDisposed
			}
			f()
		case <-l.disposed:
			return core.ErrDisposed
		case <-ctx.Done():
			if l.isDisposed() {
				return core.ErrDisposed
			}
			return Interrupted
		}
	}
	if p.State() == goja.PromiseStateRejected {
		return rejection(p.Result())
	}
	return nil
}

func rejection(v goja.Value) error {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return errors.New("script rejected")
	}
	if err, is := v.Export().(error); is {
		return err
	}
	return errors.New(v.String())
}
