package script

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	js "github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"github.com/rediwo/redi-eager/logger"
	"github.com/rediwo/redi-eager/orm"
)

// Runtime runs JavaScript against a client. Scripts reach the data through
// require('redi/eager'); every operation returns a promise.
type Runtime struct {
	client *orm.Client
	out    io.Writer
	logger logger.Logger
}

// Option configures a Runtime
type Option func(*Runtime)

// WithOutput sets where console.log writes. Warnings and errors go to the
// logger.
func WithOutput(w io.Writer) Option {
	return func(r *Runtime) { r.out = w }
}

// WithLogger sets the logger behind console.warn and console.error
func WithLogger(l logger.Logger) Option {
	return func(r *Runtime) { r.logger = logger.OrNull(l) }
}

// New creates a runtime bound to client
func New(client *orm.Client, opts ...Option) *Runtime {
	r := &Runtime{client: client, out: os.Stdout, logger: logger.NewNullLogger()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunFile runs the script at path.
func (r *Runtime) RunFile(ctx context.Context, path string) (any, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return r.Run(ctx, path, string(src))
}

// Run evaluates source and waits for the event loop to drain. When the
// completion value is a promise its settled value is returned, and a
// rejection becomes the error.
func (r *Runtime) Run(ctx context.Context, name, source string) (any, error) {
	reg := require.NewRegistry()
	mod := &eagerModule{ctx: ctx, client: r.client}
	reg.RegisterNativeModule(ModuleName, func(vm *js.Runtime, module *js.Object) {
		_ = module.Set("exports", mod.exports(vm))
	})
	reg.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(&printer{out: r.out, logger: r.logger}))

	loop := eventloop.NewEventLoop(eventloop.WithRegistry(reg), eventloop.EnableConsole(false))

	var (
		vm     *js.Runtime
		value  js.Value
		runErr error
	)
	done := make(chan struct{})
	defer close(done)

	loop.Run(func(rt *js.Runtime) {
		vm = rt
		go func() {
			select {
			case <-ctx.Done():
				rt.Interrupt(ctx.Err())
			case <-done:
			}
		}()
		rt.Set("console", require.Require(rt, console.ModuleName))
		value, runErr = rt.RunScript(name, source)
	})
	if runErr != nil {
		return nil, scriptError(runErr)
	}
	return settle(vm, value)
}

func settle(vm *js.Runtime, value js.Value) (any, error) {
	if value == nil {
		return nil, nil
	}
	p, ok := value.Export().(*js.Promise)
	if !ok {
		return fromJS(value), nil
	}
	switch p.State() {
	case js.PromiseStateFulfilled:
		return fromJS(p.Result()), nil
	case js.PromiseStateRejected:
		return nil, fmt.Errorf("script rejected: %s", rejectionMessage(vm, p.Result()))
	default:
		return nil, fmt.Errorf("script promise never settled")
	}
}

func rejectionMessage(vm *js.Runtime, v js.Value) string {
	if obj, ok := v.(*js.Object); ok {
		if msg := obj.Get("message"); msg != nil && !js.IsUndefined(msg) {
			if code := obj.Get("code"); code != nil && !js.IsUndefined(code) {
				return code.String() + ": " + msg.String()
			}
			return msg.String()
		}
	}
	return v.String()
}

func scriptError(err error) error {
	if ex, ok := err.(*js.Exception); ok {
		return fmt.Errorf("script error: %s", strings.TrimSpace(ex.Error()))
	}
	if ie, ok := err.(*js.InterruptedError); ok {
		return fmt.Errorf("script interrupted: %v", ie.Value())
	}
	return err
}

// printer sends console output to the runtime's writer and logger.
type printer struct {
	out    io.Writer
	logger logger.Logger
}

func (p *printer) Log(s string)   { fmt.Fprintln(p.out, s) }
func (p *printer) Warn(s string)  { p.logger.Warn("%s", s) }
func (p *printer) Error(s string) { p.logger.Error("%s", s) }
