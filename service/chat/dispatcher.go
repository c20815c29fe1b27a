package chat

import (
	"HoodChat/tools/errs"
)

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register must be called before the server accepts connections.
func (d *Dispatcher) Register(h Handler) { d.handlers[h.Event()] = h }

func (d *Dispatcher) Dispatch(ctx *Context, f *Frame) (any, error) {
	h, ok := d.handlers[f.Event]
	if !ok {
		return nil, errs.ErrArgs.WrapMsg("no handler for event", "event", f.Event)
	}
	return h.Handle(ctx, f)
}
