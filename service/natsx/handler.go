package natsx

import "context"

type NatsxMessage struct {
	Subject string
	Data    []byte
	Header  map[string]string
}

type NatsxHandler func(ctx context.Context, msg NatsxMessage) error

// NatsxMiddleware wraps a handler (logging, idempotency and so on).
type NatsxMiddleware func(NatsxHandler) NatsxHandler

// NatsxChain applies mws so that the first one runs outermost.
func NatsxChain(h NatsxHandler, mws ...NatsxMiddleware) NatsxHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
