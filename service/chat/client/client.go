// Package client is a Go client for the chat gateway. It turns the
// acknowledged events into request/response calls.
package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"HoodChat/logger"
	"HoodChat/service/chat"
	"HoodChat/tools/errs"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrTimeout = errors.New("chat client: request timed out")
	ErrClosed  = errors.New("chat client: connection closed")
)

// RemoteError is a failed ack.
type RemoteError struct {
	Event string
	Msg   string
}

func (e *RemoteError) Error() string { return "chat client: " + e.Event + ": " + e.Msg }

type Options struct {
	RequestTimeout time.Duration
	EventBuffer    int
	Header         http.Header
}

func DefaultOptions() Options {
	return Options{RequestTimeout: 5 * time.Second, EventBuffer: 256}
}

// Client is one gateway connection. Pushes arrive on Events; acks are
// routed to the Request waiting for them.
type Client struct {
	ws   *websocket.Conn
	opts Options

	wmu sync.Mutex
	seq atomic.Uint64

	mu      sync.Mutex
	pending map[string]chan *chat.Frame

	events    chan *chat.Frame
	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// Dial connects to rawURL (ws:// or wss://) with token as bearer.
func Dial(ctx context.Context, rawURL, token string, opt ...Options) (*Client, error) {
	opts := DefaultOptions()
	if len(opt) > 0 {
		opts = opt[0]
		if opts.RequestTimeout <= 0 {
			opts.RequestTimeout = DefaultOptions().RequestTimeout
		}
		if opts.EventBuffer <= 0 {
			opts.EventBuffer = DefaultOptions().EventBuffer
		}
	}
	header := http.Header{}
	for k, v := range opts.Header {
		header[k] = v
	}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, errs.ErrUnauthenticated.WrapMsg("gateway rejected token")
		}
		return nil, errs.WrapMsg(err, "dial gateway", "url", rawURL)
	}

	c := &Client{
		ws:      ws,
		opts:    opts,
		pending: make(map[string]chan *chat.Frame),
		events:  make(chan *chat.Frame, opts.EventBuffer),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events delivers server pushes. It is closed when the connection ends.
func (c *Client) Events() <-chan *chat.Frame { return c.events }

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns why the connection ended, once Done is closed.
func (c *Client) Err() error {
	<-c.done
	return c.err
}

// Send emits an event without waiting for an ack.
func (c *Client) Send(event string, data any) error {
	return c.write(event, "", data)
}

// Request emits event and waits for its ack, decoding the ack payload into
// out when out is non-nil.
func (c *Client) Request(ctx context.Context, event string, data any, out any) error {
	id := strconv.FormatUint(c.seq.Add(1), 10)
	reply := make(chan *chat.Frame, 1)

	c.mu.Lock()
	c.pending[id] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(event, id, data); err != nil {
		return err
	}

	timer := time.NewTimer(c.opts.RequestTimeout)
	defer timer.Stop()
	select {
	case f := <-reply:
		return decodeAck(event, f, out)
	case <-timer.C:
		return errors.WithMessage(ErrTimeout, event)
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

func decodeAck(event string, f *chat.Frame, out any) error {
	if ok, isBool := f.Data["success"].(bool); isBool && !ok {
		msg, _ := f.Data["error"].(string)
		return &RemoteError{Event: event, Msg: msg}
	}
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(f.Data)
	if err != nil {
		return errs.Wrap(err)
	}
	return errs.Wrap(json.Unmarshal(raw, out))
}

func (c *Client) write(event, id string, data any) error {
	payload, err := chat.EncodeFrame(event, id, data)
	if err != nil {
		return errs.Wrap(err)
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.RequestTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		return errs.WrapMsg(err, "write frame", "event", event)
	}
	return nil
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.shutdown(err)
			return
		}
		f, err := chat.ParseFrame(data)
		if err != nil {
			logger.Warn("[ChatClient] bad frame", zap.Error(err))
			continue
		}
		if f.Event == chat.EventAck && f.ID != "" {
			c.mu.Lock()
			reply, ok := c.pending[f.ID]
			c.mu.Unlock()
			if ok {
				select {
				case reply <- f:
				default:
				}
			}
			continue
		}
		select {
		case c.events <- f:
		default:
			logger.Warn("[ChatClient] event buffer full, drop", zap.String("event", f.Event))
		}
	}
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			err = nil
		}
		c.err = err
		close(c.done)
		_ = c.ws.Close()
	})
}

// Close sends a close frame and tears the connection down.
func (c *Client) Close() error {
	c.wmu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.wmu.Unlock()
	c.shutdown(nil)
	return nil
}
