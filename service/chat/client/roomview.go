package client

import (
	"context"
	"sync"
	"time"

	"HoodChat/logger"
	"HoodChat/service/chat"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrJoinUnverified means the room membership could not be confirmed after
// one retry.
var ErrJoinUnverified = errors.New("chat client: room membership not verified")

// ErrAbandoned is returned by an Open superseded by Leave or another Open.
var ErrAbandoned = errors.New("chat client: view abandoned")

// Requester is the part of Client a RoomView needs.
type Requester interface {
	Request(ctx context.Context, event string, data any, out any) error
	Send(event string, data any) error
}

type State int

const (
	Idle State = iota
	Pending
	Joined
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Joined:
		return "joined"
	default:
		return "idle"
	}
}

// RoomView keeps one open chat view in its room: join, wait, verify, and
// join once more when the server reports the membership missing.
type RoomView struct {
	delay time.Duration

	mu     sync.Mutex
	req    Requester
	state  State
	chatID string
	gen    uint64
	cancel context.CancelFunc
}

func NewRoomView(req Requester, verifyDelay time.Duration) *RoomView {
	return &RoomView{req: req, delay: verifyDelay}
}

func (v *RoomView) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// ChatID is the chat the view shows, empty when none.
func (v *RoomView) ChatID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.chatID
}

// Open runs the join sequence for chatID and returns once membership is
// verified. A concurrent Leave or Open makes it return ErrAbandoned.
func (v *RoomView) Open(ctx context.Context, chatID string) error {
	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
	}
	v.gen++
	gen := v.gen
	runCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.state = Pending
	v.chatID = chatID
	req := v.req
	v.mu.Unlock()
	defer cancel()

	err := v.sequence(runCtx, req, gen, chatID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.gen != gen {
		return ErrAbandoned
	}
	v.cancel = nil
	if err != nil {
		v.state = Idle
		return err
	}
	v.state = Joined
	return nil
}

func (v *RoomView) sequence(ctx context.Context, req Requester, gen uint64, chatID string) error {
	for attempt := 0; attempt < 2; attempt++ {
		if err := v.join(ctx, req, gen, chatID); err != nil {
			return err
		}
		inRoom, err := v.verify(ctx, req, gen, chatID)
		if err != nil {
			return err
		}
		if inRoom {
			return nil
		}
		logger.Info("[ChatClient] membership missing, rejoining", zap.String("chat", chatID), zap.Int("attempt", attempt))
	}
	return ErrJoinUnverified
}

func (v *RoomView) join(ctx context.Context, req Requester, gen uint64, chatID string) error {
	var res chat.JoinResult
	if err := req.Request(ctx, chat.EventJoinChat, chat.ChatRequest{ChatID: chatID}, &res); err != nil {
		return v.settle(gen, chatID, err)
	}
	if err := v.settle(gen, chatID, nil); err != nil {
		return err
	}
	if !res.Success {
		return &RemoteError{Event: chat.EventJoinChat, Msg: res.Error}
	}

	t := time.NewTimer(v.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return v.settle(gen, chatID, ctx.Err())
	}
}

func (v *RoomView) verify(ctx context.Context, req Requester, gen uint64, chatID string) (bool, error) {
	var res chat.VerifyResult
	if err := req.Request(ctx, chat.EventVerifyJoin, chat.ChatRequest{ChatID: chatID}, &res); err != nil {
		return false, v.settle(gen, chatID, err)
	}
	if err := v.settle(gen, chatID, nil); err != nil {
		return false, err
	}
	return res.Success && res.InRoom, nil
}

// settle maps the result of a round trip. When the view moved on meanwhile,
// the server may have put us back into the abandoned room, so it is left
// again unless the view went back to the same chat.
func (v *RoomView) settle(gen uint64, chatID string, err error) error {
	v.mu.Lock()
	current := v.gen == gen
	reopened := v.chatID == chatID && v.state == Pending
	req := v.req
	v.mu.Unlock()
	if current {
		return err
	}
	if !reopened {
		if serr := req.Send(chat.EventLeaveChat, chat.ChatRequest{ChatID: chatID}); serr != nil {
			logger.Debug("[ChatClient] leave abandoned room failed", zap.String("chat", chatID), zap.Error(serr))
		}
	}
	return ErrAbandoned
}

// Leave closes the view. An Open still running is abandoned.
func (v *RoomView) Leave() error {
	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.gen++
	chatID := v.chatID
	v.chatID = ""
	v.state = Idle
	req := v.req
	v.mu.Unlock()

	if chatID == "" {
		return nil
	}
	return req.Send(chat.EventLeaveChat, chat.ChatRequest{ChatID: chatID})
}

// Resume switches to req, typically a fresh connection, and runs the full
// sequence again for the chat the view was showing. Membership does not
// survive a reconnect.
func (v *RoomView) Resume(ctx context.Context, req Requester) error {
	v.mu.Lock()
	if req != nil {
		v.req = req
	}
	chatID := v.chatID
	v.mu.Unlock()
	if chatID == "" {
		return nil
	}
	return v.Open(ctx, chatID)
}
