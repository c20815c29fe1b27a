package chat

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"HoodChat/logger"
	"HoodChat/tools/errs"
	"HoodChat/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Deps are the collaborators of the gateway. Only Verifier is required.
type Deps struct {
	Verifier *security.Verifier
	Resolver ParticipantResolver
	Presence PresenceMirror
	Sink     NotificationSink
}

type Options struct {
	SendQueueSize  int
	FanoutWorkers  int
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxFrameBytes  int64
	AllowedOrigins []string
}

func DefaultOptions() Options {
	return Options{
		SendQueueSize: 256,
		FanoutWorkers: 4,
		PingInterval:  defaultPingInterval,
		PongWait:      defaultPongWait,
		WriteWait:     defaultWriteWait,
		MaxFrameBytes: 64 << 10,
	}
}

// Server is the real-time gateway: it authenticates sockets, tracks rooms
// and pushes chat events.
type Server struct {
	opts     Options
	verifier *security.Verifier
	resolver ParticipantResolver

	rooms    *Rooms
	registry *Registry
	fanout   *Fanout
	delivery *Delivery
	disp     *Dispatcher
	upgrader websocket.Upgrader

	mu     sync.Mutex
	live   map[*Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

func NewServer(deps Deps, opts Options) (*Server, error) {
	if deps.Verifier == nil {
		return nil, errs.ErrArgs.WrapMsg("chat server needs a token verifier")
	}
	def := DefaultOptions()
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = def.SendQueueSize
	}
	if opts.FanoutWorkers <= 0 {
		opts.FanoutWorkers = def.FanoutWorkers
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = def.PingInterval
	}
	if opts.PongWait <= opts.PingInterval {
		opts.PongWait = opts.PingInterval * 12 / 5
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = def.WriteWait
	}
	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = def.MaxFrameBytes
	}

	rooms := NewRooms()
	fanout := NewFanout(opts.FanoutWorkers, 0)
	s := &Server{
		opts:     opts,
		verifier: deps.Verifier,
		resolver: deps.Resolver,
		rooms:    rooms,
		registry: NewRegistry(rooms, deps.Presence),
		fanout:   fanout,
		delivery: NewDelivery(rooms, fanout, deps.Resolver, deps.Sink),
		disp:     NewDispatcher(),
		live:     make(map[*Conn]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s, nil
}

func (s *Server) Rooms() *Rooms          { return s.rooms }
func (s *Server) Registry() *Registry    { return s.registry }
func (s *Server) Delivery() *Delivery    { return s.delivery }
func (s *Server) Disp() *Dispatcher      { return s.disp }
func (s *Server) Register(hs ...Handler) { s.registerHandlers(hs) }

func (s *Server) registerHandlers(hs []Handler) {
	for _, h := range hs {
		s.disp.Register(h)
	}
}

// Routes mounts the socket endpoint.
func (s *Server) Routes(r gin.IRoutes) {
	r.GET("/ws", s.HandleWS)
}

// Authorize reports whether userID may enter the room of chatID.
func (s *Server) Authorize(ctx context.Context, userID, chatID string) error {
	if chatID == "" {
		return errs.ErrArgs.WrapMsg("chatId is required")
	}
	if s.resolver == nil {
		return nil
	}
	owner, interested, err := s.resolver.Participants(ctx, chatID)
	if err != nil {
		return err
	}
	if userID != owner && userID != interested {
		return errs.ErrNoPermission.WrapMsg("not a participant of this chat")
	}
	return nil
}

// Close disconnects every socket and stops the fanout workers.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conns := make([]*Conn, 0, len(s.live))
	for c := range s.live {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
		_ = c.ws.Close()
	}
	s.wg.Wait()
	s.fanout.Close()
	logger.Info("[WS] server closed", zap.Int("conns", len(conns)))
}

func (s *Server) track(c *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.live[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	delete(s.live, c)
	s.mu.Unlock()
	s.wg.Done()
}

// checkOrigin allows non-browser clients and the configured web origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimRight(allowed, "/"), u.Scheme+"://"+u.Host) {
			return true
		}
	}
	return false
}
