package chat

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"HoodChat/logger"
	"HoodChat/tools/errs"
	"HoodChat/tools/safe"
	"HoodChat/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// handshakeToken reads the token from the query string, falling back to an
// Authorization bearer header.
func handshakeToken(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	return security.BearerToken(r.Header.Get("Authorization"))
}

// HandleWS authenticates the handshake, upgrades and serves one connection
// until it goes away.
func (s *Server) HandleWS(c *gin.Context) {
	userID, err := s.verifier.Verify(handshakeToken(c.Request))
	if err != nil {
		logger.Info("[WS] handshake rejected", zap.String("remote", c.ClientIP()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authentication error"})
		return
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrader already wrote the response
		logger.Info("[WS] upgrade failed", zap.String("user", userID), zap.Error(err))
		return
	}

	conn := newConn(userID, ws, s.opts.SendQueueSize)
	if !s.track(conn) {
		_ = ws.Close()
		return
	}
	defer s.untrack(conn)

	s.registry.Register(userID, conn)
	logger.Info("[WS] connected", zap.String("user", userID), zap.String("conn", conn.ID()))

	writerDone := make(chan struct{})
	safe.SafeGo("ws-writer", func() {
		defer close(writerDone)
		conn.writePump(s.opts.PingInterval, s.opts.WriteWait)
	})

	s.readLoop(conn)

	s.registry.Unregister(userID, conn)
	s.rooms.LeaveAll(conn)
	conn.Close()
	<-writerDone
	logger.Info("[WS] disconnected", zap.String("user", userID), zap.String("conn", conn.ID()))
}

// readLoop handles frames one at a time, so a client sees acks in request
// order.
func (s *Server) readLoop(conn *Conn) {
	ws := conn.ws
	ws.SetReadLimit(s.opts.MaxFrameBytes)
	_ = ws.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	})

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			var ne net.Error
			switch {
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
				logger.Debug("[WS] peer closed", zap.String("conn", conn.ID()))
			case errors.As(err, &ne) && ne.Timeout():
				logger.Info("[WS] read timeout", zap.String("conn", conn.ID()), zap.String("user", conn.UserID()))
			default:
				logger.Debug("[WS] read error", zap.String("conn", conn.ID()), zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		_ = ws.SetReadDeadline(time.Now().Add(s.opts.PongWait))

		f, err := ParseFrame(data)
		if err != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Info("[WS] bad frame", zap.String("conn", conn.ID()), zap.ByteString("sample", sample), zap.Error(err))
			s.reply(conn, EventError, "", map[string]any{"success": false, "error": errs.PublicMessage(err)})
			continue
		}
		s.serveFrame(conn, f)
	}
}

const handlerTimeout = 5 * time.Second

func (s *Server) serveFrame(conn *Conn, f *Frame) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	res, err := s.dispatch(&Context{Context: ctx, S: s, Conn: conn}, f)
	if err != nil {
		logger.Info("[WS] handler failed", zap.String("event", f.Event), zap.String("user", conn.UserID()), zap.Error(err))
		fail := map[string]any{"success": false, "error": errs.PublicMessage(err)}
		if f.ID != "" {
			s.reply(conn, EventAck, f.ID, fail)
		} else {
			s.reply(conn, EventError, "", map[string]any{"event": f.Event, "success": false, "error": errs.PublicMessage(err)})
		}
		return
	}
	if f.ID != "" {
		s.reply(conn, EventAck, f.ID, res)
	}
}

func (s *Server) dispatch(ctx *Context, f *Frame) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.ErrPanic(r)
		}
	}()
	return s.disp.Dispatch(ctx, f)
}

func (s *Server) reply(conn *Conn, event, id string, data any) {
	payload, err := EncodeFrame(event, id, data)
	if err != nil {
		logger.Error("[WS] encode reply", zap.String("event", event), zap.Error(err))
		return
	}
	conn.Enqueue(payload)
}
