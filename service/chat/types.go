package chat

import "context"

// Handler serves one client event. The returned value is sent back as the
// ack payload when the frame carries an id.
type Handler interface {
	Event() string
	Handle(ctx *Context, f *Frame) (any, error)
}

// Context is what a handler sees of the connection it runs on.
type Context struct {
	context.Context
	S    *Server
	Conn *Conn
}

func (c *Context) UserID() string { return c.Conn.UserID() }
