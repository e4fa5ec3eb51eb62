package chat

import (
	"chatcore/logger"
)

type Handler interface {
	Type() FrameType
	Handle(ctx *Context, f *Frame, c *Client) error
}

type Context struct {
	S *Server
}

type Dispatcher struct {
	handlers map[FrameType]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[FrameType]Handler)}
}

func (d *Dispatcher) Register(h Handler) {
	if _, dup := d.handlers[h.Type()]; dup {
		logger.Warnf("[dispatcher] duplicate handler for type=%s", h.Type())
	}
	d.handlers[h.Type()] = h
}

func (d *Dispatcher) Get(t FrameType) Handler {
	return d.handlers[t]
}
