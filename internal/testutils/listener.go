package testutils

import (
	"sync"

	"github.com/srg/blewire/pkg/protocol"
	"github.com/srg/blewire/pkg/stream"
)

// DataListener returns a listener that forwards data deliveries to fn and ignores errors.
func DataListener(fn func(v any)) stream.Listener {
	return stream.ListenerFuncs{Data: fn}
}

// CaptureListener records every delivery of a channel.
type CaptureListener struct {
	mu   sync.Mutex
	data []any
	errs []*protocol.Error
}

var _ stream.Listener = (*CaptureListener)(nil)

func (c *CaptureListener) OnData(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = append(c.data, v)
}

func (c *CaptureListener) OnError(err *protocol.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func (c *CaptureListener) Data() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.data...)
}

func (c *CaptureListener) Errors() []*protocol.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*protocol.Error(nil), c.errs...)
}
