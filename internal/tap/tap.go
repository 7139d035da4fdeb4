// Package tap subscribes to event channels and records every delivery, in arrival order,
// into a bounded overwrite-oldest ring. The replay command reads its output from a tap.
package tap

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hedzr/go-ringbuf/v2/mpmc"

	"github.com/srg/blewire/pkg/protocol"
	"github.com/srg/blewire/pkg/stream"
)

// MaxCapacity guards against a misconfigured tap buffer.
const MaxCapacity = 1024 * 1024

// Delivery is one data or error delivery observed on a channel.
type Delivery struct {
	Seq     uint64
	Channel string
	Data    any
	Err     *protocol.Error
}

func (d Delivery) IsError() bool { return d.Err != nil }

// Metrics counts tap traffic. All fields are updated atomically.
type Metrics struct {
	Recorded    int64 // deliveries handed to the ring
	Overwritten int64 // deliveries lost to overflow before being drained
	Failed      int64 // deliveries the ring refused
}

type Tap struct {
	buffer  mpmc.RichOverlappedRingBuffer[Delivery]
	seq     atomic.Uint64
	metrics Metrics

	mu       sync.Mutex
	attached []stream.Channel
}

// New creates a tap holding up to capacity undrained deliveries.
func New(capacity int) (*Tap, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("tap capacity must be > 0, got %d", capacity)
	}
	if capacity > MaxCapacity {
		return nil, fmt.Errorf("tap capacity %d exceeds maximum %d", capacity, MaxCapacity)
	}
	return &Tap{buffer: mpmc.NewOverlappedRingBuffer[Delivery](uint32(capacity))}, nil
}

// Attach subscribes the tap to every channel, replacing their current listeners.
func (t *Tap) Attach(channels ...stream.Channel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range channels {
		ch.Subscribe(t.listener(ch.Name()))
		t.attached = append(t.attached, ch)
	}
}

// Detach unsubscribes from every attached channel.
func (t *Tap) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.attached {
		ch.Unsubscribe()
	}
	t.attached = nil
}

func (t *Tap) listener(name string) stream.Listener {
	return stream.ListenerFuncs{
		Data: func(v any) {
			t.record(Delivery{Seq: t.seq.Add(1), Channel: name, Data: v})
		},
		Error: func(err *protocol.Error) {
			t.record(Delivery{Seq: t.seq.Add(1), Channel: name, Err: err})
		},
	}
}

func (t *Tap) record(d Delivery) {
	// the ring drops the oldest entry on overflow and reports how many went
	overwrites, err := t.buffer.EnqueueM(d)
	if err != nil {
		atomic.AddInt64(&t.metrics.Failed, 1)
		return
	}
	atomic.AddInt64(&t.metrics.Overwritten, int64(overwrites))
	atomic.AddInt64(&t.metrics.Recorded, 1)
}

// Drain returns everything buffered so far, oldest first.
func (t *Tap) Drain() []Delivery {
	var out []Delivery
	for !t.buffer.IsEmpty() {
		d, err := t.buffer.Dequeue()
		if err != nil {
			break
		}
		out = append(out, d)
	}
	return out
}

// Dropped is the number of deliveries lost before being drained.
func (t *Tap) Dropped() int64 {
	return atomic.LoadInt64(&t.metrics.Overwritten) + atomic.LoadInt64(&t.metrics.Failed)
}

// Metrics returns a snapshot of the counters.
func (t *Tap) Metrics() Metrics {
	return Metrics{
		Recorded:    atomic.LoadInt64(&t.metrics.Recorded),
		Overwritten: atomic.LoadInt64(&t.metrics.Overwritten),
		Failed:      atomic.LoadInt64(&t.metrics.Failed),
	}
}
