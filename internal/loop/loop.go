// Package loop provides a serial executor: posted tasks run one at a time, in post order,
// on a single named goroutine. It stands in for the host's main execution context.
package loop

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/srg/blewire/internal/groutine"
)

type Loop struct {
	name   string
	logger *logrus.Logger

	mu      sync.Mutex
	queue   []func()
	stopped bool

	wake chan struct{}
	done <-chan struct{}
	gid  atomic.Uint64
	ran  atomic.Int64
}

// Start launches the loop goroutine. Cancelling ctx stops the loop after it drains
// what was already posted.
func Start(ctx context.Context, name string, logger *logrus.Logger) *Loop {
	if logger == nil {
		logger = logrus.New()
	}
	l := &Loop{
		name:   name,
		logger: logger,
		wake:   make(chan struct{}, 1),
	}

	ready := make(chan struct{})
	l.done = groutine.Go(ctx, name, func(ctx context.Context) {
		l.gid.Store(groutine.GetGID())
		close(ready)
		l.run(ctx)
	})
	<-ready

	logger.WithField("loop", name).Debug("Loop started")
	return l
}

func (l *Loop) run(ctx context.Context) {
	ctxDone := ctx.Done()
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		stopped := l.stopped
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
			l.ran.Add(1)
		}
		if len(batch) > 0 {
			continue
		}
		if stopped {
			l.logger.WithFields(logrus.Fields{"loop": l.name, "tasks": l.ran.Load()}).Debug("Loop stopped")
			return
		}

		select {
		case <-l.wake:
		case <-ctxDone:
			ctxDone = nil
			l.markStopped()
		}
	}
}

func (l *Loop) markStopped() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
}

// Post queues fn. It reports false once the loop is stopping; fn is then dropped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		l.logger.WithField("loop", l.name).Trace("Loop stopped, task dropped")
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	l.signal()
	return true
}

// Execute matches the plugin executor signature.
func (l *Loop) Execute(fn func()) {
	l.Post(fn)
}

// Sync runs fn on the loop and waits for it. Called from the loop itself, fn runs inline.
func (l *Loop) Sync(fn func()) bool {
	if l.InLoop() {
		fn()
		return true
	}
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	<-finished
	return true
}

// InLoop reports whether the caller runs on the loop goroutine.
func (l *Loop) InLoop() bool {
	return groutine.GetGID() == l.gid.Load()
}

// Ran returns how many tasks have completed.
func (l *Loop) Ran() int64 {
	return l.ran.Load()
}

// Stop refuses new tasks, runs the queued ones and waits for the goroutine to exit.
func (l *Loop) Stop() {
	l.markStopped()
	l.signal()
	<-l.done
}

// Done is closed when the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
