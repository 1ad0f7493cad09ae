// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package trinn

import (
	"log/slog"
	"sync"

	"github.com/creachadair/mds/queue"
	"github.com/creachadair/taskgroup"
)

// An eventLoop runs callbacks one at a time, in the order they were posted,
// on a single goroutine. Endpoints deliver all user callbacks through an
// eventLoop, so callbacks never run concurrently with each other.
type eventLoop struct {
	log   *slog.Logger
	tasks *taskgroup.Group
	wake  chan struct{}
	stop  chan struct{}

	μ      sync.Mutex
	queue  *queue.Queue[func()]
	closed bool
}

func newEventLoop(log *slog.Logger) *eventLoop {
	l := &eventLoop{
		log:   log,
		tasks: taskgroup.New(nil),
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
		queue: queue.New[func()](),
	}
	l.tasks.Go(func() error {
		for {
			l.drain()
			select {
			case <-l.wake:
			case <-l.stop:
				l.drain()
				return nil
			}
		}
	})
	return l
}

// post adds f to the queue. Events posted after the loop is closed are
// discarded.
func (l *eventLoop) post(f func()) {
	l.μ.Lock()
	defer l.μ.Unlock()
	if l.closed {
		return
	}
	l.queue.Add(f)
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *eventLoop) drain() {
	for {
		l.μ.Lock()
		f, ok := l.queue.Pop()
		l.μ.Unlock()
		if !ok {
			return
		}
		l.run(f)
	}
}

func (l *eventLoop) run(f func()) {
	defer func() {
		if x := recover(); x != nil {
			l.log.Error("callback panicked (recovered)", "panic", x)
		}
	}()
	f()
}

// close delivers any pending events, then stops the loop and waits for it to
// exit. It is safe to call close more than once.
func (l *eventLoop) close() {
	l.μ.Lock()
	if l.closed {
		l.μ.Unlock()
		return
	}
	l.closed = true
	l.μ.Unlock()

	close(l.stop)
	l.tasks.Wait()
}
