// Package actorkit is a small, typed replacement for the goakt actor
// primitive: one owned-state task per actor, a buffered mailbox, and
// envelopes that carry their own reply channel instead of a dynamic
// ctx.Message().(type) switch. It is a standalone primitive: the CCE
// components (Clock, Noise Source, Cycle Engine, Sleep Engine, Supervisor)
// are not built on it, and no other package in this module imports it.
package actorkit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Envelope carries one message of type M to a Task and, if Reply is
// non-nil, a one-shot channel the handler must send exactly one R on
// before returning. Tell-style sends leave Reply nil.
type Envelope[M any, R any] struct {
	Message M
	Reply   chan<- R
}

// Handler mutates the actor's owned state in response to one message and
// returns the reply value (ignored for Tell-style envelopes).
type Handler[S any, M any, R any] func(ctx context.Context, state *S, msg M) R

// Task owns a value of type S and serializes all access to it through a
// single goroutine reading its mailbox. No lock is needed: mutation only
// ever happens on the mailbox goroutine.
type Task[S any, M any, R any] struct {
	mailbox chan Envelope[M, R]
	done    chan struct{}
	cancel  context.CancelFunc

	mu      sync.Mutex
	stopped bool
}

// Spawn starts a Task's mailbox loop in a background goroutine, owning
// initial and dispatching every received envelope to handle. The task
// runs until its context is cancelled or Stop is called.
func Spawn[S any, M any, R any](ctx context.Context, initial S, mailboxSize int, handle Handler[S, M, R]) *Task[S, M, R] {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task[S, M, R]{
		mailbox: make(chan Envelope[M, R], mailboxSize),
		done:    make(chan struct{}),
		cancel:  cancel,
	}

	go func() {
		defer close(t.done)
		state := initial
		for {
			select {
			case <-ctx.Done():
				return
			case env, ok := <-t.mailbox:
				if !ok {
					return
				}
				result := handle(ctx, &state, env.Message)
				if env.Reply != nil {
					env.Reply <- result
				}
			}
		}
	}()

	return t
}

// Tell sends a fire-and-forget message. Returns an error if the task's
// mailbox is full and ctx is cancelled before room frees up, or if the
// task has already stopped.
func (t *Task[S, M, R]) Tell(ctx context.Context, msg M) error {
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()
	if stopped {
		return fmt.Errorf("actorkit: task stopped")
	}
	select {
	case t.mailbox <- Envelope[M, R]{Message: msg}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ask sends a message and blocks for its reply, or until ctx is
// cancelled or timeout elapses (timeout <= 0 disables the timeout and
// relies on ctx alone).
func (t *Task[S, M, R]) Ask(ctx context.Context, msg M, timeout time.Duration) (R, error) {
	var zero R
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()
	if stopped {
		return zero, fmt.Errorf("actorkit: task stopped")
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reply := make(chan R, 1)
	select {
	case t.mailbox <- Envelope[M, R]{Message: msg, Reply: reply}:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Stop cancels the task's context and waits for its mailbox loop to
// exit. Safe to call more than once.
func (t *Task[S, M, R]) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.mu.Unlock()

	t.cancel()
	<-t.done
}

// Done returns a channel closed once the task's mailbox loop has exited.
func (t *Task[S, M, R]) Done() <-chan struct{} {
	return t.done
}
