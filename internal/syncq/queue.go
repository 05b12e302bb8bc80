// Package syncq serializes mutating tasks that share a logical key.
// Tasks for one key run in submission order without overlap; tasks for
// different keys run independently. A key with nothing pending or running
// holds no resources.
package syncq

import (
	"context"
	"sync"
)

// Task is one unit of serialized work.
type Task func(ctx context.Context) error

type job struct {
	ctx    context.Context
	task   Task
	handle *Handle
}

// Handle resolves with the outcome of a single enqueued task.
type Handle struct {
	done chan struct{}
	err  error
}

// Wait blocks until the task finishes or ctx is done. A ctx error does not
// cancel the task; it keeps its queue slot and runs to completion.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return h.err
	}
}

// Done is closed once the task has run.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the task's result. Only valid after Done is closed.
func (h *Handle) Err() error {
	return h.err
}

type keyQueue struct {
	pending []*job
	running bool
}

// Queue is a per-key task serializer.
type Queue struct {
	mu   sync.Mutex
	keys map[string]*keyQueue
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{keys: make(map[string]*keyQueue)}
}

// Enqueue appends a task to the key's pending sequence and returns a handle
// for its result. If the key is idle the task starts immediately; otherwise
// it waits for every earlier task on that key. The task itself receives ctx
// and is expected to honor its cancellation.
func (q *Queue) Enqueue(ctx context.Context, key string, task Task) *Handle {
	h := &Handle{done: make(chan struct{})}
	j := &job{ctx: ctx, task: task, handle: h}

	q.mu.Lock()
	kq, ok := q.keys[key]
	if !ok {
		kq = &keyQueue{}
		q.keys[key] = kq
	}
	kq.pending = append(kq.pending, j)
	start := !kq.running
	if start {
		kq.running = true
	}
	q.mu.Unlock()

	if start {
		go q.run(key)
	}
	return h
}

// Do enqueues a task and waits for it.
func (q *Queue) Do(ctx context.Context, key string, task Task) error {
	return q.Enqueue(ctx, key, task).Wait(ctx)
}

// PendingKeys reports how many keys currently have queued or running work.
func (q *Queue) PendingKeys() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.keys)
}

// run drains one key's pending tasks in FIFO order. A failing task resolves
// only its own handle; the loop moves on to the next task for the key.
func (q *Queue) run(key string) {
	for {
		q.mu.Lock()
		kq := q.keys[key]
		if len(kq.pending) == 0 {
			delete(q.keys, key)
			q.mu.Unlock()
			return
		}
		j := kq.pending[0]
		kq.pending = kq.pending[1:]
		q.mu.Unlock()

		if err := j.ctx.Err(); err != nil {
			j.handle.err = err
		} else {
			j.handle.err = j.task(j.ctx)
		}
		close(j.handle.done)
	}
}
