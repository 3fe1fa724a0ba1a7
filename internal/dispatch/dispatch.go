// Package dispatch runs a fixed pool of workers pulling from a priority
// queue of incoming packets, so a burst of low-priority traffic (bulk
// snapshots) never starves latency-sensitive traffic (moves, actions).
// The worker-pool lifecycle (start/stop, instrumentation, context
// cancellation) follows the ai.TickManager precedent
// (internal/ai/manager.go) and world.VisibilityManager
// (internal/world/visibility_manager.go); the priority queue itself has
// no precedent anywhere in the example pack, so it is built directly on
// the standard library's container/heap.
package dispatch

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Job is one queued unit of work: a priority and a task to run.
type Job struct {
	Priority int
	Task     func(ctx context.Context)
}

// entry pairs a Job with its insertion sequence, used as a FIFO tiebreak
// between jobs of equal priority.
type entry struct {
	job Job
	seq int64
}

// jobHeap is a max-heap on Priority, with insertion order as a tiebreak.
type jobHeap []entry

func (h jobHeap) Len() int { return len(h) }
func (h jobHeap) Less(i, j int) bool {
	if h[i].job.Priority != h[j].job.Priority {
		return h[i].job.Priority > h[j].job.Priority
	}
	return h[i].seq < h[j].seq
}
func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *jobHeap) Push(x any)   { *h = append(*h, x.(entry)) }
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is a priority queue of Jobs, safe for concurrent producers and a
// single consuming Pool.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	heap     jobHeap
	nextSeq  int64
	closed   bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Push enqueues a job. It never blocks.
func (q *Queue) Push(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	heap.Push(&q.heap, entry{job: job, seq: q.nextSeq})
	q.nextSeq++
	q.notEmpty.Signal()
}

// pop blocks until a job is available or the queue is closed, in which
// case ok is false.
func (q *Queue) pop() (job Job, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.heap) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if len(q.heap) == 0 {
		return Job{}, false
	}
	return heap.Pop(&q.heap).(entry).job, true
}

// Close unblocks every pending and future pop, draining the queue.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.notEmpty.Broadcast()
}

// Len reports the number of jobs currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// Pool runs a fixed number of workers draining a Queue.
type Pool struct {
	queue   *Queue
	workers int
}

// NewPool creates a pool of n workers draining queue.
func NewPool(queue *Queue, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{queue: queue, workers: workers}
}

// Run starts the workers and blocks until ctx is canceled, at which
// point the queue is closed and workers drain in flight.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := range p.workers {
		id := i
		g.Go(func() error {
			p.worker(ctx, id)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		p.queue.Close()
		return nil
	})

	slog.Info("dispatch pool started", "workers", p.workers)
	err := g.Wait()
	slog.Info("dispatch pool stopped")
	return err
}

func (p *Pool) worker(ctx context.Context, id int) {
	for {
		job, ok := p.queue.pop()
		if !ok {
			return
		}
		runJob(ctx, id, job)
	}
}

func runJob(ctx context.Context, workerID int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch worker recovered from panic", "worker", workerID, "panic", r)
		}
	}()
	job.Task(ctx)
}
