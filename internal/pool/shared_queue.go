package pool

import (
	"sync"
)

// SharedQueuePool runs a fixed number of worker goroutines pulling jobs off
// one shared channel. Unlike a goroutine-per-job approach, the worker count
// stays constant regardless of load, bounding concurrency.
//
// A panicking job does not take its worker down with it: each worker
// recovers from a job panic in place and goes straight back to pulling the
// next job. This is simpler than the resurrect-a-new-worker dance a
// thread-per-worker design needs after a thread unwinds — Go's recover lets
// the same goroutine survive, so there's nothing to resurrect.
type SharedQueuePool struct {
	jobs chan func()
	wg   sync.WaitGroup
}

// NewSharedQueuePool starts threads worker goroutines reading from a shared
// job queue.
func NewSharedQueuePool(threads int) (*SharedQueuePool, error) {
	if threads <= 0 {
		threads = 1
	}

	p := &SharedQueuePool{jobs: make(chan func())}
	p.wg.Add(threads)
	for i := 0; i < threads; i++ {
		go p.worker()
	}
	return p, nil
}

func (p *SharedQueuePool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.runJob(job)
	}
}

func (p *SharedQueuePool) runJob(job func()) {
	defer func() {
		recover()
	}()
	job()
}

// Spawn enqueues job for the next available worker. It blocks if every
// worker is busy and the queue has no waiting receiver.
func (p *SharedQueuePool) Spawn(job func()) {
	p.jobs <- job
}

// Close stops accepting new jobs by closing the shared queue, which lets
// every worker's range loop drain and exit once it finishes its current
// job. Close blocks until all workers have exited.
func (p *SharedQueuePool) Close() error {
	close(p.jobs)
	p.wg.Wait()
	return nil
}
