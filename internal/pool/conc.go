package pool

import "github.com/sourcegraph/conc/pool"

// ConcPool delegates job dispatch to sourcegraph/conc's work-stealing pool:
// goroutines pull from a shared ready queue instead of being bound to a
// single job source, which keeps throughput up when jobs vary in duration.
type ConcPool struct {
	p *pool.Pool
}

// NewConcPool returns a ConcPool capped at threads concurrent goroutines.
func NewConcPool(threads int) (*ConcPool, error) {
	if threads <= 0 {
		threads = 1
	}
	return &ConcPool{p: pool.New().WithMaxGoroutines(threads)}, nil
}

// Spawn submits job to the underlying work-stealing pool.
func (p *ConcPool) Spawn(job func()) {
	p.p.Go(job)
}

// Close waits for every submitted job to finish. conc's pool has no
// separate "stop accepting new work" signal short of this wait, so Close
// doubles as a drain.
func (p *ConcPool) Close() error {
	p.p.Wait()
	return nil
}
