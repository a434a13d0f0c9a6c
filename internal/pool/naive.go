package pool

// NaivePool spawns a new goroutine for every job, with no reuse and no
// bound on concurrency. It exists as the simplest possible Pool
// implementation — useful as a baseline and for tests, not for production
// traffic where an unbounded number of connections could exhaust memory.
type NaivePool struct{}

// NewNaivePool returns a NaivePool. The threads argument is accepted for
// interface symmetry with the other strategies but is unused: every job
// gets its own goroutine regardless.
func NewNaivePool(threads int) (*NaivePool, error) {
	return &NaivePool{}, nil
}

// Spawn runs job in a new goroutine.
func (p *NaivePool) Spawn(job func()) {
	go job()
}

// Close is a no-op: NaivePool holds no goroutines open between jobs.
func (p *NaivePool) Close() error {
	return nil
}
