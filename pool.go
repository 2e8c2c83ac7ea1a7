package detrack

import (
	"sync"
)

// Pool is a simple pool of Models opened from the same model file, used to
// run independent frames in parallel
type Pool struct {
	// pool of models
	models chan Model
	// size of pool
	size   int
	closed bool
	mu     sync.RWMutex
	close  sync.Once
}

// NewPool creates a pool of size models using the factory
func NewPool(size int, factory ModelFactory) (*Pool, error) {

	if size < 1 {
		size = 1
	}

	p := &Pool{
		models: make(chan Model, size),
		size:   size,
	}

	for i := 0; i < size; i++ {
		m, err := factory(i)

		if err != nil {
			// close any instances that may have been created before receiving
			// the error
			p.Close()
			return nil, err
		}

		p.Return(m)
	}

	return p, nil
}

// Size returns the number of models in the pool
func (p *Pool) Size() int {
	return p.size
}

// Get takes a model from the pool, blocking until one is free
func (p *Pool) Get() (Model, error) {
	m, ok := <-p.models

	if !ok {
		return nil, ErrPoolClosed
	}

	return m, nil
}

// Return a model to the pool.  Models returned after the pool was closed are
// closed.
func (p *Pool) Return(m Model) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		_ = m.Close()
		return
	}

	select {
	case p.models <- m:
	default:
		// pool is full
		_ = m.Close()
	}
}

// Close the pool and all models in it
func (p *Pool) Close() {
	p.close.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.models)
		p.mu.Unlock()

		for next := range p.models {
			_ = next.Close()
		}
	})
}
