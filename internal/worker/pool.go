// Package worker runs jobs on a fixed number of goroutines.
package worker

import "sync"

type Job[T any] func() T

type Result[T any] struct {
	JobID  string
	Output T
}

// Pool fans jobs out to a fixed set of workers. Submit must not be called
// after Close. Results is closed once every submitted job has finished.
type Pool[T any] struct {
	jobs    chan jobWrapper[T]
	results chan Result[T]
	wg      sync.WaitGroup
	once    sync.Once
}

type jobWrapper[T any] struct {
	id string
	fn Job[T]
}

// NewPool starts workerCount workers. A bufferSize at least as large as the
// number of jobs lets a caller submit everything before draining Results.
func NewPool[T any](workerCount int, bufferSize int) *Pool[T] {
	workerCount = max(workerCount, 1)
	p := &Pool[T]{
		jobs:    make(chan jobWrapper[T], bufferSize),
		results: make(chan Result[T], bufferSize),
	}

	p.wg.Add(workerCount)
	for range workerCount {
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.results)
	}()

	return p
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		output := job.fn()
		p.results <- Result[T]{
			JobID:  job.id,
			Output: output,
		}
	}
}

func (p *Pool[T]) Submit(id string, fn Job[T]) {
	p.jobs <- jobWrapper[T]{id: id, fn: fn}
}

// Close stops accepting jobs. Workers finish what is queued, then exit.
func (p *Pool[T]) Close() {
	p.once.Do(func() { close(p.jobs) })
}

func (p *Pool[T]) Results() <-chan Result[T] {
	return p.results
}
