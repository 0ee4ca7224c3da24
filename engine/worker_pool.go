package engine

import (
	"context"
	"sync"
)

// TaskHandler is a function that processes a FileTask.
type TaskHandler func(context.Context, FileTask)

// WorkerPool manages a bounded set of workers consuming FileTasks from a
// channel. Workers exit when the channel is closed and drained, when the
// pool is stopped, or when they are individually decommissioned.
type WorkerPool struct {
	taskChan TaskChannel
	handler  TaskHandler

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	workers     map[int]chan struct{}
	workerCount int
	nextID      int
	wg          sync.WaitGroup
}

// NewWorkerPool creates a new worker pool reading from taskChan.
func NewWorkerPool(ctx context.Context, taskChan TaskChannel, handler TaskHandler) *WorkerPool {
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		taskChan: taskChan,
		handler:  handler,
		ctx:      ctx,
		cancel:   cancel,
		workers:  make(map[int]chan struct{}),
	}
}

// SetWorkerCount scales the number of workers up or down gracefully.
func (p *WorkerPool) SetWorkerCount(count int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.workerCount < count {
		p.addWorker()
	}

	for p.workerCount > count {
		p.removeWorker()
	}
}

// WorkerCount returns the current target number of workers.
func (p *WorkerPool) WorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workerCount
}

func (p *WorkerPool) addWorker() {
	quitChan := make(chan struct{})
	id := p.nextID
	p.nextID++
	p.workers[id] = quitChan
	p.workerCount++
	p.wg.Add(1)

	go func(id int, quit chan struct{}) {
		defer p.wg.Done()
		for {
			// Prioritize quit and context cancellation checking
			select {
			case <-quit:
				return
			case <-p.ctx.Done():
				return
			default:
			}

			select {
			case <-quit:
				// Worker decommissioned gracefully
				return
			case <-p.ctx.Done():
				// Pool stopped, exit
				return
			case task, ok := <-p.taskChan:
				if !ok {
					// Task channel closed, exit
					return
				}
				p.handler(p.ctx, task)
			}
		}
	}(id, quitChan)
}

func (p *WorkerPool) removeWorker() {
	// Find arbitrary worker to decommission
	for id, quit := range p.workers {
		close(quit) // Signal the worker to exit gracefully when it finishes current task
		delete(p.workers, id)
		p.workerCount--
		return // Remove only one
	}
}

// Wait blocks until all workers have exited. Close the task channel first;
// otherwise workers keep waiting for more tasks.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// Stop initiates termination of all workers and waits for them to exit.
// Tasks currently running might be aborted since the context is cancelled.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
}
