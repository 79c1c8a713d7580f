package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/maheshrc27/postflow/internal/models"
)

// WorkerPool is the in-process Dispatcher: a fixed set of goroutines
// draining a channel of due requests. Attempts for different requests
// run concurrently; the scheduler only ever hands a request over once,
// so no request is executed by two pool workers at the same time.
type WorkerPool struct {
	worker *Worker
	size   int
	tasks  chan *models.PublishRequest
	wg     sync.WaitGroup
}

func NewWorkerPool(worker *Worker, size int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		worker: worker,
		size:   size,
		tasks:  make(chan *models.PublishRequest, size*2),
	}
}

// Run starts the pool and blocks until ctx is done and all in-flight
// attempts have finished.
func (p *WorkerPool) Run(ctx context.Context) {
	p.wg.Add(p.size)
	for i := 0; i < p.size; i++ {
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case req := <-p.tasks:
					if _, err := p.worker.Execute(ctx, req.ID); err != nil {
						slog.Info(err.Error())
					}
				}
			}
		}()
	}
	<-ctx.Done()
	p.wg.Wait()
}

func (p *WorkerPool) Dispatch(ctx context.Context, req *models.PublishRequest) error {
	select {
	case p.tasks <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
