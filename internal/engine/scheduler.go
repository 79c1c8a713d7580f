package engine

import (
	"container/heap"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
)

var (
	// ErrInvalidSchedule is returned when the scheduled time lies
	// further in the past than the grace window allows.
	ErrInvalidSchedule = errors.New("scheduled time is too far in the past")
	// ErrNotCancellable is returned when a cancel races a dispatch or
	// targets a request that already finished.
	ErrNotCancellable = errors.New("request is not in a cancellable state")
	// ErrRequestNotFound is returned when the request does not exist.
	ErrRequestNotFound = errors.New("publish request not found")
)

type queueItem struct {
	id       string
	request  *models.PublishRequest
	dueAt    time.Time
	priority int
	seq      uint64
	index    int
}

type requestHeap []*queueItem

func (h requestHeap) Len() int { return len(h) }

func (h requestHeap) Less(i, j int) bool {
	if !h[i].dueAt.Equal(h[j].dueAt) {
		return h[i].dueAt.Before(h[j].dueAt)
	}
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h requestHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *requestHeap) Push(x interface{}) {
	it := x.(*queueItem)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *requestHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// Scheduler keeps the queue of pending publish requests ordered by
// (due time, priority, submission order) and hands due requests to the
// dispatcher exactly once. All heap mutation happens under mu; the run
// loop is the only goroutine that pops.
type Scheduler struct {
	cfg      Config
	requests repository.PublishRequestRepository
	dispatch Dispatcher

	mu    sync.Mutex
	queue requestHeap
	items map[string]*queueItem
	seq   uint64
	wake  chan struct{}
}

func NewScheduler(cfg Config, requests repository.PublishRequestRepository, dispatch Dispatcher) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		requests: requests,
		dispatch: dispatch,
		items:    make(map[string]*queueItem),
		wake:     make(chan struct{}, 1),
	}
}

// Submit validates and persists a new request, then enqueues it. A
// scheduled time in the past is dispatched immediately as long as it is
// within the grace window.
func (s *Scheduler) Submit(ctx context.Context, req *models.PublishRequest) error {
	now := time.Now().UTC()
	if req.ScheduledTime.Before(now.Add(-s.cfg.GraceWindow)) {
		return ErrInvalidSchedule
	}
	req.Status = models.RequestStatusScheduled
	req.NextAttemptAt = req.ScheduledTime
	if err := s.requests.Create(ctx, req); err != nil {
		return err
	}
	s.enqueue(req, req.ScheduledTime)
	return nil
}

// Cancel moves a request to cancelled if and only if it is still
// scheduled. A request already handed to a worker cannot be cancelled.
func (s *Scheduler) Cancel(ctx context.Context, id string) error {
	ok, err := s.requests.UpdateStatusIf(ctx, id, models.RequestStatusScheduled, models.RequestStatusCancelled)
	if err != nil {
		return err
	}
	if !ok {
		req, err := s.requests.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if req == nil {
			return ErrRequestNotFound
		}
		return ErrNotCancellable
	}

	s.mu.Lock()
	if it, found := s.items[id]; found {
		heap.Remove(&s.queue, it.index)
		delete(s.items, id)
	}
	s.mu.Unlock()
	return nil
}

// Requeue schedules the next attempt for a request whose last attempt
// failed transiently. attemptsMade sets the backoff exponent.
func (s *Scheduler) Requeue(ctx context.Context, req *models.PublishRequest, attemptsMade int) error {
	next := time.Now().UTC().Add(BackoffDelay(s.cfg, attemptsMade))
	ok, err := s.requests.Requeue(ctx, req.ID, next)
	if err != nil {
		return err
	}
	if !ok {
		// Cancelled or already terminal; nothing to requeue.
		return nil
	}
	req.Status = models.RequestStatusScheduled
	req.NextAttemptAt = next
	s.enqueue(req, next)
	return nil
}

// Recover reloads persisted state after a restart. Scheduled requests
// are re-enqueued; requests stuck in dispatched are assumed lost in
// flight and requeued for an immediate attempt.
func (s *Scheduler) Recover(ctx context.Context) error {
	scheduled, err := s.requests.ListByStatus(ctx, models.RequestStatusScheduled)
	if err != nil {
		return err
	}
	for _, req := range scheduled {
		due := req.ScheduledTime
		if req.NextAttemptAt.After(due) {
			due = req.NextAttemptAt
		}
		s.enqueue(req, due)
	}

	dispatched, err := s.requests.ListByStatus(ctx, models.RequestStatusDispatched)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, req := range dispatched {
		ok, err := s.requests.Requeue(ctx, req.ID, now)
		if err != nil {
			return err
		}
		if ok {
			req.Status = models.RequestStatusScheduled
			req.NextAttemptAt = now
			s.enqueue(req, now)
		}
	}
	slog.Info("scheduler recovered", slog.Int("scheduled", len(scheduled)), slog.Int("dispatched", len(dispatched)))
	return nil
}

// Run drives the dispatch loop until ctx is done. It sleeps until the
// earliest due time and is woken early when a submission changes the
// head of the queue.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		s.mu.Lock()
		var wait time.Duration = -1
		if s.queue.Len() > 0 {
			now := time.Now().UTC()
			head := s.queue[0]
			if !head.dueAt.After(now) {
				it := heap.Pop(&s.queue).(*queueItem)
				delete(s.items, it.id)
				s.mu.Unlock()
				s.dispatchOne(ctx, it.request)
				continue
			}
			wait = head.dueAt.Sub(now)
		}
		s.mu.Unlock()

		if wait < 0 {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
			}
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (s *Scheduler) enqueue(req *models.PublishRequest, dueAt time.Time) {
	s.mu.Lock()
	if it, found := s.items[req.ID]; found {
		it.request = req
		it.dueAt = dueAt
		heap.Fix(&s.queue, it.index)
		s.mu.Unlock()
		s.signal()
		return
	}
	s.seq++
	it := &queueItem{
		id:       req.ID,
		request:  req,
		dueAt:    dueAt,
		priority: req.Priority,
		seq:      s.seq,
	}
	heap.Push(&s.queue, it)
	s.items[req.ID] = it
	s.mu.Unlock()
	s.signal()
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// dispatchOne flips the request to dispatched and hands it over. The
// compare-and-set loses against a concurrent cancel, in which case the
// request is simply dropped here.
func (s *Scheduler) dispatchOne(ctx context.Context, req *models.PublishRequest) {
	ok, err := s.requests.UpdateStatusIf(ctx, req.ID, models.RequestStatusScheduled, models.RequestStatusDispatched)
	if err != nil {
		slog.Info(err.Error())
		// The row is still scheduled; put the request back in the queue
		// so a store blip does not strand it until the next restart.
		s.enqueue(req, time.Now().UTC().Add(s.cfg.BaseBackoff))
		return
	}
	if !ok {
		return
	}
	req.Status = models.RequestStatusDispatched
	if err := s.dispatch.Dispatch(ctx, req); err != nil {
		slog.Info(err.Error())
		// Hand the request back to the queue so it is not stranded in
		// dispatched when the dispatcher is unavailable.
		if _, rqErr := s.requests.Requeue(ctx, req.ID, time.Now().UTC().Add(s.cfg.BaseBackoff)); rqErr != nil {
			slog.Info(rqErr.Error())
			return
		}
		req.Status = models.RequestStatusScheduled
		s.enqueue(req, time.Now().UTC().Add(s.cfg.BaseBackoff))
	}
}

// QueueLen reports how many requests are waiting. Used by tests and the
// health endpoint.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}
