package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"worksheet-backend/internal/models"
)

var (
	ErrQueueFull = errors.New("history queue is full")
	ErrStopped   = errors.New("history pool is stopped")
)

// EventWriter persists one generation event.
type EventWriter interface {
	Record(ctx context.Context, event *models.GenerationEvent) error
}

// Pool writes generation history in the background. Failed writes are
// retried with exponential backoff and then dropped.
type Pool struct {
	writer      EventWriter
	queue       chan *models.GenerationEvent
	workerCount int
	maxRetries  int
	backoff     time.Duration
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewPool(writer EventWriter, workerCount, queueSize int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}
	return &Pool{
		writer:      writer,
		queue:       make(chan *models.GenerationEvent, queueSize),
		workerCount: workerCount,
		maxRetries:  3,
		backoff:     time.Second,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	log.Printf("Started %d history writer goroutines", p.workerCount)
}

// Stop lets the workers drain what is already queued and waits for them.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	p.wg.Wait()
}

// Record queues an event without blocking.
func (p *Pool) Record(_ context.Context, event *models.GenerationEvent) error {
	select {
	case <-p.stopChan:
		return ErrStopped
	default:
	}
	select {
	case p.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case event := <-p.queue:
			p.write(id, event)
		case <-p.stopChan:
			for {
				select {
				case event := <-p.queue:
					p.write(id, event)
				default:
					log.Printf("History writer %d shutting down", id)
					return
				}
			}
		}
	}
}

func (p *Pool) write(id int, event *models.GenerationEvent) {
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := p.writer.Record(ctx, event)
		cancel()
		if err == nil {
			return
		}
		if attempt >= p.maxRetries {
			log.Printf("History writer %d: event %s dropped after %d attempts: %v", id, event.ID, attempt, err)
			return
		}
		log.Printf("History writer %d: event %s failed (attempt %d): %v; retrying", id, event.ID, attempt, err)
		time.Sleep(time.Duration(1<<uint(attempt-1)) * p.backoff)
	}
}
