// Package mailer delivers transactional email through an in-process queue.
// Enqueueing is fire-and-forget: the caller gets no guarantee the message has
// left the building by the time the request returns, only that the worker
// will attempt delivery at least once.
package mailer

import (
	"context"
	"sync"
	"time"

	"github.com/nine-apps/catalog_service/internal/app/metrics"
	"github.com/nine-apps/catalog_service/pkg/logger"
)

// Template kinds understood by senders.
const (
	KindNewUser       = "NEW_USER"
	KindPasswordReset = "PASSWORD_RESET"
)

// Message is one email to deliver.
type Message struct {
	Kind      string
	Recipient string
	Data      map[string]string
}

// Sender performs the actual delivery of a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher drains an in-process queue into a Sender. It implements
// system.Service. Failed sends are retried; a message is dropped only after
// maxAttempts consecutive failures.
type Dispatcher struct {
	sender      Sender
	log         *logger.Logger
	queue       chan Message
	stop        chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	stopped     bool
	maxAttempts int
	retryDelay  time.Duration
}

// NewDispatcher creates a dispatcher with the given queue capacity.
func NewDispatcher(sender Sender, capacity int, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewDefault("mailer")
	}
	if capacity <= 0 {
		capacity = 128
	}
	return &Dispatcher{
		sender:      sender,
		log:         log,
		queue:       make(chan Message, capacity),
		stop:        make(chan struct{}),
		maxAttempts: 3,
		retryDelay:  500 * time.Millisecond,
	}
}

func (d *Dispatcher) Name() string { return "mailer" }

// Enqueue adds a message to the queue. It never blocks: when the queue is
// full or the dispatcher is stopped the message is dropped with a warning,
// since a user can always request a fresh code.
func (d *Dispatcher) Enqueue(msg Message) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		d.log.WithField("recipient", msg.Recipient).Warn("mailer stopped; dropping message")
		return
	}
	select {
	case d.queue <- msg:
		metrics.SetMailQueueDepth(len(d.queue))
	default:
		d.log.WithField("recipient", msg.Recipient).Warn("mail queue full; dropping message")
	}
}

// Start launches the delivery worker.
func (d *Dispatcher) Start(_ context.Context) error {
	d.wg.Add(1)
	go d.run()
	return nil
}

// Stop drains the queue and waits for in-flight deliveries to finish.
func (d *Dispatcher) Stop(_ context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	d.mu.Unlock()

	close(d.stop)
	d.wg.Wait()
	return nil
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case msg := <-d.queue:
			d.deliver(msg)
		case <-d.stop:
			// Drain whatever is left before exiting.
			for {
				select {
				case msg := <-d.queue:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	if d.sender == nil {
		return
	}
	metrics.SetMailQueueDepth(len(d.queue))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err = d.sender.Send(ctx, msg); err == nil {
			metrics.RecordMailDelivery(true)
			return
		}
		d.log.WithError(err).
			WithField("recipient", msg.Recipient).
			WithField("attempt", attempt).
			Warn("mail delivery failed")
		if attempt < d.maxAttempts {
			time.Sleep(d.retryDelay)
		}
	}
	metrics.RecordMailDelivery(false)
	d.log.WithError(err).
		WithField("recipient", msg.Recipient).
		Error("mail delivery abandoned")
}
