package notify

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	identity "github.com/elimuconnect/go-identity"
	"github.com/goliatone/go-errors"
)

// ErrQueueFull is returned when a message is dropped because the buffer is full
var ErrQueueFull = errors.New("notification queue is full", errors.CategoryRateLimit).
	WithCode(http.StatusTooManyRequests)

// ErrClosed is returned after Close
var ErrClosed = errors.New("notification dispatcher is closed", errors.CategoryOperation)

// Sender delivers a single message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Config tunes the dispatcher. A full buffer never blocks the caller, the
// message is dropped and counted instead.
type Config struct {
	BufferSize  int
	SendTimeout time.Duration
}

// Dispatcher implements identity.Notifier. Messages are composed on the
// caller goroutine and delivered by a single worker.
type Dispatcher struct {
	cfg      Config
	composer Composer
	sender   Sender
	logger   identity.Logger

	ch        chan Message
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	failed    atomic.Uint64
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

var _ identity.Notifier = (*Dispatcher)(nil)

func NewDispatcher(sender Sender, composer Composer, cfg Config, logger identity.Logger) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = stdLogger{}
	}

	d := &Dispatcher{
		cfg:      cfg,
		composer: composer,
		sender:   sender,
		logger:   logger,
		ch:       make(chan Message, cfg.BufferSize),
		done:     make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) NotifyRegistration(ctx context.Context, acc *identity.Account) error {
	return d.enqueue(ctx, d.composer.Registration(acc))
}

func (d *Dispatcher) NotifyApproval(ctx context.Context, acc *identity.Account) error {
	return d.enqueue(ctx, d.composer.Approval(acc))
}

func (d *Dispatcher) NotifyRejection(ctx context.Context, acc *identity.Account, reason string) error {
	return d.enqueue(ctx, d.composer.Rejection(acc, reason))
}

func (d *Dispatcher) enqueue(_ context.Context, msg Message) error {
	// held across the send so Close cannot slip in after the closed check
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}

	select {
	case d.ch <- msg:
		return nil
	default:
		d.dropped.Add(1)
		d.logger.Warn("notify: queue full, dropped %s message %s for account %s", msg.Kind, msg.ID, msg.AccountID)
		return ErrQueueFull
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.ch:
			d.deliver(msg)
		case <-d.done:
			for {
				select {
				case msg := <-d.ch:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.failed.Add(1)
		d.logger.Error("notify: %s message %s for account %s failed: %v", msg.Kind, msg.ID, msg.AccountID, err)
		return
	}
	d.logger.Debug("notify: %s message %s delivered", msg.Kind, msg.ID)
}

// Close stops accepting messages and drains the buffer.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		close(d.done)
		d.wg.Wait()
	})
}

// Dropped counts messages rejected because the buffer was full
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Failed counts messages the sender rejected
func (d *Dispatcher) Failed() uint64 {
	return d.failed.Load()
}
