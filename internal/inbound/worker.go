package inbound

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/session-booking/internal/commands"
	"github.com/wolfman30/session-booking/internal/messaging"
	"github.com/wolfman30/session-booking/pkg/logging"
)

const (
	defaultWorkerCount     = 2
	defaultReceiveWaitSecs = 20
	maxReceiveBatchSize    = 10
	handleTimeout          = 30 * time.Second
	deleteTimeout          = 5 * time.Second
)

// MessageHandler applies one inbound message.
type MessageHandler interface {
	Handle(ctx context.Context, msg messaging.InboundMessage) (commands.Result, error)
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
}

type WorkerOption func(*workerConfig)

func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds >= 0 {
			cfg.receiveWaitSecs = seconds
		}
	}
}

// WithReceiveBatchSize sets how many messages to fetch per poll.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// Worker drains the queue into the handler. Every received message is
// deleted after handling, including ones that failed, since handler errors
// are logged rather than retried.
type Worker struct {
	queue   Queue
	handler MessageHandler
	cfg     workerConfig
	logger  *logging.Logger
	wg      sync.WaitGroup
}

func NewWorker(queue Queue, handler MessageHandler, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if queue == nil || handler == nil {
		panic("inbound: queue and handler required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultReceiveWaitSecs,
		receiveBatchSize: maxReceiveBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Worker{queue: queue, handler: handler, cfg: cfg, logger: logger}
}

// Start launches the consumers; they stop when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("inbound worker started", "worker_id", workerID)

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("inbound worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to receive inbound messages", "error", err, "worker_id", workerID)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg Message) {
	defer w.deleteMessage(context.WithoutCancel(ctx), msg.ReceiptHandle)

	p, err := decodePayload(msg.Body)
	if err != nil {
		w.logger.Error("dropping undecodable inbound message", "error", err, "queue_message_id", msg.ID)
		return
	}

	handleCtx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()
	res, err := w.handler.Handle(handleCtx, p.Message)
	if err != nil {
		w.logger.Error("inbound message handling failed", "error", err, "message_id", p.Message.ID)
		return
	}
	w.logger.Debug("inbound message handled", "message_id", p.Message.ID, "outcome", string(res.Outcome))
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}
	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()
	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete inbound message", "error", err)
	}
}
