package recorder

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/richrines1/qiskit-serverless/pkg/audit"
	"github.com/richrines1/qiskit-serverless/pkg/config"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
)

const (
	defaultAsyncBuffer  = 1000
	defaultWriteTimeout = 5 * time.Second
)

// Recorder writes audit records asynchronously so storage latency never
// blocks request handling. Records are buffered on a channel and drained by
// a background worker; when the buffer is full the record is dropped and an
// error logged rather than stalling the proxy.
type Recorder struct {
	storage audit.Storage
	enabled bool
	timeout time.Duration
	logger  *logging.Logger

	recordChan chan *audit.Record
	done       chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// New creates a recorder and starts its background writer.
func New(cfg *config.AuditConfig, storage audit.Storage, logger *logging.Logger) *Recorder {
	buffer := cfg.Recorder.AsyncBuffer
	if buffer <= 0 {
		buffer = defaultAsyncBuffer
	}
	timeout := cfg.Recorder.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	r := &Recorder{
		storage:    storage,
		enabled:    cfg.Enabled,
		timeout:    timeout,
		logger:     logger.Component("audit.recorder"),
		recordChan: make(chan *audit.Record, buffer),
		done:       make(chan struct{}),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder started",
		"enabled", cfg.Enabled,
		"async_buffer", buffer,
		"write_timeout", timeout,
	)

	return r
}

// Record enqueues one record for writing. It never blocks: when the buffer
// is full the record is dropped and ErrBufferFull returned.
func (r *Recorder) Record(record *audit.Record) error {
	if !r.enabled {
		return nil
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.RecordedTime.IsZero() {
		record.RecordedTime = time.Now()
	}

	select {
	case r.recordChan <- record:
		return nil
	default:
		r.logger.Error("audit buffer full, dropping record",
			"record_id", record.ID,
			"request_id", record.RequestID,
		)
		return audit.ErrBufferFull
	}
}

// Close drains the buffer and stops the background writer.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.write(record)
		case <-r.done:
			for {
				select {
				case record := <-r.recordChan:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(record *audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		return
	}

	r.logger.Debug("audit record written",
		"record_id", record.ID,
		"request_id", record.RequestID,
		"status", record.Status,
	)
}
