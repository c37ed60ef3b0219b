package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/careconnect/internal/observability/metrics"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// DefaultMaxAttempts is how many deliveries an entry gets before it is parked.
const DefaultMaxAttempts = 5

// OutboxEntry represents a pending notification.
type OutboxEntry struct {
	ID        uuid.UUID
	Type      string
	Payload   json.RawMessage
	Attempts  int
	CreatedAt time.Time
}

// DeliveryHandler emits events to downstream transports.
type DeliveryHandler interface {
	Handle(ctx context.Context, entry OutboxEntry) error
}

// OutboxStore persists notifications for reliable delivery.
type OutboxStore struct {
	pool rowQuerier
}

func NewOutboxStore(pool *pgxpool.Pool) *OutboxStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &OutboxStore{pool: pool}
}

func newOutboxStoreWithExec(exec rowQuerier) *OutboxStore {
	if exec == nil {
		panic("events: exec required")
	}
	return &OutboxStore{pool: exec}
}

func (s *OutboxStore) Insert(ctx context.Context, eventType string, payload any) (uuid.UUID, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("events: marshal payload: %w", err)
	}
	id := uuid.New()
	query := `
		INSERT INTO notification_outbox (id, type, payload)
		VALUES ($1, $2, $3)
	`
	if _, err := s.pool.Exec(ctx, query, id, eventType, data); err != nil {
		return uuid.Nil, fmt.Errorf("events: insert outbox: %w", err)
	}
	return id, nil
}

// FetchPending claims up to limit undelivered entries for lease. Claimed rows
// are hidden from other pollers until the lease runs out.
func (s *OutboxStore) FetchPending(ctx context.Context, limit int32, lease time.Duration) ([]OutboxEntry, error) {
	query := `
		UPDATE notification_outbox
		SET locked_until = now() + make_interval(secs => $2)
		WHERE id IN (
			SELECT id FROM notification_outbox
			WHERE delivered_at IS NULL
			  AND failed_at IS NULL
			  AND (locked_until IS NULL OR locked_until < now())
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, type, payload, attempts, created_at
	`
	rows, err := s.pool.Query(ctx, query, limit, lease.Seconds())
	if err != nil {
		return nil, fmt.Errorf("events: fetch pending: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var entry OutboxEntry
		var payload []byte
		if err := rows.Scan(&entry.ID, &entry.Type, &payload, &entry.Attempts, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("events: scan outbox: %w", err)
		}
		entry.Payload = append([]byte(nil), payload...)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *OutboxStore) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE notification_outbox
		SET delivered_at = now(), locked_until = NULL
		WHERE id = $1 AND delivered_at IS NULL
	`
	ct, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("events: mark delivered: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// RecordFailure bumps the attempt counter and parks the entry once it reaches
// maxAttempts. It reports whether the entry was parked.
func (s *OutboxStore) RecordFailure(ctx context.Context, id uuid.UUID, cause error, maxAttempts int) (bool, error) {
	query := `
		UPDATE notification_outbox
		SET attempts = attempts + 1,
		    last_error = $2,
		    locked_until = NULL,
		    failed_at = CASE WHEN attempts + 1 >= $3 THEN now() ELSE NULL END
		WHERE id = $1
		RETURNING failed_at IS NOT NULL
	`
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	var parked bool
	if err := s.pool.QueryRow(ctx, query, id, msg, maxAttempts).Scan(&parked); err != nil {
		return false, fmt.Errorf("events: record failure: %w", err)
	}
	return parked, nil
}

type outboxStore interface {
	FetchPending(ctx context.Context, limit int32, lease time.Duration) ([]OutboxEntry, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error)
	RecordFailure(ctx context.Context, id uuid.UUID, cause error, maxAttempts int) (bool, error)
}

// Deliverer drains the outbox through a handler. It is driven by the job
// scheduler rather than its own ticker.
type Deliverer struct {
	store       outboxStore
	handler     DeliveryHandler
	metrics     *metrics.Metrics
	logger      *logging.Logger
	batchSize   int32
	lease       time.Duration
	maxAttempts int
}

func NewDeliverer(store *OutboxStore, handler DeliveryHandler, logger *logging.Logger) *Deliverer {
	return newDeliverer(store, handler, logger)
}

func newDeliverer(store outboxStore, handler DeliveryHandler, logger *logging.Logger) *Deliverer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Deliverer{
		store:       store,
		handler:     handler,
		logger:      logger,
		batchSize:   25,
		lease:       time.Minute,
		maxAttempts: DefaultMaxAttempts,
	}
}

func (d *Deliverer) WithBatchSize(size int32) *Deliverer {
	if size > 0 {
		d.batchSize = size
	}
	return d
}

func (d *Deliverer) WithMaxAttempts(n int) *Deliverer {
	if n > 0 {
		d.maxAttempts = n
	}
	return d
}

func (d *Deliverer) WithMetrics(m *metrics.Metrics) *Deliverer {
	d.metrics = m
	return d
}

// RunOnce delivers one batch and returns how many entries were delivered.
func (d *Deliverer) RunOnce(ctx context.Context) (int, error) {
	if d.store == nil || d.handler == nil {
		return 0, nil
	}
	entries, err := d.store.FetchPending(ctx, d.batchSize, d.lease)
	if err != nil {
		d.logger.Error("outbox fetch failed", "error", err)
		return 0, err
	}
	delivered := 0
	for _, entry := range entries {
		if err := d.handler.Handle(ctx, entry); err != nil {
			parked, ferr := d.store.RecordFailure(ctx, entry.ID, err, d.maxAttempts)
			if ferr != nil {
				d.logger.Error("failed to record outbox failure", "error", ferr, "event_id", entry.ID)
			}
			if parked {
				d.metrics.ObserveOutbox("parked")
				d.logger.Error("outbox entry parked", "error", err, "event_id", entry.ID, "type", entry.Type, "attempts", entry.Attempts+1)
			} else {
				d.metrics.ObserveOutbox("failed")
				d.logger.Warn("outbox delivery failed", "error", err, "event_id", entry.ID, "type", entry.Type)
			}
			continue
		}
		if ok, err := d.store.MarkDelivered(ctx, entry.ID); err != nil {
			d.logger.Error("failed to mark outbox delivered", "error", err, "event_id", entry.ID)
		} else if ok {
			delivered++
			d.metrics.ObserveOutbox("delivered")
			d.logger.Debug("outbox delivered", "event_id", entry.ID, "type", entry.Type)
		}
	}
	return delivered, nil
}
