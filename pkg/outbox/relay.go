package outbox

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/kanban/pkg/repo"
)

// Relay polls an outbox table and hands committed rows to a Dispatcher.
// Rows are delivered at least once; a row that fails MaxAttempts times stays unpublished with
// last_error set and is never claimed again.
type Relay struct {
	pool       *pgxpool.Pool
	table      pgx.Identifier
	tableLabel string
	dispatcher Dispatcher
	opts       RelayOptions
	lockKey    int64
	m          *metrics
}

func NewRelay(pool *pgxpool.Pool, table pgx.Identifier, dispatcher Dispatcher, opts RelayOptions) (*Relay, error) {
	if pool == nil {
		return nil, invalidConfig("pool is required")
	}
	if len(table) == 0 {
		return nil, invalidConfig("table is required")
	}
	if dispatcher == nil {
		return nil, invalidConfig("dispatcher is required")
	}
	opts.setDefaults()

	label := TableLabel(table)
	return &Relay{
		pool:       pool,
		table:      table,
		tableLabel: label,
		dispatcher: dispatcher,
		opts:       opts,
		lockKey:    advisoryLockKey("outbox:" + label),
		m:          getMetrics(),
	}, nil
}

// Run blocks until ctx is done. With SingleActive only the instance holding the
// table's session advisory lock processes rows; the others keep polling for leadership.
func (r *Relay) Run(ctx context.Context) error {
	if !r.opts.SingleActive {
		r.m.relayLeader.WithLabelValues(r.tableLabel).Set(1)
		return r.loop(ctx, nil)
	}

	for {
		conn, leader, err := r.acquireLeader(ctx)
		if err != nil {
			r.opts.Logger.WithError(err).Warn("outbox: leader election failed")
		}
		if leader {
			r.m.relayLeader.WithLabelValues(r.tableLabel).Set(1)
			r.opts.Logger.WithField("table", r.tableLabel).Info("outbox: relay became leader")

			err := r.loop(ctx, conn)
			var unlocked bool
			_ = conn.QueryRow(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1::bigint)`, r.lockKey).Scan(&unlocked)
			conn.Release()
			r.m.relayLeader.WithLabelValues(r.tableLabel).Set(0)
			return err
		}
		r.m.relayLeader.WithLabelValues(r.tableLabel).Set(0)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.opts.PollInterval):
		}
	}
}

func (r *Relay) acquireLeader(ctx context.Context) (*pgxpool.Conn, bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1::bigint)`, r.lockKey).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, err
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}
	return conn, true, nil
}

func (r *Relay) loop(ctx context.Context, conn *pgxpool.Conn) error {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	nextDepthAt := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if time.Now().After(nextDepthAt) {
			if err := r.observeQueueDepth(ctx, conn); err != nil {
				r.opts.Logger.WithError(err).Debug("outbox: observe queue depth failed")
			}
			nextDepthAt = time.Now().Add(r.opts.ObserveQueueDepthEvery)
		}

		if err := r.ProcessOnce(ctx, conn); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			r.opts.Logger.WithError(err).Warn("outbox: process tick failed")
		}
	}
}

type claimedRow struct {
	id       uuid.UUID
	boardID  int64
	topic    string
	payload  []byte
	eventID  uuid.UUID
	sequence int64
	attempts int
}

func (c claimedRow) fields(table string) logrus.Fields {
	return logrus.Fields{
		"table":    table,
		"topic":    c.topic,
		"event_id": c.eventID.String(),
		"board_id": c.boardID,
		"sequence": c.sequence,
		"attempts": c.attempts,
	}
}

// ProcessOnce claims one batch and dispatches it. conn may be nil to use the pool.
func (r *Relay) ProcessOnce(ctx context.Context, conn *pgxpool.Conn) error {
	rows, err := r.claim(ctx, conn)
	if err != nil {
		return err
	}

	for _, row := range rows {
		start := time.Now()
		dispatchCtx, cancel := context.WithTimeout(ctx, r.opts.DispatchTimeout)
		err := r.dispatcher.Dispatch(dispatchCtx, DispatchedMessage{
			Meta: Meta{
				Table:    r.table,
				BoardID:  row.boardID,
				Topic:    row.topic,
				EventID:  row.eventID,
				Sequence: row.sequence,
				Attempts: row.attempts,
			},
			Payload: row.payload,
		})
		cancel()
		latency := time.Since(start)

		if err == nil {
			r.recordDispatch(row.topic, "success", latency)
			if ackErr := r.settle(ctx, conn, ackSQL, row.id); ackErr != nil {
				r.opts.Logger.WithError(ackErr).WithFields(row.fields(r.tableLabel)).Warn("outbox: ack failed")
			}
			continue
		}

		r.recordDispatch(row.topic, "failure", latency)
		lastErr := truncateError(err, r.opts.LastErrorMaxLen)

		if row.attempts >= r.opts.MaxAttempts {
			r.m.deadTotal.WithLabelValues(r.tableLabel, row.topic).Inc()
			r.opts.Logger.WithError(err).WithFields(row.fields(r.tableLabel)).Error("outbox: message exhausted its attempts")
			if deadErr := r.settle(ctx, conn, deadSQL, row.id, lastErr); deadErr != nil {
				r.opts.Logger.WithError(deadErr).WithFields(row.fields(r.tableLabel)).Warn("outbox: dead update failed")
			}
			continue
		}

		next := time.Now().Add(backoff(row.attempts, r.opts.MaxBackoff) + jitter(r.opts.Rand, r.opts.JitterMax))
		if nackErr := r.settle(ctx, conn, nackSQL, row.id, lastErr, next); nackErr != nil {
			r.opts.Logger.WithError(nackErr).WithFields(row.fields(r.tableLabel)).Warn("outbox: nack failed")
		}
	}
	return nil
}

func (r *Relay) begin(ctx context.Context, conn *pgxpool.Conn) (pgx.Tx, error) {
	if conn != nil {
		return conn.Begin(ctx)
	}
	return r.pool.Begin(ctx)
}

func (r *Relay) db(conn *pgxpool.Conn) repo.Tx {
	if conn != nil {
		return conn
	}
	return r.pool
}

func (r *Relay) claim(ctx context.Context, conn *pgxpool.Conn) ([]claimedRow, error) {
	tx, err := r.begin(ctx, conn)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	now := time.Now()
	table := r.table.Sanitize()
	q := fmt.Sprintf(
		`SELECT id, board_id, topic, payload, event_id, sequence, attempts
		   FROM %s
		  WHERE published_at IS NULL
		    AND available_at <= $1
		    AND attempts < $2
		    AND (locked_at IS NULL OR locked_at < $3)
		  ORDER BY available_at, sequence
		  LIMIT $4
		  FOR UPDATE SKIP LOCKED`,
		table,
	)
	rows, err := tx.Query(ctx, q, now, r.opts.MaxAttempts, now.Add(-r.opts.LockTTL), r.opts.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("outbox claim select: %w", err)
	}

	var out []claimedRow
	var ids []uuid.UUID
	for rows.Next() {
		var c claimedRow
		if err := rows.Scan(&c.id, &c.boardID, &c.topic, &c.payload, &c.eventID, &c.sequence, &c.attempts); err != nil {
			rows.Close()
			return nil, fmt.Errorf("outbox claim scan: %w", err)
		}
		c.attempts++
		out = append(out, c)
		ids = append(ids, c.id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox claim rows: %w", err)
	}

	if len(ids) > 0 {
		update := fmt.Sprintf(`UPDATE %s SET locked_at = $1, attempts = attempts + 1 WHERE id = ANY($2)`, table)
		if _, err := tx.Exec(ctx, update, now, pgtype.FlatArray[uuid.UUID](ids)); err != nil {
			return nil, fmt.Errorf("outbox claim update: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

const (
	ackSQL  = `UPDATE %s SET published_at = now(), locked_at = NULL, last_error = NULL WHERE id = $1 AND published_at IS NULL`
	nackSQL = `UPDATE %s SET locked_at = NULL, last_error = $2, available_at = $3 WHERE id = $1 AND published_at IS NULL`
	deadSQL = `UPDATE %s SET locked_at = NULL, last_error = $2, available_at = now() WHERE id = $1 AND published_at IS NULL`
)

func (r *Relay) settle(ctx context.Context, conn *pgxpool.Conn, stmt string, args ...any) error {
	if _, err := r.db(conn).Exec(ctx, fmt.Sprintf(stmt, r.table.Sanitize()), args...); err != nil {
		return fmt.Errorf("outbox settle: %w", err)
	}
	return nil
}

func (r *Relay) observeQueueDepth(ctx context.Context, conn *pgxpool.Conn) error {
	q := fmt.Sprintf(
		`SELECT count(*), count(*) FILTER (WHERE locked_at IS NOT NULL) FROM %s WHERE published_at IS NULL`,
		r.table.Sanitize(),
	)
	var pending, locked int64
	if err := r.db(conn).QueryRow(ctx, q).Scan(&pending, &locked); err != nil {
		return fmt.Errorf("outbox queue depth: %w", err)
	}
	r.m.pending.WithLabelValues(r.tableLabel).Set(float64(pending))
	r.m.locked.WithLabelValues(r.tableLabel).Set(float64(locked))
	return nil
}

func (r *Relay) recordDispatch(topic, result string, latency time.Duration) {
	r.m.dispatchTotal.WithLabelValues(r.tableLabel, topic, result).Inc()
	r.m.dispatchLatency.WithLabelValues(r.tableLabel, topic, result).Observe(latency.Seconds())
}

func advisoryLockKey(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
