// Package resilience guards calls to the remote table gateway with a circuit
// breaker so a failing database degrades storefront features quickly instead
// of stalling every request on timeouts.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/database"
)

// BreakerConfig holds configuration for the circuit breaker.
type BreakerConfig struct {
	// Name identifies this breaker in metrics and logs.
	Name string

	// MaxRequests is the number of trial requests allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing counts.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// FailureRatio trips the breaker once this share of requests failed.
	FailureRatio float64

	// MinRequests must be observed before FailureRatio is evaluated.
	MinRequests uint32
}

// DefaultBreakerConfig returns the defaults used for the storefront database.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      15 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = gobreaker.ErrOpenState

// IsRejected reports whether err came from the breaker rather than the database.
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

var breakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// healthy reports whether err still proves the database answered. Missing
// rows, SQL errors and caller cancellation do not count against the breaker.
func healthy(err error) bool {
	if err == nil || errors.Is(err, pgx.ErrNoRows) || errors.Is(err, context.Canceled) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}

// DB wraps a database.DBTX with a two-step circuit breaker.
type DB struct {
	next    database.DBTX
	breaker *gobreaker.TwoStepCircuitBreaker[struct{}]
	name    string
}

var _ database.DBTX = (*DB)(nil)

// NewDB returns next guarded by a breaker built from cfg.
func NewDB(next database.DBTX, cfg BreakerConfig, logger *slog.Logger) *DB {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}
	breakerState.WithLabelValues(cfg.Name).Set(0)

	return &DB{
		next:    next,
		breaker: gobreaker.NewTwoStepCircuitBreaker[struct{}](settings),
		name:    cfg.Name,
	}
}

// State returns the current breaker state.
func (d *DB) State() gobreaker.State {
	return d.breaker.State()
}

func (d *DB) allow() (func(bool), error) {
	done, err := d.breaker.Allow()
	if err != nil {
		return nil, fmt.Errorf("breaker %s: %w", d.name, err)
	}
	return done, nil
}

// Exec implements database.DBTX.
func (d *DB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	done, err := d.allow()
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	tag, err := d.next.Exec(ctx, sql, args...)
	done(healthy(err))
	return tag, err
}

// Query implements database.DBTX. The outcome is reported when the rows are closed.
func (d *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	done, err := d.allow()
	if err != nil {
		return nil, err
	}
	rows, err := d.next.Query(ctx, sql, args...)
	if err != nil {
		done(healthy(err))
		return nil, err
	}
	return &guardedRows{Rows: rows, done: done}, nil
}

// QueryRow implements database.DBTX. The outcome is reported by Scan.
func (d *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	done, err := d.allow()
	if err != nil {
		return rejectedRow{err: err}
	}
	return &guardedRow{row: d.next.QueryRow(ctx, sql, args...), done: done}
}

type guardedRows struct {
	pgx.Rows
	once sync.Once
	done func(bool)
}

func (r *guardedRows) Close() {
	r.Rows.Close()
	r.once.Do(func() { r.done(healthy(r.Rows.Err())) })
}

type guardedRow struct {
	row  pgx.Row
	once sync.Once
	done func(bool)
}

func (r *guardedRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	r.once.Do(func() { r.done(healthy(err)) })
	return err
}

type rejectedRow struct{ err error }

func (r rejectedRow) Scan(...any) error { return r.err }
