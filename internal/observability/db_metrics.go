package observability

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ObserveDB runs fn as the repository operation op and records its latency.
// A missing row is a normal outcome, not an error.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	if p == nil {
		return fn()
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start).Seconds()

	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		p.DBDuration.WithLabelValues(op, "ok").Observe(elapsed)
		return err
	}

	p.DBDuration.WithLabelValues(op, "error").Observe(elapsed)
	p.DBErrors.WithLabelValues(op, classifyDBErr(err)).Inc()
	return err
}

var pgClasses = map[string]string{
	"23505": "unique_violation",
	"23503": "foreign_key_violation",
	"40001": "serialization_failure",
	"40P01": "deadlock",
	"57014": "query_canceled",
}

// Driver messages for the SQLite and MySQL backends, matched lowercased.
var messageClasses = []struct {
	needle string
	class  string
}{
	{"unique constraint failed", "unique_violation"},
	{"duplicate entry", "unique_violation"},
	{"foreign key constraint", "foreign_key_violation"},
	{"database is locked", "locked"},
	{"deadline", "timeout"},
	{"timeout", "timeout"},
	{"connection", "connection"},
}

func classifyDBErr(err error) string {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return "unique_violation"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return "foreign_key_violation"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if class, ok := pgClasses[pgErr.Code]; ok {
			return class
		}
		return "pg_" + pgErr.Code
	}

	msg := strings.ToLower(err.Error())
	for _, m := range messageClasses {
		if strings.Contains(msg, m.needle) {
			return m.class
		}
	}
	return "unknown"
}
