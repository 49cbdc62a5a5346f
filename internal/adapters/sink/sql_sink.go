package sink

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/ghalamif/plcbridge/internal/domain"
	"github.com/ghalamif/plcbridge/internal/ports"
)

// SQLSink writes one committed row per reading.
type SQLSink struct {
	db        *sql.DB
	dialect   dialect
	target    domain.PersistenceTarget
	createSQL string
	insertSQL string
}

func NewSQLSink(db *sql.DB, target domain.PersistenceTarget) (*SQLSink, error) {
	d, err := dialectFor(target.Driver)
	if err != nil {
		return nil, err
	}
	return &SQLSink{
		db:        db,
		dialect:   d,
		target:    target,
		createSQL: d.createTable(target),
		insertSQL: d.insert(target),
	}, nil
}

func (s *SQLSink) Name() string { return s.dialect.name }

// EnsureSchema creates the target table when absent. It is safe to call
// repeatedly and concurrently with other creators.
func (s *SQLSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.createSQL); err != nil {
		if isConnectionError(err) {
			return &domain.ConnectionLostError{Err: err}
		}
		return fmt.Errorf("create table %s: %w", s.target.Table, err)
	}
	return nil
}

func (s *SQLSink) Record(ctx context.Context, r domain.Reading) error {
	args := []any{r.Node, r.Value, r.Timestamp}
	if s.target.WithSource() {
		args = append([]any{r.Source}, args...)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(r, err)
	}
	if _, err := tx.ExecContext(ctx, s.insertSQL, args...); err != nil {
		_ = tx.Rollback()
		return classify(r, err)
	}
	if err := tx.Commit(); err != nil {
		return classify(r, err)
	}
	return nil
}

func (s *SQLSink) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func classify(r domain.Reading, err error) error {
	if isConnectionError(err) {
		return &domain.ConnectionLostError{Err: err}
	}
	return &domain.WriteError{Reading: r, Err: err}
}

// isConnectionError separates a dead connection from a row the server refused.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1053, 2006, 2013: // server shutdown, gone away, lost during query
			return true
		}
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code.Class() == "08" {
			return true
		}
		switch pqErr.Code {
		case "57P01", "57P02", "57P03":
			return true
		}
	}
	return false
}

var _ ports.Sink = (*SQLSink)(nil)
