package sink

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/ghalamif/plcbridge/internal/domain"
	"github.com/ghalamif/plcbridge/internal/ports"
)

// SQLOpener connects to the persistence target and ensures the schema.
type SQLOpener struct {
	openDB func(driverName, dsn string) (*sql.DB, error)
}

func NewSQLOpener() *SQLOpener {
	return &SQLOpener{openDB: sql.Open}
}

func (o *SQLOpener) Open(ctx context.Context, target domain.PersistenceTarget) (ports.Sink, error) {
	d, err := dialectFor(target.Driver)
	if err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("%s://%s/%s", d.name, target.Host, target.Database)
	db, err := o.openDB(d.name, d.dsn(target))
	if err != nil {
		return nil, &domain.ConnectError{Target: addr, Err: err}
	}
	// Rows are written one at a time from a single goroutine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &domain.ConnectError{Target: addr, Err: err}
	}

	s, err := NewSQLSink(db, target)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, &domain.ConnectError{Target: addr, Err: err}
	}
	return s, nil
}

var _ ports.SinkOpener = (*SQLOpener)(nil)
