package sink

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/ghalamif/plcbridge/internal/domain"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type dialect struct {
	name          string
	quote         func(ident string) string
	placeholder   func(i int) string
	timestampType string
	dsn           func(t domain.PersistenceTarget) string
}

var dialects = map[string]dialect{
	DriverMySQL: {
		name:          DriverMySQL,
		quote:         func(s string) string { return "`" + s + "`" },
		placeholder:   func(int) string { return "?" },
		timestampType: "DATETIME",
		dsn:           mysqlDSN,
	},
	DriverPostgres: {
		name:          DriverPostgres,
		quote:         func(s string) string { return `"` + s + `"` },
		placeholder:   func(i int) string { return "$" + strconv.Itoa(i) },
		timestampType: "TIMESTAMP",
		dsn:           postgresDSN,
	},
}

func dialectFor(driver string) (dialect, error) {
	name := strings.ToLower(driver)
	if name == "" {
		name = DriverMySQL
	}
	d, ok := dialects[name]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported driver %q", driver)
	}
	return d, nil
}

func (d dialect) createTable(t domain.PersistenceTarget) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(d.quote(t.Table))
	b.WriteString(" (")
	if t.WithSource() {
		b.WriteString(d.quote("source_name") + " TEXT, ")
	}
	b.WriteString(d.quote("node_name") + " TEXT, ")
	b.WriteString(d.quote("value") + " TEXT, ")
	b.WriteString(d.quote("timestamp") + " " + d.timestampType)
	b.WriteString(")")
	return b.String()
}

func (d dialect) insert(t domain.PersistenceTarget) string {
	cols := []string{"node_name", "value", "timestamp"}
	if t.WithSource() {
		cols = append([]string{"source_name"}, cols...)
	}
	quoted := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.quote(c)
		params[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.quote(t.Table), strings.Join(quoted, ", "), strings.Join(params, ", "))
}

func mysqlDSN(t domain.PersistenceTarget) string {
	cfg := mysql.NewConfig()
	cfg.User = t.User
	cfg.Passwd = t.Password
	cfg.Net = "tcp"
	cfg.Addr = hostPort(t.Host, t.Port, 3306)
	cfg.DBName = t.Database
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Timeout = 10 * time.Second
	return cfg.FormatDSN()
}

func postgresDSN(t domain.PersistenceTarget) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(t.User, t.Password),
		Host:     hostPort(t.Host, t.Port, 5432),
		Path:     "/" + t.Database,
		RawQuery: url.Values{"sslmode": {"disable"}, "connect_timeout": {"10"}}.Encode(),
	}
	return u.String()
}

func hostPort(host string, port, def int) string {
	if host == "" {
		host = "localhost"
	}
	if port <= 0 {
		port = def
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
