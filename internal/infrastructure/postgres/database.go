package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxTracedStatement = 256

var dbTracer = otel.Tracer("budgetrelay/postgres")

// DB wraps the connection pool so every vault statement is traced. Only the
// redacted statement text reaches the span; bound parameters never do.
type DB struct {
	*sql.DB
}

// New opens the vault database and pings it.
func New(ctx context.Context, connStr string) (*DB, error) {
	pool, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault database: %w", err)
	}
	// One or two short statements per relay request.
	pool.SetMaxOpenConns(10)
	pool.SetMaxIdleConns(2)
	pool.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach vault database: %w", err)
	}
	return &DB{DB: pool}, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	ctx, span := traceStatement(ctx, "postgres.query", query)
	rows, err := db.DB.QueryContext(ctx, query, args...)
	endStatement(span, err)
	return rows, err
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, span := traceStatement(ctx, "postgres.exec", query)
	res, err := db.DB.ExecContext(ctx, query, args...)
	endStatement(span, err)
	return res, err
}

// QueryRowContext defers ending the span to Scan, where *sql.Row reports
// its errors.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *tracedRow {
	ctx, span := traceStatement(ctx, "postgres.query_row", query)
	return &tracedRow{row: db.DB.QueryRowContext(ctx, query, args...), span: span}
}

type tracedRow struct {
	row  *sql.Row
	span trace.Span
}

func (r *tracedRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if r.span != nil {
		endStatement(r.span, err)
		r.span = nil
	}
	return err
}

func traceStatement(ctx context.Context, name, query string) (context.Context, trace.Span) {
	return dbTracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", sqlVerb(query)),
			attribute.String("db.statement", redactSQL(query)),
		))
}

func endStatement(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// redactSQL masks quoted strings and numeric literals with '?'. Positional
// parameters ($1, $2) and digits inside identifiers are left alone.
func redactSQL(q string) string {
	var out strings.Builder
	out.Grow(len(q))

	for i := 0; i < len(q); {
		c := q[i]
		switch {
		case c == '\'':
			out.WriteString("'?'")
			i = skipQuoted(q, i+1)
		case isDigit(c) && i > 0 && (q[i-1] == '$' || isIdentByte(q[i-1])):
			out.WriteByte(c)
			i++
		case isDigit(c):
			out.WriteByte('?')
			for i < len(q) && (isDigit(q[i]) || q[i] == '.') {
				i++
			}
		default:
			out.WriteByte(c)
			i++
		}
	}

	s := out.String()
	if len(s) > maxTracedStatement {
		s = s[:maxTracedStatement] + "..."
	}
	return s
}

// skipQuoted returns the index just past the closing quote of a literal
// that starts at i. Doubled quotes are escapes.
func skipQuoted(q string, i int) int {
	for i < len(q) {
		if q[i] != '\'' {
			i++
			continue
		}
		if i+1 < len(q) && q[i+1] == '\'' {
			i += 2
			continue
		}
		return i + 1
	}
	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentByte(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func sqlVerb(q string) string {
	fields := strings.Fields(q)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
