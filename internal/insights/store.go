package insights

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jask/moneyboard/internal/database"
)

// DefaultMaxRows caps how many rows a generated query may return.
const DefaultMaxRows = 5000

// ReadOnlyStore runs queries on a handle opened with database.OpenReadOnly.
type ReadOnlyStore struct {
	DB      *sql.DB
	Timeout time.Duration
	MaxRows int
}

// Query pins one connection for the statement and releases it on every path.
func (s *ReadOnlyStore) Query(ctx context.Context, query string) ([]map[string]any, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	limit := s.MaxRows
	if limit <= 0 {
		limit = DefaultMaxRows
	}

	var out []map[string]any
	err := database.WithConn(ctx, s.DB, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		for rows.Next() {
			if len(out) >= limit {
				return fmt.Errorf("query returned more than %d rows", limit)
			}
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			row := make(map[string]any, len(cols))
			for i, c := range cols {
				if b, ok := vals[i].([]byte); ok {
					row[c] = string(b)
					continue
				}
				row[c] = vals[i]
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	return out, err
}
