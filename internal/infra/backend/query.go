package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// exec issues a terminal call. The plain client and the resilient decorator
// supply different implementations; builders compose identically over both.
type exec func(ctx context.Context, r *request) ([]byte, error)

// QueryBuilder builds a query against one table. Builder methods are
// non-terminal and return the builder; Get, Insert, Update, Upsert and
// Delete are terminal and issue the call.
type QueryBuilder struct {
	table  string
	query  url.Values
	prefer []string
	run    exec
}

func newQueryBuilder(table string, run exec) *QueryBuilder {
	return &QueryBuilder{
		table: table,
		query: url.Values{},
		run:   run,
	}
}

// Select restricts returned columns ("*" when not called).
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.query.Set("select", columns)
	return q
}

// Eq filters rows where column equals value. Filters accumulate: two filters
// on the same column are sent as repeated params, as the backend expects for
// range queries.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	q.query.Add(column, fmt.Sprintf("eq.%v", value))
	return q
}

// Gt filters rows where column is greater than value.
func (q *QueryBuilder) Gt(column string, value any) *QueryBuilder {
	q.query.Add(column, fmt.Sprintf("gt.%v", value))
	return q
}

// Gte filters rows where column is greater than or equal to value.
func (q *QueryBuilder) Gte(column string, value any) *QueryBuilder {
	q.query.Add(column, fmt.Sprintf("gte.%v", value))
	return q
}

// Lt filters rows where column is less than value.
func (q *QueryBuilder) Lt(column string, value any) *QueryBuilder {
	q.query.Add(column, fmt.Sprintf("lt.%v", value))
	return q
}

// Order sorts results by column.
func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.query.Set("order", column+"."+dir)
	return q
}

// Limit bounds the number of returned rows.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.query.Set("limit", fmt.Sprintf("%d", n))
	return q
}

// Get fetches matching rows into dest.
func (q *QueryBuilder) Get(ctx context.Context, dest any) error {
	body, err := q.run(ctx, &request{
		method: http.MethodGet,
		path:   "/rest/v1/" + q.table,
		query:  q.query,
	})
	if err != nil {
		return err
	}
	return q.decode(body, dest)
}

// Insert creates rows. When dest is non-nil the created rows are returned
// into it.
func (q *QueryBuilder) Insert(ctx context.Context, rows any, dest any) error {
	prefer := q.prefer
	if dest != nil {
		prefer = append(prefer, "return=representation")
	}
	body, err := q.run(ctx, &request{
		method: http.MethodPost,
		path:   "/rest/v1/" + q.table,
		query:  q.query,
		prefer: prefer,
		body:   rows,
	})
	if err != nil {
		return err
	}
	return q.decode(body, dest)
}

// Upsert creates or merges rows on conflict.
func (q *QueryBuilder) Upsert(ctx context.Context, rows any, dest any) error {
	prefer := append(q.prefer, "resolution=merge-duplicates")
	if dest != nil {
		prefer = append(prefer, "return=representation")
	}
	body, err := q.run(ctx, &request{
		method: http.MethodPost,
		path:   "/rest/v1/" + q.table,
		query:  q.query,
		prefer: prefer,
		body:   rows,
	})
	if err != nil {
		return err
	}
	return q.decode(body, dest)
}

// Update patches matching rows.
func (q *QueryBuilder) Update(ctx context.Context, patch any, dest any) error {
	prefer := q.prefer
	if dest != nil {
		prefer = append(prefer, "return=representation")
	}
	body, err := q.run(ctx, &request{
		method: http.MethodPatch,
		path:   "/rest/v1/" + q.table,
		query:  q.query,
		prefer: prefer,
		body:   patch,
	})
	if err != nil {
		return err
	}
	return q.decode(body, dest)
}

// Delete removes matching rows.
func (q *QueryBuilder) Delete(ctx context.Context) error {
	_, err := q.run(ctx, &request{
		method: http.MethodDelete,
		path:   "/rest/v1/" + q.table,
		query:  q.query,
	})
	return err
}

func (q *QueryBuilder) decode(body []byte, dest any) error {
	if dest == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", q.table, err)
	}
	return nil
}
