package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Query builds a PostgREST table request. Filters are appended in call order.
type Query struct {
	client *Client
	table  string
	params url.Values
	single bool
	err    error
}

// From starts a query against table.
func (c *Client) From(table string) *Query {
	q := &Query{client: c, table: table, params: url.Values{}}
	if strings.TrimSpace(table) == "" {
		q.err = fmt.Errorf("supabase: empty table name")
	}
	return q
}

// Select limits the returned columns.
func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

// Eq adds column=eq.value.
func (q *Query) Eq(column, value string) *Query {
	q.params.Add(column, "eq."+value)
	return q
}

// Neq adds column=neq.value.
func (q *Query) Neq(column, value string) *Query {
	q.params.Add(column, "neq."+value)
	return q
}

// In adds column=in.("a","b"). An empty list matches nothing.
func (q *Query) In(column string, values []string) *Query {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, quoteValue(v))
	}
	q.params.Add(column, "in.("+strings.Join(quoted, ",")+")")
	return q
}

// OrILike matches rows where any column contains needle case-insensitively. The needle is
// sent as a double-quoted operand with LIKE metacharacters escaped, so reserved characters
// keep their literal meaning. A blank needle leaves the query untouched.
//
// PostgREST turns every '*' into '%', so a literal '*' cannot be expressed; it is sent as the
// single-character wildcard '_' and callers must re-check matches themselves.
func (q *Query) OrILike(columns []string, needle string) *Query {
	pattern := LikePattern(needle)
	if pattern == "" || len(columns) == 0 {
		return q
	}
	operand := quoteValue("*" + pattern + "*")
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, col+".ilike."+operand)
	}
	q.params.Add("or", "("+strings.Join(parts, ",")+")")
	return q
}

// Order sorts by column. Repeated calls add tie-breakers.
func (q *Query) Order(column string, descending bool) *Query {
	dir := "asc"
	if descending {
		dir = "desc"
	}
	term := column + "." + dir
	if existing := q.params.Get("order"); existing != "" {
		term = existing + "," + term
	}
	q.params.Set("order", term)
	return q
}

// Limit caps the number of rows.
func (q *Query) Limit(n int) *Query {
	if n > 0 {
		q.params.Set("limit", strconv.Itoa(n))
	}
	return q
}

// Offset skips the first n rows.
func (q *Query) Offset(n int) *Query {
	if n > 0 {
		q.params.Set("offset", strconv.Itoa(n))
	}
	return q
}

// Single expects exactly one row; zero rows surface as an APIError with CodeNoRows.
func (q *Query) Single() *Query {
	q.single = true
	return q
}

// Encode returns the query string; exposed for tests and logging.
func (q *Query) Encode() string {
	return q.params.Encode()
}

// Execute runs a GET and decodes the rows into dest.
func (q *Query) Execute(ctx context.Context, dest any) error {
	return q.send(ctx, http.MethodGet, nil, "", dest)
}

// Insert posts body and decodes the inserted rows into dest when non-nil.
func (q *Query) Insert(ctx context.Context, body any, dest any) error {
	return q.send(ctx, http.MethodPost, body, preferReturn(dest), dest)
}

// Update patches matching rows.
func (q *Query) Update(ctx context.Context, body any, dest any) error {
	return q.send(ctx, http.MethodPatch, body, preferReturn(dest), dest)
}

// Delete removes matching rows.
func (q *Query) Delete(ctx context.Context) error {
	return q.send(ctx, http.MethodDelete, nil, "return=minimal", nil)
}

func (q *Query) send(ctx context.Context, method string, body any, prefer string, dest any) error {
	if q.err != nil {
		return q.err
	}
	if q.client == nil {
		return ErrNotConfigured
	}
	endpoint, err := url.JoinPath(q.client.baseURL, restPrefix, q.table)
	if err != nil {
		return err
	}
	if encoded := q.params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	headers := http.Header{}
	if prefer != "" {
		headers.Set("Prefer", prefer)
	}
	if q.single {
		headers.Set("Accept", "application/vnd.pgrst.object+json")
	}
	return q.client.do(ctx, method, endpoint, body, headers, dest)
}

func preferReturn(dest any) string {
	if dest == nil {
		return "return=minimal"
	}
	return "return=representation"
}

// LikePattern escapes needle for use inside a LIKE pattern: backslash, '%' and '_' are
// backslash-escaped and '*' becomes '_'. Surrounding whitespace is trimmed.
func LikePattern(needle string) string {
	needle = strings.TrimSpace(needle)
	var b strings.Builder
	b.Grow(len(needle) + 4)
	for _, r := range needle {
		switch r {
		case '\\', '%', '_':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '*':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func quoteValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}
