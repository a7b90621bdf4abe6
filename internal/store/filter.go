package store

import (
	"strconv"
	"strings"
	"time"

	"github.com/worktrail/worktrail/internal/models"
)

// maxListLimit caps limit values for list queries.
const maxListLimit = models.MaxPageSize

// filter accumulates WHERE conditions with positional $n arguments.
type filter struct {
	conds []string
	args  []any
}

// arg appends a value and returns its placeholder.
func (f *filter) arg(v any) string {
	f.args = append(f.args, v)
	return "$" + strconv.Itoa(len(f.args))
}

func (f *filter) raw(cond string) {
	f.conds = append(f.conds, cond)
}

func (f *filter) eq(col string, v any) {
	f.conds = append(f.conds, col+" = "+f.arg(v))
}

func (f *filter) anyOf(col string, vals []string) {
	switch len(vals) {
	case 0:
		return
	case 1:
		f.eq(col, vals[0])
	default:
		f.conds = append(f.conds, col+" = ANY("+f.arg(vals)+")")
	}
}

// contains matches a text[] column holding every given value.
func (f *filter) contains(col string, vals []string) {
	if len(vals) == 0 {
		return
	}

	f.conds = append(f.conds, col+" @> "+f.arg(vals)+"::text[]")
}

func (f *filter) between(col string, start, end *time.Time) {
	if start != nil {
		f.conds = append(f.conds, col+" >= "+f.arg(*start))
	}

	if end != nil {
		f.conds = append(f.conds, col+" < "+f.arg(*end))
	}
}

// search matches q case-insensitively against any of cols.
func (f *filter) search(q string, cols ...string) {
	q = strings.TrimSpace(q)
	if q == "" || len(cols) == 0 {
		return
	}

	p := f.arg("%" + escapeLike(q) + "%")

	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c + " ILIKE " + p
	}

	f.conds = append(f.conds, "("+strings.Join(parts, " OR ")+")")
}

func (f *filter) where() string {
	if len(f.conds) == 0 {
		return ""
	}

	return "WHERE " + strings.Join(f.conds, " AND ")
}

// next returns the placeholder index the next argument will take.
func (f *filter) next() int {
	return len(f.args) + 1
}

// orderClause builds ORDER BY from a whitelisted column. Unknown columns fall
// back to def; the tiebreak column keeps paging stable.
func orderClause(orderBy string, dir models.SortDirection, allowed map[string]string, def, tiebreak string) string {
	col, ok := allowed[orderBy]
	if !ok {
		col = def
	}

	d := "DESC"
	if dir == models.SortAsc {
		d = "ASC"
	}

	return "ORDER BY " + col + " " + d + ", " + tiebreak + " " + d
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func clampLimit(limit, offset int) (int, int) {
	if limit > maxListLimit {
		limit = maxListLimit
	}

	return models.ClampPagination(limit, offset)
}
