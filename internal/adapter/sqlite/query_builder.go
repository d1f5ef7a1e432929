package sqlite

import (
	"strings"

	"github.com/neomorfeo/roomlist/internal/domain"
)

type queryBuilder struct {
	conditions []string
	args       []any
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{args: make([]any, 0)}
}

// addCondition appends a predicate with its positional arguments.
func (qb *queryBuilder) addCondition(condition string, args ...any) {
	qb.conditions = append(qb.conditions, condition)
	qb.args = append(qb.args, args...)
}

// addRange adds inclusive bounds on column; nil bounds are skipped.
func (qb *queryBuilder) addRange(column string, min, max *float64) {
	if min != nil {
		qb.addCondition(column+" >= ?", *min)
	}
	if max != nil {
		qb.addCondition(column+" <= ?", *max)
	}
}

// addIn adds column IN (...). An empty list adds nothing.
func (qb *queryBuilder) addIn(column string, values []string) {
	if len(values) == 0 {
		return
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	qb.addCondition(column+" IN ("+placeholders(len(values))+")", args...)
}

func (qb *queryBuilder) build() (string, []any) {
	if len(qb.conditions) == 0 {
		return "", qb.args
	}
	return "WHERE " + strings.Join(qb.conditions, " AND "), qb.args
}

// applySearch translates a normalized SearchQuery into a WHERE clause.
func applySearch(q domain.SearchQuery) (string, []any) {
	qb := newQueryBuilder()

	statuses := make([]string, len(q.Statuses))
	for i, s := range q.Statuses {
		statuses[i] = string(s)
	}
	qb.addIn("status", statuses)

	if q.OwnerID != "" {
		qb.addCondition("owner_id = ?", q.OwnerID)
	}

	if kw := domain.CleanKeyword(q.Keyword); kw != "" {
		qb.addCondition("instr(search_text, ?) > 0", foldText(kw))
	}

	qb.addRange("price", q.MinPrice, q.MaxPrice)
	qb.addRange("area", q.MinArea, q.MaxArea)

	if g := q.Geo; g != nil {
		qb.addCondition("lat IS NOT NULL")
		if chars, cells := coverCells(*g); chars > 0 {
			args := make([]any, 0, len(cells)+1)
			args = append(args, chars)
			for _, c := range cells {
				args = append(args, c)
			}
			qb.addCondition("substr(geohash, 1, ?) IN ("+placeholders(len(cells))+")", args...)
		}
		qb.addCondition(withinCapFunc+"(lat, lng, ?, ?, ?) = 1",
			g.Center.Lat, g.Center.Lng, g.AngularRadius())
	}

	return qb.build()
}

var sortColumns = map[domain.SortField]string{
	domain.SortPrice:     "price",
	domain.SortArea:      "area",
	domain.SortCreatedAt: "created_at",
}

// orderBy renders an allow-listed ORDER BY; id breaks ties so pages are stable.
func orderBy(s domain.SortSpec) string {
	column, ok := sortColumns[s.Field]
	if !ok {
		column, s = sortColumns[domain.DefaultSort.Field], domain.DefaultSort
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return column + " " + dir + ", id " + dir
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
