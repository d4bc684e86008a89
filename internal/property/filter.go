package property

import (
	"math"
	"strings"
)

// queryBuilder collects WHERE conjuncts and the arguments bound to them.
// Conditions use ? placeholders; callers rebind for the driver in use.
type queryBuilder struct {
	conditions []string
	args       []interface{}
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{
		conditions: []string{"1=1"},
		args:       make([]interface{}, 0),
	}
}

func (qb *queryBuilder) addCondition(condition string, arg interface{}) {
	qb.conditions = append(qb.conditions, condition)
	qb.args = append(qb.args, arg)
}

// build returns the WHERE clause and its arguments.
func (qb *queryBuilder) build() (string, []interface{}) {
	return "WHERE " + strings.Join(qb.conditions, " AND "), qb.args
}

// applyFilters turns search criteria into a parameterized WHERE clause over
// the properties table aliased as p. Filter values never reach the SQL text.
func applyFilters(f SearchFilters) (string, []interface{}) {
	qb := newQueryBuilder()

	if f.Location != nil && *f.Location != "" {
		qb.addCondition(`LOWER(p.location) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(*f.Location))+"%")
	}
	if f.MinPrice != nil {
		qb.addCondition("p.price >= ?", minPriceBound(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		qb.addCondition("p.price <= ?", maxPriceBound(*f.MaxPrice))
	}
	if f.PropertyType != nil && *f.PropertyType != "" {
		qb.addCondition("p.property_type = ?", *f.PropertyType)
	}

	return qb.build()
}

// likeEscaper makes LIKE metacharacters in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// validPage reports whether page and pageSize are positive and the page's
// last row number fits in an int.
func validPage(page, pageSize int) bool {
	return page >= 1 && pageSize >= 1 && page <= math.MaxInt/pageSize
}

// pageWindow returns the inclusive, 1-based row-number range for a page.
func pageWindow(page, pageSize int) (start, end int) {
	return (page-1)*pageSize + 1, page * pageSize
}
