// Package option provides composable gorm query options for the generic
// repository: pagination, sorting, and comparison conditions.
package option

import (
	"fmt"

	"github.com/Girosmedia/tendo-app-sub002/pkg/db/pagination"
	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type Operator string

const (
	EQ  Operator = "="
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

type conditionOption struct {
	cond Condition
}

func (o conditionOption) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(fmt.Sprintf("%s %s ?", o.cond.Field, o.cond.Operator), o.cond.Value)
}

func ApplyOperator(cond Condition) QueryOption {
	return conditionOption{cond: cond}
}

type limitOption struct {
	limit  int
	cursor *pagination.Cursor
}

// ApplyPagination fetches limit+1 rows after the cursor so the caller can
// detect whether another page exists.
func ApplyPagination(p pagination.Pagination) QueryOption {
	size := p.PageSize
	if size <= 0 {
		size = 50
	}

	opt := limitOption{limit: size + 1}
	if p.PageToken != "" {
		if cursor, err := pagination.DecodeCursor(p.PageToken); err == nil {
			opt.cursor = cursor
		}
	}
	return opt
}

func (o limitOption) Apply(db *gorm.DB) *gorm.DB {
	if o.cursor != nil && o.cursor.CreatedAt != "" {
		db = db.Where("created_at < ?", o.cursor.CreatedAt)
	}
	return db.Limit(o.limit)
}

type sortOption struct {
	clause string
}

func (o sortOption) Apply(db *gorm.DB) *gorm.DB {
	if o.clause == "" {
		return db
	}
	return db.Order(o.clause)
}

// WithSortBy orders by the given field and direction, ignoring fields not in
// the allow list so user input can never inject arbitrary SQL.
func WithSortBy(field, direction string, allowed map[string]bool) QueryOption {
	if !allowed[field] {
		return sortOption{}
	}
	if direction != "asc" && direction != "desc" {
		direction = "desc"
	}
	return sortOption{clause: fmt.Sprintf("%s %s", field, direction)}
}
