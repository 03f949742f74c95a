// Package tenant adds a GORM guard that confines queries to the tenant of
// the request.
//
// Repositories already filter by tenant_id explicitly. The guard is a second
// line: when the context carries a tenant (set by the tenant access
// middleware), every SELECT, UPDATE and DELETE on a model with a tenant_id
// column gets `tenant_id = ?` appended unless the statement already has
// one. Unscoped statements and contexts without a tenant pass through.
package tenant

import (
	"errors"

	"github.com/flowdesk/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultColumn is the tenant column of every tenant-owned table
const DefaultColumn = "tenant_id"

// ErrInvalidTenantID is returned when the context tenant is not a UUID
var ErrInvalidTenantID = errors.New("invalid tenant_id in context")

const (
	queryCallback  = "tenant:before_query"
	updateCallback = "tenant:before_update"
	deleteCallback = "tenant:before_delete"
	rowCallback    = "tenant:before_row"
)

// Guard holds the callback hooks
type Guard struct {
	column string
}

// NewGuard creates a guard filtering on column, DefaultColumn when empty
func NewGuard(column string) *Guard {
	if column == "" {
		column = DefaultColumn
	}
	return &Guard{column: column}
}

// Register installs the hooks on db
func (g *Guard) Register(db *gorm.DB) error {
	return errors.Join(
		db.Callback().Query().Before("gorm:query").Register(queryCallback, g.apply),
		db.Callback().Update().Before("gorm:update").Register(updateCallback, g.apply),
		db.Callback().Delete().Before("gorm:delete").Register(deleteCallback, g.apply),
		db.Callback().Row().Before("gorm:row").Register(rowCallback, g.apply),
	)
}

// Enable registers a guard on the default column
func Enable(db *gorm.DB) error {
	return NewGuard(DefaultColumn).Register(db)
}

// Disable removes the hooks
func Disable(db *gorm.DB) error {
	return errors.Join(
		db.Callback().Query().Remove(queryCallback),
		db.Callback().Update().Remove(updateCallback),
		db.Callback().Delete().Remove(deleteCallback),
		db.Callback().Row().Remove(rowCallback),
	)
}

func (g *Guard) apply(db *gorm.DB) {
	stmt := db.Statement
	if stmt.Context == nil || stmt.Unscoped {
		return
	}
	if stmt.Schema == nil || stmt.Schema.LookUpField(g.column) == nil {
		return
	}

	raw := logger.GetTenantID(stmt.Context)
	if raw == "" {
		return
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		_ = db.AddError(ErrInvalidTenantID)
		return
	}
	if g.hasCondition(stmt) {
		return
	}

	stmt.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: g.column},
				Value:  tenantID,
			},
		},
	})
}

// hasCondition reports whether the WHERE clause already filters on the
// tenant column with an equality
func (g *Guard) hasCondition(stmt *gorm.Statement) bool {
	c, ok := stmt.Clauses["WHERE"]
	if !ok {
		return false
	}
	where, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, expr := range where.Exprs {
		if g.refersTo(expr) {
			return true
		}
	}
	return false
}

func (g *Guard) refersTo(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		return g.isColumn(e.Column)
	case clause.IN:
		return g.isColumn(e.Column)
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if g.refersTo(cond) {
				return true
			}
		}
	}
	return false
}

func (g *Guard) isColumn(col any) bool {
	switch c := col.(type) {
	case clause.Column:
		return c.Name == g.column
	case string:
		return c == g.column
	}
	return false
}
