package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	wrapped := fmt.Errorf("load user: %w", NewDomainError("NOT_FOUND", "user not found"))

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrForbidden))
	assert.Equal(t, "user not found", errors.Unwrap(wrapped).Error())

	bound := ErrAlreadyExists.OnField("email", "Email is already registered")
	assert.True(t, errors.Is(bound, ErrAlreadyExists))
	assert.Equal(t, "email", bound.Field)
	assert.Empty(t, ErrAlreadyExists.Field)
}

func TestValidationError(t *testing.T) {
	v := &ValidationError{}
	assert.NoError(t, v.OrNil())

	v.Add("email", "is required").Add(RootField, "bad request")
	assert.True(t, v.HasErrors())
	assert.Equal(t, "validation failed: email: is required; root: bad request", v.Error())

	var target *ValidationError
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", v.OrNil()), &target))
	assert.Equal(t, "is required", target.Fields["email"])
}

func TestFilter_Normalize(t *testing.T) {
	f := Filter{Page: 0, PageSize: 500}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, MaxPageSize, f.PageSize)

	f = Filter{Page: 3, PageSize: 10}
	assert.Equal(t, 20, f.Offset())
	assert.Equal(t, 10, f.Limit())

	assert.Equal(t, DefaultPageSize, Filter{}.Limit())
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated[int](nil, 45, Filter{Page: 2, PageSize: 20})
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 2, p.Page)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
}

func TestAggregateEvents(t *testing.T) {
	tenantID := uuid.New()
	root := NewTenantAggregateRoot(tenantID, uuid.Nil)
	assert.Nil(t, root.CreatedBy)

	evt := NewGenericEvent("thing.created", "thing", root.ID, tenantID, map[string]any{"name": "x"})
	root.AddDomainEvent(evt)

	assert.Len(t, root.GetDomainEvents(), 1)
	assert.Equal(t, "thing.created", root.GetDomainEvents()[0].EventType())
	assert.Equal(t, tenantID, root.GetDomainEvents()[0].TenantID())
	assert.Equal(t, "x", evt.Metadata()["name"])

	root.ClearDomainEvents()
	assert.Empty(t, root.GetDomainEvents())
}
