package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	appidentity "github.com/flowdesk/backend/internal/application/identity"
	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/infrastructure/logger"
	"github.com/flowdesk/backend/internal/interfaces/http/dto"
	"github.com/flowdesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTenants struct {
	mock.Mock
}

func (m *mockTenants) ListForUser(ctx context.Context, userID uuid.UUID) ([]appidentity.TenantResponse, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]appidentity.TenantResponse), args.Error(1)
}

func (m *mockTenants) Get(ctx context.Context, tenantID uuid.UUID) (*appidentity.TenantResponse, error) {
	args := m.Called(ctx, tenantID)
	if r := args.Get(0); r != nil {
		return r.(*appidentity.TenantResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTenants) Update(ctx context.Context, tenantID uuid.UUID, req appidentity.UpdateTenantRequest) (*appidentity.TenantResponse, error) {
	args := m.Called(ctx, tenantID, req)
	if r := args.Get(0); r != nil {
		return r.(*appidentity.TenantResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTenants) Delete(ctx context.Context, tenantID uuid.UUID) error {
	return m.Called(ctx, tenantID).Error(0)
}

type mockMembers struct {
	mock.Mock
}

func (m *mockMembers) List(ctx context.Context, tenantID uuid.UUID, filter identity.MemberFilter) (shared.Paginated[appidentity.MemberResponse], error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(shared.Paginated[appidentity.MemberResponse]), args.Error(1)
}

func (m *mockMembers) Add(ctx context.Context, actor *appidentity.TenantAccess, req appidentity.AddMemberRequest) (*appidentity.MemberResponse, error) {
	args := m.Called(ctx, actor, req)
	if r := args.Get(0); r != nil {
		return r.(*appidentity.MemberResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMembers) ChangeRole(ctx context.Context, actor *appidentity.TenantAccess, membershipID uuid.UUID, req appidentity.ChangeMemberRoleRequest) (*appidentity.MemberResponse, error) {
	args := m.Called(ctx, actor, membershipID, req)
	if r := args.Get(0); r != nil {
		return r.(*appidentity.MemberResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMembers) Remove(ctx context.Context, actor *appidentity.TenantAccess, membershipID uuid.UUID) error {
	return m.Called(ctx, actor, membershipID).Error(0)
}

// withTenant stands in for the session and tenant middleware
func withTenant(userID uuid.UUID, access *appidentity.TenantAccess) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.SessionKey, &identity.Session{ID: "sid", UserID: userID})
		c.Set(logger.GinUserIDKey, userID.String())
		c.Set(middleware.TenantAccessKey, access)
		c.Set(logger.GinTenantIDKey, access.Tenant.ID.String())
		c.Next()
	}
}

func ownerAccess(tenantID uuid.UUID) *appidentity.TenantAccess {
	tenant := &identity.Tenant{Name: "Acme"}
	tenant.ID = tenantID
	return &appidentity.TenantAccess{
		Tenant:     tenant,
		Membership: &identity.Membership{},
		Role:       &identity.Role{Name: "owner", Allowed: []string{"*"}, System: true},
	}
}

func tenantRouter(h *TenantHandler, userID uuid.UUID, access *appidentity.TenantAccess) *gin.Engine {
	router := gin.New()
	g := router.Group("/api/tenant/:tenantId", withTenant(userID, access))
	g.GET("", h.Get)
	g.DELETE("", h.Delete)
	g.GET("/members", h.ListMembers)
	g.POST("/members", h.AddMember)
	g.PUT("/members/:membershipId", h.ChangeMemberRole)
	g.DELETE("/members/:membershipId", h.RemoveMember)
	return router
}

func TestTenantHandler_ListMembers(t *testing.T) {
	userID, tenantID, roleID := uuid.New(), uuid.New(), uuid.New()
	access := ownerAccess(tenantID)

	members := &mockMembers{}
	members.On("List", mock.Anything, tenantID, mock.MatchedBy(func(f identity.MemberFilter) bool {
		return f.Page == 2 && f.PageSize == 10 && f.Search == "ada" && f.RoleID != nil && *f.RoleID == roleID
	})).Return(shared.Paginated[appidentity.MemberResponse]{
		Items:      []appidentity.MemberResponse{{TenantID: tenantID}},
		Total:      11,
		Page:       2,
		PageSize:   10,
		TotalPages: 2,
	}, nil)
	h := NewTenantHandler(&mockTenants{}, members)

	w := httptest.NewRecorder()
	target := "/api/tenant/" + tenantID.String() + "/members?page=2&page_size=10&search=ada&role_id=" + roleID.String()
	tenantRouter(h, userID, access).ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(11), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)
	members.AssertExpectations(t)
}

func TestTenantHandler_ListMembersRejectsLargePages(t *testing.T) {
	tenantID := uuid.New()
	h := NewTenantHandler(&mockTenants{}, &mockMembers{})

	w := httptest.NewRecorder()
	tenantRouter(h, uuid.New(), ownerAccess(tenantID)).ServeHTTP(w,
		httptest.NewRequest(http.MethodGet, "/api/tenant/"+tenantID.String()+"/members?page_size=500", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeResponse(t, w).Errors, "page_size")
}

func TestTenantHandler_AddMember(t *testing.T) {
	tenantID, roleID := uuid.New(), uuid.New()
	access := ownerAccess(tenantID)

	members := &mockMembers{}
	members.On("Add", mock.Anything, access, appidentity.AddMemberRequest{Email: "bob@example.com", RoleID: roleID}).
		Return(&appidentity.MemberResponse{TenantID: tenantID}, nil)
	h := NewTenantHandler(&mockTenants{}, members)

	w := httptest.NewRecorder()
	tenantRouter(h, uuid.New(), access).ServeHTTP(w, jsonRequest(http.MethodPost, "/api/tenant/"+tenantID.String()+"/members",
		`{"email":"bob@example.com","role_id":"`+roleID.String()+`"}`))

	assert.Equal(t, http.StatusCreated, w.Code)
	members.AssertExpectations(t)
}

func TestTenantHandler_RemoveLastOwner(t *testing.T) {
	tenantID, membershipID := uuid.New(), uuid.New()
	access := ownerAccess(tenantID)

	members := &mockMembers{}
	members.On("Remove", mock.Anything, access, membershipID).
		Return(shared.NewDomainError("LAST_OWNER", "A tenant must keep at least one owner"))
	h := NewTenantHandler(&mockTenants{}, members)

	w := httptest.NewRecorder()
	tenantRouter(h, uuid.New(), access).ServeHTTP(w,
		httptest.NewRequest(http.MethodDelete, "/api/tenant/"+tenantID.String()+"/members/"+membershipID.String(), nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeLastOwner, decodeResponse(t, w).Code)
}

func TestTenantHandler_DeletePersonalTenant(t *testing.T) {
	tenantID := uuid.New()
	tenants := &mockTenants{}
	tenants.On("Delete", mock.Anything, tenantID).
		Return(shared.NewDomainError("PERSONAL_TENANT", "Personal workspaces cannot be deleted"))
	h := NewTenantHandler(tenants, &mockMembers{})

	w := httptest.NewRecorder()
	tenantRouter(h, uuid.New(), ownerAccess(tenantID)).ServeHTTP(w,
		httptest.NewRequest(http.MethodDelete, "/api/tenant/"+tenantID.String(), nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	tenants.AssertExpectations(t)
}
