package persistence

import (
	"context"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMembershipRepository implements identity.MembershipRepository using GORM
type GormMembershipRepository struct {
	db *gorm.DB
}

// NewGormMembershipRepository creates a new GormMembershipRepository
func NewGormMembershipRepository(db *gorm.DB) *GormMembershipRepository {
	return &GormMembershipRepository{db: db}
}

// Create creates a new membership
func (r *GormMembershipRepository) Create(ctx context.Context, m *identity.Membership) error {
	return translateError(r.db.WithContext(ctx).Create(models.MembershipModelFromDomain(m)).Error)
}

// Update saves a membership
func (r *GormMembershipRepository) Update(ctx context.Context, m *identity.Membership) error {
	return updateAll(r.db.WithContext(ctx).Scopes(TenantScope(m.TenantID)), models.MembershipModelFromDomain(m))
}

// Delete soft deletes a membership
func (r *GormMembershipRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return requireAffected(r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Delete(&models.MembershipModel{}, "id = ?", id))
}

// FindByID finds a membership within a tenant
func (r *GormMembershipRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*identity.Membership, error) {
	var m models.MembershipModel
	if err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindByUser finds the live membership of a user in a tenant
func (r *GormMembershipRepository) FindByUser(ctx context.Context, tenantID, userID uuid.UUID) (*identity.Membership, error) {
	var m models.MembershipModel
	if err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("user_id = ?", userID).
		First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindAllForUser lists every live membership of a user in live tenants
func (r *GormMembershipRepository) FindAllForUser(ctx context.Context, userID uuid.UUID) ([]*identity.Membership, error) {
	var rows []models.MembershipModel
	if err := r.db.WithContext(ctx).
		Joins("JOIN tenants ON tenants.id = memberships.tenant_id AND tenants.deleted_at IS NULL").
		Where("memberships.user_id = ?", userID).
		Order("memberships.created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*identity.Membership, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// FindMembers lists the members of a tenant with their user and role,
// searching user name and email.
func (r *GormMembershipRepository) FindMembers(ctx context.Context, tenantID uuid.UUID, filter identity.MemberFilter) ([]*identity.Member, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.MembershipModel{}).
		Joins("JOIN users ON users.id = memberships.user_id AND users.deleted_at IS NULL").
		Where("memberships.tenant_id = ?", tenantID)
	if filter.RoleID != nil {
		query = query.Where("memberships.role_id = ?", *filter.RoleID)
	}
	if filter.Search != "" {
		like := "%" + escapeLike(normalizeSearch(filter.Search)) + "%"
		query = query.Where("(LOWER(users.name) LIKE ? ESCAPE '\\' OR users.email LIKE ? ESCAPE '\\')", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.MembershipModel
	if err := query.
		Order("memberships.created_at ASC").
		Scopes(Paginate(filter.Filter)).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return []*identity.Member{}, total, nil
	}

	userIDs := make([]uuid.UUID, 0, len(rows))
	roleIDs := make([]uuid.UUID, 0, len(rows))
	for _, m := range rows {
		userIDs = append(userIDs, m.UserID)
		roleIDs = append(roleIDs, m.RoleID)
	}

	var users []models.UserModel
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	var roles []models.RoleModel
	if err := r.db.WithContext(ctx).Unscoped().Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
		return nil, 0, err
	}
	userByID := make(map[uuid.UUID]*models.UserModel, len(users))
	for i := range users {
		userByID[users[i].ID] = &users[i]
	}
	roleByID := make(map[uuid.UUID]*models.RoleModel, len(roles))
	for i := range roles {
		roleByID[roles[i].ID] = &roles[i]
	}

	members := make([]*identity.Member, 0, len(rows))
	for i := range rows {
		u, ok := userByID[rows[i].UserID]
		if !ok {
			continue
		}
		member := &identity.Member{Membership: *rows[i].ToDomain(), User: *u.ToDomain()}
		if role, ok := roleByID[rows[i].RoleID]; ok {
			member.Role = *role.ToDomain()
		}
		members = append(members, member)
	}
	return members, total, nil
}

// ListUserIDs returns the users holding a live membership in the tenant
func (r *GormMembershipRepository) ListUserIDs(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.MembershipModel{}).
		Scopes(TenantScope(tenantID)).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CountByRole counts the live memberships holding roleID
func (r *GormMembershipRepository) CountByRole(ctx context.Context, tenantID, roleID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.MembershipModel{}).
		Scopes(TenantScope(tenantID)).
		Where("role_id = ?", roleID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
