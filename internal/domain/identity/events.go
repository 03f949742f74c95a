package identity

// Aggregate types
const (
	AggregateUser       = "user"
	AggregateAccount    = "account"
	AggregateTenant     = "tenant"
	AggregateRole       = "role"
	AggregateMembership = "membership"
)

// Event types published by identity services
const (
	EventUserCreated         = "user.created"
	EventUserPasswordChanged = "user.password_changed"
	EventUserPasswordReset   = "user.password_reset"

	EventAccountUpdated     = "account.updated"
	EventSubscriptionSynced = "account.subscription_synced"

	EventTenantCreated = "tenant.created"
	EventTenantUpdated = "tenant.updated"
	EventTenantDeleted = "tenant.deleted"

	EventRoleCreated = "role.created"
	EventRoleUpdated = "role.updated"
	EventRoleDeleted = "role.deleted"

	EventMemberAdded       = "member.added"
	EventMemberRoleChanged = "member.role_changed"
	EventMemberRemoved     = "member.removed"
)
