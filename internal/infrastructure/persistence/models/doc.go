// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel, TenantOwnedModel and the AutoMigrate list
//   - identity.go: users, accounts, tenants, roles, memberships
//   - pipeline.go: templates, pipelines and their steps and items
//   - audit.go, file.go, billing.go: audit logs, file objects, invoices
package models
