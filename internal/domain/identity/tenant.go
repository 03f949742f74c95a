package identity

import (
	"strings"
	"unicode"

	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TenantKind distinguishes personal workspaces from shared ones
type TenantKind string

const (
	TenantKindPersonal     TenantKind = "personal"
	TenantKindOrganization TenantKind = "organization"
)

const maxSlugLength = 48

// Tenant is a workspace scoping data ownership. Every tenant belongs to
// exactly one account.
type Tenant struct {
	shared.BaseAggregateRoot
	AccountID uuid.UUID
	Name      string
	Slug      string
	Kind      TenantKind
}

// NewTenant creates a tenant with a slug derived from its name
func NewTenant(accountID uuid.UUID, name string, kind TenantKind) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if err := validateTenantName(name); err != nil {
		return nil, err
	}
	if kind != TenantKindPersonal && kind != TenantKindOrganization {
		return nil, shared.NewValidationError("kind", "Unknown tenant kind")
	}
	t := &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		AccountID:         accountID,
		Name:              name,
		Slug:              Slugify(name),
		Kind:              kind,
	}
	if t.Slug == "" {
		t.Slug = "workspace"
	}
	return t, nil
}

// Rename changes the display name. The slug is kept stable.
func (t *Tenant) Rename(name string) error {
	name = strings.TrimSpace(name)
	if err := validateTenantName(name); err != nil {
		return err
	}
	t.Name = name
	t.Touch()
	return nil
}

// IsPersonal reports whether the tenant is a personal workspace
func (t *Tenant) IsPersonal() bool {
	return t.Kind == TenantKindPersonal
}

// CanDelete reports whether the tenant may be deleted
func (t *Tenant) CanDelete() error {
	if t.IsPersonal() {
		return shared.NewDomainError("PERSONAL_TENANT", "A personal workspace cannot be deleted")
	}
	return nil
}

// WithSlugSuffix disambiguates a slug that is already taken
func (t *Tenant) WithSlugSuffix(suffix string) {
	base := t.Slug
	if len(base)+len(suffix)+1 > maxSlugLength {
		base = strings.TrimRight(base[:maxSlugLength-len(suffix)-1], "-")
	}
	t.Slug = base + "-" + suffix
}

// Slugify turns a name into a lowercase ASCII slug: accents are stripped and
// runs of other characters collapse into a single dash.
func Slugify(name string) string {
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(chain, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}

func validateTenantName(name string) error {
	if name == "" {
		return shared.NewValidationError("name", "Name is required")
	}
	if len(name) > 100 {
		return shared.NewValidationError("name", "Name cannot exceed 100 characters")
	}
	return nil
}
