package pipeline

import (
	"sort"
	"strings"

	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Template is a reusable blueprint of steps and checklist items from which
// pipelines are instantiated.
type Template struct {
	shared.TenantAggregateRoot
	Name        string
	Description string
	Steps       []*StepTemplate
}

// StepTemplate is an ordered stage of a template
type StepTemplate struct {
	shared.BaseEntity
	TemplateID  uuid.UUID
	Name        string
	Description string
	Position    int
	Items       []*ItemTemplate
}

// ItemTemplate is a checklist entry of a step template
type ItemTemplate struct {
	shared.BaseEntity
	StepTemplateID uuid.UUID
	Name           string
	Description    string
	Position       int
	Required       bool
}

// NewTemplate creates an empty template
func NewTemplate(tenantID, createdBy uuid.UUID, name, description string) (*Template, error) {
	t := &Template{TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, createdBy)}
	if err := t.Update(name, description); err != nil {
		return nil, err
	}
	return t, nil
}

// Update changes name and description
func (t *Template) Update(name, description string) error {
	name, description, err := validateNamed(name, description)
	if err != nil {
		return err
	}
	t.Name = name
	t.Description = description
	t.Touch()
	return nil
}

// AddStep appends a step after the existing ones
func (t *Template) AddStep(name, description string) (*StepTemplate, error) {
	name, description, err := validateNamed(name, description)
	if err != nil {
		return nil, err
	}
	s := &StepTemplate{
		BaseEntity:  shared.NewBaseEntity(),
		TemplateID:  t.ID,
		Name:        name,
		Description: description,
		Position:    nextPosition(len(t.Steps), func(i int) int { return t.Steps[i].Position }),
	}
	t.Steps = append(t.Steps, s)
	return s, nil
}

// Step returns the step with id or ErrNotFound
func (t *Template) Step(id uuid.UUID) (*StepTemplate, error) {
	for _, s := range t.Steps {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, shared.ErrNotFound
}

// Item finds an item anywhere in the template
func (t *Template) Item(id uuid.UUID) (*StepTemplate, *ItemTemplate, error) {
	for _, s := range t.Steps {
		for _, it := range s.Items {
			if it.ID == id {
				return s, it, nil
			}
		}
	}
	return nil, nil, shared.ErrNotFound
}

// RemoveStep drops a step from the in-memory aggregate
func (t *Template) RemoveStep(id uuid.UUID) error {
	for i, s := range t.Steps {
		if s.ID == id {
			t.Steps = append(t.Steps[:i], t.Steps[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

// Sort orders steps and items by position
func (t *Template) Sort() {
	sort.SliceStable(t.Steps, func(i, j int) bool { return t.Steps[i].Position < t.Steps[j].Position })
	for _, s := range t.Steps {
		sort.SliceStable(s.Items, func(i, j int) bool { return s.Items[i].Position < s.Items[j].Position })
	}
}

// Update changes the step; a nil position keeps the current one
func (s *StepTemplate) Update(name, description string, position *int) error {
	name, description, err := validateNamed(name, description)
	if err != nil {
		return err
	}
	if position != nil && *position < 0 {
		return shared.NewValidationError("position", "Position cannot be negative")
	}
	s.Name = name
	s.Description = description
	if position != nil {
		s.Position = *position
	}
	s.Touch()
	return nil
}

// AddItem appends a checklist item
func (s *StepTemplate) AddItem(name, description string, required bool) (*ItemTemplate, error) {
	name, description, err := validateNamed(name, description)
	if err != nil {
		return nil, err
	}
	it := &ItemTemplate{
		BaseEntity:     shared.NewBaseEntity(),
		StepTemplateID: s.ID,
		Name:           name,
		Description:    description,
		Position:       nextPosition(len(s.Items), func(i int) int { return s.Items[i].Position }),
		Required:       required,
	}
	s.Items = append(s.Items, it)
	return it, nil
}

// Update changes the item; a nil position keeps the current one
func (it *ItemTemplate) Update(name, description string, required bool, position *int) error {
	name, description, err := validateNamed(name, description)
	if err != nil {
		return err
	}
	if position != nil && *position < 0 {
		return shared.NewValidationError("position", "Position cannot be negative")
	}
	it.Name = name
	it.Description = description
	it.Required = required
	if position != nil {
		it.Position = *position
	}
	it.Touch()
	return nil
}

func nextPosition(n int, at func(int) int) int {
	next := 0
	for i := 0; i < n; i++ {
		if p := at(i); p >= next {
			next = p + 1
		}
	}
	return next
}

func validateNamed(name, description string) (string, string, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	verr := &shared.ValidationError{}
	if name == "" {
		verr.Add("name", "Name is required")
	} else if len(name) > 200 {
		verr.Add("name", "Name cannot exceed 200 characters")
	}
	if len(description) > 2000 {
		verr.Add("description", "Description cannot exceed 2000 characters")
	}
	return name, description, verr.OrNil()
}
