package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Status of a pipeline
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusCompleted || s == StatusArchived
}

// StepStatus is derived from the completion of a step's items
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepDone       StepStatus = "done"
)

// ErrArchived is returned when mutating an archived pipeline
var ErrArchived = shared.NewDomainError("PIPELINE_ARCHIVED", "Archived pipelines are read-only")

// Pipeline is a running instance of a template
type Pipeline struct {
	shared.TenantAggregateRoot
	TemplateID *uuid.UUID
	Name       string
	Status     Status
	Steps      []*Step
}

// Step is an instantiated step template
type Step struct {
	shared.BaseEntity
	PipelineID uuid.UUID
	Name       string
	Position   int
	Status     StepStatus
	Items      []*Item
}

// Item is an instantiated checklist item
type Item struct {
	shared.BaseEntity
	StepID      uuid.UUID
	Name        string
	Description string
	Position    int
	Required    bool
	Completed   bool
	CompletedAt *time.Time
	CompletedBy *uuid.UUID
	Note        string
}

// Instantiate copies the steps and items of a template into a new pipeline.
// An empty name falls back to the template name.
func Instantiate(tmpl *Template, createdBy uuid.UUID, name string) (*Pipeline, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = tmpl.Name
	}
	if len(name) > 200 {
		return nil, shared.NewValidationError("name", "Name cannot exceed 200 characters")
	}

	templateID := tmpl.ID
	p := &Pipeline{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tmpl.TenantID, createdBy),
		TemplateID:          &templateID,
		Name:                name,
		Status:              StatusActive,
	}

	tmpl.Sort()
	for i, st := range tmpl.Steps {
		step := &Step{
			BaseEntity: shared.NewBaseEntity(),
			PipelineID: p.ID,
			Name:       st.Name,
			Position:   i,
			Status:     StepPending,
		}
		for j, it := range st.Items {
			step.Items = append(step.Items, &Item{
				BaseEntity:  shared.NewBaseEntity(),
				StepID:      step.ID,
				Name:        it.Name,
				Description: it.Description,
				Position:    j,
				Required:    it.Required,
			})
		}
		p.Steps = append(p.Steps, step)
	}
	p.recompute()
	return p, nil
}

// Rename changes the pipeline name
func (p *Pipeline) Rename(name string) error {
	if p.Status == StatusArchived {
		return ErrArchived
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("name", "Name is required")
	}
	if len(name) > 200 {
		return shared.NewValidationError("name", "Name cannot exceed 200 characters")
	}
	p.Name = name
	p.Touch()
	return nil
}

// Archive freezes the pipeline
func (p *Pipeline) Archive() error {
	if p.Status == StatusArchived {
		return shared.NewDomainError("INVALID_STATE", "Pipeline is already archived")
	}
	p.Status = StatusArchived
	p.Touch()
	return nil
}

// SetItemCompletion marks an item done or not done, updates its note when
// note is non-nil and recomputes step and pipeline status.
func (p *Pipeline) SetItemCompletion(itemID uuid.UUID, completed bool, by uuid.UUID, note *string) (*Step, *Item, error) {
	if p.Status == StatusArchived {
		return nil, nil, ErrArchived
	}
	step, item, err := p.Item(itemID)
	if err != nil {
		return nil, nil, err
	}
	if note != nil {
		if len(*note) > 2000 {
			return nil, nil, shared.NewValidationError("note", "Note cannot exceed 2000 characters")
		}
		item.Note = strings.TrimSpace(*note)
	}
	if completed && !item.Completed {
		now := time.Now()
		item.Completed = true
		item.CompletedAt = &now
		item.CompletedBy = &by
	} else if !completed && item.Completed {
		item.Completed = false
		item.CompletedAt = nil
		item.CompletedBy = nil
	}
	item.Touch()
	p.recompute()
	p.Touch()
	return step, item, nil
}

// Item finds an item and its step
func (p *Pipeline) Item(id uuid.UUID) (*Step, *Item, error) {
	for _, s := range p.Steps {
		for _, it := range s.Items {
			if it.ID == id {
				return s, it, nil
			}
		}
	}
	return nil, nil, shared.ErrNotFound
}

// Progress returns completed and total item counts
func (p *Pipeline) Progress() (done, total int) {
	for _, s := range p.Steps {
		for _, it := range s.Items {
			total++
			if it.Completed {
				done++
			}
		}
	}
	return done, total
}

// Sort orders steps and items by position
func (p *Pipeline) Sort() {
	sort.SliceStable(p.Steps, func(i, j int) bool { return p.Steps[i].Position < p.Steps[j].Position })
	for _, s := range p.Steps {
		sort.SliceStable(s.Items, func(i, j int) bool { return s.Items[i].Position < s.Items[j].Position })
	}
}

func (p *Pipeline) recompute() {
	allDone := len(p.Steps) > 0
	for _, s := range p.Steps {
		s.Status = s.derivedStatus()
		if s.Status != StepDone {
			allDone = false
		}
	}
	if p.Status == StatusArchived {
		return
	}
	if allDone {
		p.Status = StatusCompleted
	} else {
		p.Status = StatusActive
	}
}

// derivedStatus: done when every required item is completed (or, with no
// required items, every item), in progress when anything is completed.
func (s *Step) derivedStatus() StepStatus {
	var required, requiredDone, done int
	for _, it := range s.Items {
		if it.Completed {
			done++
		}
		if it.Required {
			required++
			if it.Completed {
				requiredDone++
			}
		}
	}
	switch {
	case required > 0 && requiredDone == required:
		return StepDone
	case required == 0 && done == len(s.Items):
		return StepDone
	case done > 0:
		return StepInProgress
	default:
		return StepPending
	}
}
