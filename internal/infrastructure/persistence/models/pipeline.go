package models

import (
	"time"

	"github.com/flowdesk/backend/internal/domain/pipeline"
	"github.com/google/uuid"
)

// TemplateModel is the persistence model for a pipeline template.
type TemplateModel struct {
	TenantOwnedModel
	Name        string              `gorm:"type:varchar(200);not null"`
	Description string              `gorm:"type:text"`
	Steps       []StepTemplateModel `gorm:"foreignKey:TemplateID"`
}

// TableName returns the table name for GORM
func (TemplateModel) TableName() string {
	return "pipeline_templates"
}

// ToDomain converts the model and any preloaded steps to a domain Template.
func (m *TemplateModel) ToDomain() *pipeline.Template {
	t := &pipeline.Template{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Name:                m.Name,
		Description:         m.Description,
	}
	for i := range m.Steps {
		t.Steps = append(t.Steps, m.Steps[i].ToDomain())
	}
	t.Sort()
	return t
}

// TemplateModelFromDomain maps the template row only; steps are saved separately.
func TemplateModelFromDomain(t *pipeline.Template) *TemplateModel {
	m := &TemplateModel{Name: t.Name, Description: t.Description}
	m.FromDomainTenantAggregateRoot(t.TenantAggregateRoot)
	return m
}

// StepTemplateModel is the persistence model for a step of a template.
type StepTemplateModel struct {
	BaseModel
	TemplateID  uuid.UUID           `gorm:"type:uuid;not null;index"`
	Name        string              `gorm:"type:varchar(200);not null"`
	Description string              `gorm:"type:text"`
	Position    int                 `gorm:"not null;default:0"`
	Items       []ItemTemplateModel `gorm:"foreignKey:StepTemplateID"`
}

// TableName returns the table name for GORM
func (StepTemplateModel) TableName() string {
	return "step_templates"
}

// ToDomain converts the model to a domain StepTemplate.
func (m *StepTemplateModel) ToDomain() *pipeline.StepTemplate {
	s := &pipeline.StepTemplate{
		BaseEntity:  m.BaseModel.ToDomain(),
		TemplateID:  m.TemplateID,
		Name:        m.Name,
		Description: m.Description,
		Position:    m.Position,
	}
	for i := range m.Items {
		s.Items = append(s.Items, m.Items[i].ToDomain())
	}
	return s
}

// StepTemplateModelFromDomain maps the step row only.
func StepTemplateModelFromDomain(s *pipeline.StepTemplate) *StepTemplateModel {
	m := &StepTemplateModel{
		TemplateID:  s.TemplateID,
		Name:        s.Name,
		Description: s.Description,
		Position:    s.Position,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}

// ItemTemplateModel is the persistence model for a checklist item of a step template.
type ItemTemplateModel struct {
	BaseModel
	StepTemplateID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name           string    `gorm:"type:varchar(200);not null"`
	Description    string    `gorm:"type:text"`
	Position       int       `gorm:"not null;default:0"`
	Required       bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ItemTemplateModel) TableName() string {
	return "item_templates"
}

// ToDomain converts the model to a domain ItemTemplate.
func (m *ItemTemplateModel) ToDomain() *pipeline.ItemTemplate {
	return &pipeline.ItemTemplate{
		BaseEntity:     m.BaseModel.ToDomain(),
		StepTemplateID: m.StepTemplateID,
		Name:           m.Name,
		Description:    m.Description,
		Position:       m.Position,
		Required:       m.Required,
	}
}

// ItemTemplateModelFromDomain creates a new persistence model from a domain ItemTemplate.
func ItemTemplateModelFromDomain(it *pipeline.ItemTemplate) *ItemTemplateModel {
	m := &ItemTemplateModel{
		StepTemplateID: it.StepTemplateID,
		Name:           it.Name,
		Description:    it.Description,
		Position:       it.Position,
		Required:       it.Required,
	}
	m.FromDomainBaseEntity(it.BaseEntity)
	return m
}

// PipelineModel is the persistence model for a pipeline instance.
type PipelineModel struct {
	TenantOwnedModel
	TemplateID *uuid.UUID      `gorm:"type:uuid;index"`
	Name       string          `gorm:"type:varchar(200);not null"`
	Status     pipeline.Status `gorm:"type:varchar(20);not null;default:'active';index"`
	Steps      []StepModel     `gorm:"foreignKey:PipelineID"`
}

// TableName returns the table name for GORM
func (PipelineModel) TableName() string {
	return "pipelines"
}

// ToDomain converts the model and any preloaded steps to a domain Pipeline.
func (m *PipelineModel) ToDomain() *pipeline.Pipeline {
	p := &pipeline.Pipeline{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		TemplateID:          m.TemplateID,
		Name:                m.Name,
		Status:              m.Status,
	}
	for i := range m.Steps {
		p.Steps = append(p.Steps, m.Steps[i].ToDomain())
	}
	p.Sort()
	return p
}

// PipelineModelFromDomain maps the pipeline row only.
func PipelineModelFromDomain(p *pipeline.Pipeline) *PipelineModel {
	m := &PipelineModel{
		TemplateID: p.TemplateID,
		Name:       p.Name,
		Status:     p.Status,
	}
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	return m
}

// StepModel is the persistence model for a pipeline step.
type StepModel struct {
	BaseModel
	PipelineID uuid.UUID           `gorm:"type:uuid;not null;index"`
	Name       string              `gorm:"type:varchar(200);not null"`
	Position   int                 `gorm:"not null;default:0"`
	Status     pipeline.StepStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	Items      []ItemModel         `gorm:"foreignKey:StepID"`
}

// TableName returns the table name for GORM
func (StepModel) TableName() string {
	return "pipeline_steps"
}

// ToDomain converts the model to a domain Step.
func (m *StepModel) ToDomain() *pipeline.Step {
	s := &pipeline.Step{
		BaseEntity: m.BaseModel.ToDomain(),
		PipelineID: m.PipelineID,
		Name:       m.Name,
		Position:   m.Position,
		Status:     m.Status,
	}
	for i := range m.Items {
		s.Items = append(s.Items, m.Items[i].ToDomain())
	}
	return s
}

// StepModelFromDomain maps the step row only.
func StepModelFromDomain(s *pipeline.Step) *StepModel {
	m := &StepModel{
		PipelineID: s.PipelineID,
		Name:       s.Name,
		Position:   s.Position,
		Status:     s.Status,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}

// ItemModel is the persistence model for a checklist item of a pipeline step.
type ItemModel struct {
	BaseModel
	StepID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	Name        string     `gorm:"type:varchar(200);not null"`
	Description string     `gorm:"type:text"`
	Position    int        `gorm:"not null;default:0"`
	Required    bool       `gorm:"not null;default:false"`
	Completed   bool       `gorm:"not null;default:false"`
	CompletedAt *time.Time
	CompletedBy *uuid.UUID `gorm:"type:uuid"`
	Note        string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ItemModel) TableName() string {
	return "pipeline_items"
}

// ToDomain converts the model to a domain Item.
func (m *ItemModel) ToDomain() *pipeline.Item {
	return &pipeline.Item{
		BaseEntity:  m.BaseModel.ToDomain(),
		StepID:      m.StepID,
		Name:        m.Name,
		Description: m.Description,
		Position:    m.Position,
		Required:    m.Required,
		Completed:   m.Completed,
		CompletedAt: m.CompletedAt,
		CompletedBy: m.CompletedBy,
		Note:        m.Note,
	}
}

// ItemModelFromDomain creates a new persistence model from a domain Item.
func ItemModelFromDomain(it *pipeline.Item) *ItemModel {
	m := &ItemModel{
		StepID:      it.StepID,
		Name:        it.Name,
		Description: it.Description,
		Position:    it.Position,
		Required:    it.Required,
		Completed:   it.Completed,
		CompletedAt: it.CompletedAt,
		CompletedBy: it.CompletedBy,
		Note:        it.Note,
	}
	m.FromDomainBaseEntity(it.BaseEntity)
	return m
}

