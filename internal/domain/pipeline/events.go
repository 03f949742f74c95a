package pipeline

// Aggregate types recorded on pipeline events
const (
	AggregateTemplate = "pipeline_template"
	AggregatePipeline = "pipeline"
)

// Event types published by the pipeline services
const (
	EventTemplateCreated = "template.created"
	EventTemplateUpdated = "template.updated"
	EventTemplateDeleted = "template.deleted"

	EventPipelineCreated   = "pipeline.created"
	EventPipelineUpdated   = "pipeline.updated"
	EventPipelineArchived  = "pipeline.archived"
	EventPipelineDeleted   = "pipeline.deleted"
	EventPipelineCompleted = "pipeline.completed"
	EventItemCompleted     = "pipeline.item_completed"
	EventItemReopened      = "pipeline.item_reopened"
)
