package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PipelineRunStatus summarizes an orchestrated run
type PipelineRunStatus string

const (
	PipelineRunSuccess PipelineRunStatus = "success"
	PipelineRunPartial PipelineRunStatus = "partial"
)

// PipelineRun is the persisted record of one orchestrated run
type PipelineRun struct {
	ID         uuid.UUID         `json:"id" gorm:"type:uuid;primary_key"`
	Trigger    string            `json:"trigger" gorm:"type:varchar(50);not null"`
	Status     PipelineRunStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	StartedAt  time.Time         `json:"started_at" gorm:"not null;index"`
	FinishedAt time.Time         `json:"finished_at" gorm:"not null"`
	DurationMs int64             `json:"duration_ms" gorm:"not null"`
	Stages     datatypes.JSON    `json:"stages" gorm:"type:jsonb;not null"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (PipelineRun) TableName() string {
	return "pipeline_runs"
}
