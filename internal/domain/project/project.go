package project

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusGenerating Status = "generating"
	StatusDraft      Status = "draft"
	StatusPublished  Status = "published"
)

func (s Status) Valid() bool {
	switch s {
	case StatusGenerating, StatusDraft, StatusPublished:
		return true
	default:
		return false
	}
}

// Project owns exactly one page document. While a generation run is in
// flight the status is generating and PuckData holds the unreconciled page.
type Project struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index:idx_project_user_updated,priority:1" json:"user_id"`
	Title    string    `gorm:"column:title;not null" json:"title"`
	Category string    `gorm:"column:category;not null;index" json:"category"`
	Status   Status    `gorm:"column:status;type:text;not null;default:'draft';index" json:"status"`

	PuckData     datatypes.JSON `gorm:"column:puck_data;type:jsonb" json:"puck_data"`
	InputData    datatypes.JSON `gorm:"column:input_data;type:jsonb" json:"input_data,omitempty"`
	ThumbnailURL string         `gorm:"column:thumbnail_url" json:"thumbnail_url,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;index:idx_project_user_updated,priority:2,sort:desc" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Project) TableName() string { return "projects" }

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// GenerationLog records the prompt and output of one successful run.
type GenerationLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Prompt       string         `gorm:"column:prompt;type:text" json:"prompt"`
	Category     string         `gorm:"column:category" json:"category"`
	InputData    datatypes.JSON `gorm:"column:input_data;type:jsonb" json:"input_data"`
	OutputData   datatypes.JSON `gorm:"column:output_data;type:jsonb" json:"output_data"`
	ModelVersion string         `gorm:"column:model_version" json:"model_version"`
	TokensUsed   int            `gorm:"column:tokens_used;not null;default:0" json:"tokens_used"`
	CreatedAt    time.Time      `gorm:"not null;index" json:"created_at"`
}

func (GenerationLog) TableName() string { return "generation_logs" }

func (l *GenerationLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// VibeSession records one natural-language modification of a project.
type VibeSession struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Message        string         `gorm:"column:message;type:text;not null" json:"message"`
	Response       string         `gorm:"column:response;type:text" json:"response"`
	ChangesApplied datatypes.JSON `gorm:"column:changes_applied;type:jsonb" json:"changes_applied"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
}

func (VibeSession) TableName() string { return "vibe_sessions" }

func (v *VibeSession) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
