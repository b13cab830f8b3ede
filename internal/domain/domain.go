package domain

import "github.com/dydqjadlsp/detailpage/internal/domain/project"

type Project = project.Project
type ProjectStatus = project.Status
type GenerationLog = project.GenerationLog
type VibeSession = project.VibeSession
type UserSettings = project.UserSettings

const (
	ProjectStatusGenerating = project.StatusGenerating
	ProjectStatusDraft      = project.StatusDraft
	ProjectStatusPublished  = project.StatusPublished
)
