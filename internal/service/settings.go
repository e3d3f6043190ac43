package service

import "mergeflow/internal/model"

// SettingsProvider resolves org-scoped review and checklist configuration.
// Settings are passed into every engine call explicitly; nothing in the
// workflow reads process-wide state.
type SettingsProvider interface {
	ReviewPolicy(project string) model.ReviewPolicy
	ChecklistConfig(project string) model.ChecklistConfig
}

// StaticSettings serves one org-wide configuration, loaded from the config
// file. Per-project overrides keyed by project name win over the default.
type StaticSettings struct {
	Policy    model.ReviewPolicy
	Checklist model.ChecklistConfig
	Overrides map[string]model.ReviewPolicy
}

func (s *StaticSettings) ReviewPolicy(project string) model.ReviewPolicy {
	if p, ok := s.Overrides[project]; ok {
		return p
	}
	return s.Policy
}

func (s *StaticSettings) ChecklistConfig(project string) model.ChecklistConfig {
	return s.Checklist
}

// CapabilityChecker gates state-changing workflow operations.
type CapabilityChecker interface {
	CanEdit(op *OperatorInfo, project string) bool
	CanPublish(op *OperatorInfo, project string, environments []string) bool
}

// RoleCapabilities is the default role-based checker: editors and admins
// may edit, only admins and release roles may publish.
type RoleCapabilities struct{}

func (RoleCapabilities) CanEdit(op *OperatorInfo, project string) bool {
	if op == nil {
		return false
	}
	switch op.Role {
	case "admin", "editor", "release":
		return true
	}
	return false
}

func (RoleCapabilities) CanPublish(op *OperatorInfo, project string, environments []string) bool {
	if op == nil {
		return false
	}
	switch op.Role {
	case "admin", "release":
		return true
	case "editor":
		// editors may publish as long as no production environment is touched
		for _, env := range environments {
			if env == "prod" || env == "production" {
				return false
			}
		}
		return true
	}
	return false
}
