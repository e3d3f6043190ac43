package service

import (
	"encoding/json"
	"strings"

	"mergeflow/internal/merge"
	"mergeflow/internal/model"
	v1 "mergeflow/pkg/api/v1"
)

// ChecklistResult is the outcome of one checklist evaluation.
// BlockingRemaining is what actually gates publish; Remaining also counts
// advisory items.
type ChecklistResult struct {
	Items             []model.ChecklistItem `json:"items"`
	Remaining         int                   `json:"remaining"`
	BlockingRemaining int                   `json:"blocking_remaining"`
}

// EvaluateChecklist derives the auto items from feature/revision state and
// reads manual item status from the feature's persisted checklist map.
// Auto items are never stored; they are recomputed on every call.
func EvaluateChecklist(feature *model.FeatureMaster, live, draft v1.RevisionConfig, cfg model.ChecklistConfig) ChecklistResult {
	manualState := decodeChecklistState(feature.ChecklistJSON)
	items := make([]model.ChecklistItem, 0, 4+len(cfg.Tasks))

	// At least one change relative to live.
	items = append(items, autoItem("changes", "Add at least one change to the draft", hasDraftChanges(live, draft), true))

	// Every environment that has rules must have at least one enabled rule.
	activeOK := true
	for _, rules := range draft.Rules {
		if len(rules) == 0 {
			continue
		}
		enabled := false
		for _, r := range rules {
			if r.Enabled {
				enabled = true
				break
			}
		}
		if !enabled {
			activeOK = false
			break
		}
	}
	items = append(items, autoItem("active-rules", "Enable at least one rule in every targeted environment", activeOK, true))

	// Advisory: some targeting configured somewhere.
	hasTargeting := false
	for _, rules := range draft.Rules {
		if len(rules) > 0 {
			hasTargeting = true
			break
		}
	}
	items = append(items, autoItem("targeting", "Configure targeting rules", hasTargeting, false))

	for _, task := range cfg.Tasks {
		switch task.CompletionType {
		case model.CompletionAuto:
			items = append(items, model.ChecklistItem{
				Key:      task.PropertyKey,
				Title:    task.Task,
				Type:     model.CompletionAuto,
				Status:   boolStatus(autoPropertyComplete(feature, task.PropertyKey)),
				URL:      task.URL,
				Blocking: true,
			})
		case model.CompletionManual:
			items = append(items, model.ChecklistItem{
				Key:      task.Task,
				Title:    task.Task,
				Type:     model.CompletionManual,
				Status:   boolStatus(manualState[task.Task] == string(model.ChecklistComplete)),
				URL:      task.URL,
				Blocking: task.Required || cfg.RequireManualChecklist,
			})
		}
	}

	res := ChecklistResult{Items: items}
	for _, item := range items {
		if item.Status == model.ChecklistIncomplete {
			res.Remaining++
			if item.Blocking {
				res.BlockingRemaining++
			}
		}
	}
	return res
}

func autoPropertyComplete(feature *model.FeatureMaster, key string) bool {
	switch key {
	case "description":
		return strings.TrimSpace(feature.Description) != ""
	case "tags":
		return strings.TrimSpace(feature.Tags) != ""
	case "project":
		return feature.Project != "" && feature.Project != "default"
	}
	return false
}

// hasDraftChanges treats the draft as an already-merged result and asks the
// merge package whether it differs from live in any scope.
func hasDraftChanges(live, draft v1.RevisionConfig) bool {
	res := merge.Result{Success: true, DefaultValue: draft.DefaultValue, Rules: draft.Rules}
	return merge.HasChanges(res, live)
}

func autoItem(key, title string, complete, blocking bool) model.ChecklistItem {
	return model.ChecklistItem{
		Key:      key,
		Title:    title,
		Type:     model.CompletionAuto,
		Status:   boolStatus(complete),
		Blocking: blocking,
	}
}

func boolStatus(complete bool) model.ChecklistStatus {
	if complete {
		return model.ChecklistComplete
	}
	return model.ChecklistIncomplete
}

func decodeChecklistState(raw string) map[string]string {
	state := make(map[string]string)
	if raw == "" {
		return state
	}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return map[string]string{}
	}
	return state
}

func encodeChecklistState(state map[string]string) string {
	b, _ := json.Marshal(state)
	return string(b)
}
