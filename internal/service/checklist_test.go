package service

import (
	"testing"

	"mergeflow/internal/model"
	v1 "mergeflow/pkg/api/v1"
)

func itemByKey(t *testing.T, res ChecklistResult, key string) model.ChecklistItem {
	t.Helper()
	for _, item := range res.Items {
		if item.Key == key {
			return item
		}
	}
	t.Fatalf("checklist item %q not found in %+v", key, res.Items)
	return model.ChecklistItem{}
}

func TestEvaluateChecklist_AutoItems(t *testing.T) {
	feature := &model.FeatureMaster{Project: "web", Key: "checkout"}
	live := v1.RevisionConfig{DefaultValue: "off"}

	// unchanged draft: changes incomplete and blocking
	res := EvaluateChecklist(feature, live, live, model.ChecklistConfig{})
	changes := itemByKey(t, res, "changes")
	if changes.Status != model.ChecklistIncomplete || !changes.Blocking {
		t.Errorf("unchanged draft: changes item = %+v", changes)
	}
	if res.BlockingRemaining == 0 {
		t.Error("unchanged draft should block publish")
	}

	// an explicit empty rule list is the same as no rules at all
	res = EvaluateChecklist(feature, live, v1.RevisionConfig{
		DefaultValue: "off",
		Rules:        map[string][]v1.Rule{"dev": {}},
	}, model.ChecklistConfig{})
	if itemByKey(t, res, "changes").Status != model.ChecklistIncomplete {
		t.Error("empty rule list must not count as a change")
	}

	// changed default completes the changes item
	draft := v1.RevisionConfig{DefaultValue: "on"}
	res = EvaluateChecklist(feature, live, draft, model.ChecklistConfig{})
	if itemByKey(t, res, "changes").Status != model.ChecklistComplete {
		t.Error("changed default should complete the changes item")
	}

	// an environment with only disabled rules blocks
	draft.Rules = map[string][]v1.Rule{
		"dev": {{ID: "r1", Attribute: "role", Operator: "eq", Values: []string{"beta"}, Enabled: false}},
	}
	res = EvaluateChecklist(feature, live, draft, model.ChecklistConfig{})
	active := itemByKey(t, res, "active-rules")
	if active.Status != model.ChecklistIncomplete || !active.Blocking {
		t.Errorf("disabled-only env: active-rules item = %+v", active)
	}

	// enabling one rule clears it
	draft.Rules["dev"][0].Enabled = true
	res = EvaluateChecklist(feature, live, draft, model.ChecklistConfig{})
	if itemByKey(t, res, "active-rules").Status != model.ChecklistComplete {
		t.Error("enabled rule should complete the active-rules item")
	}

	// targeting is advisory only
	res = EvaluateChecklist(feature, live, v1.RevisionConfig{DefaultValue: "on"}, model.ChecklistConfig{})
	targeting := itemByKey(t, res, "targeting")
	if targeting.Status != model.ChecklistIncomplete {
		t.Errorf("no rules: targeting item = %+v", targeting)
	}
	if targeting.Blocking {
		t.Error("targeting must not block publish")
	}
	if res.BlockingRemaining != 0 {
		t.Errorf("only advisory items remain, BlockingRemaining = %d", res.BlockingRemaining)
	}
	if res.Remaining != 1 {
		t.Errorf("Remaining = %d, want 1 (targeting)", res.Remaining)
	}
}

func TestEvaluateChecklist_AutoProperties(t *testing.T) {
	cfg := model.ChecklistConfig{
		Tasks: []model.ChecklistTask{
			{Task: "Add a description", CompletionType: model.CompletionAuto, PropertyKey: "description"},
			{Task: "Tag the feature", CompletionType: model.CompletionAuto, PropertyKey: "tags"},
			{Task: "Assign a project", CompletionType: model.CompletionAuto, PropertyKey: "project"},
		},
	}
	live := v1.RevisionConfig{}
	draft := v1.RevisionConfig{DefaultValue: "on"}

	bare := &model.FeatureMaster{Project: "default", Key: "checkout"}
	res := EvaluateChecklist(bare, live, draft, cfg)
	for _, key := range []string{"description", "tags", "project"} {
		if itemByKey(t, res, key).Status != model.ChecklistIncomplete {
			t.Errorf("bare feature: %s should be incomplete", key)
		}
	}

	filled := &model.FeatureMaster{
		Project:     "web",
		Key:         "checkout",
		Description: "gates the new checkout flow",
		Tags:        "checkout,web",
	}
	res = EvaluateChecklist(filled, live, draft, cfg)
	for _, key := range []string{"description", "tags", "project"} {
		if itemByKey(t, res, key).Status != model.ChecklistComplete {
			t.Errorf("filled feature: %s should be complete", key)
		}
	}
}

func TestEvaluateChecklist_ManualItems(t *testing.T) {
	cfg := model.ChecklistConfig{
		Tasks: []model.ChecklistTask{
			{Task: "notify-oncall", CompletionType: model.CompletionManual, Required: true},
			{Task: "update-docs", CompletionType: model.CompletionManual, Required: false},
		},
	}
	live := v1.RevisionConfig{}
	draft := v1.RevisionConfig{DefaultValue: "on"}

	feature := &model.FeatureMaster{Project: "web", Key: "checkout"}
	res := EvaluateChecklist(feature, live, draft, cfg)
	if got := itemByKey(t, res, "notify-oncall"); got.Status != model.ChecklistIncomplete || !got.Blocking {
		t.Errorf("required manual item = %+v", got)
	}
	if got := itemByKey(t, res, "update-docs"); got.Blocking {
		t.Errorf("optional manual item must not block: %+v", got)
	}
	if res.BlockingRemaining != 1 {
		t.Errorf("BlockingRemaining = %d, want 1", res.BlockingRemaining)
	}

	// org-wide strictness makes every manual item blocking
	cfg.RequireManualChecklist = true
	res = EvaluateChecklist(feature, live, draft, cfg)
	if got := itemByKey(t, res, "update-docs"); !got.Blocking {
		t.Error("require_manual_checklist should make optional items blocking")
	}
	if res.BlockingRemaining != 2 {
		t.Errorf("BlockingRemaining = %d, want 2", res.BlockingRemaining)
	}

	// ticking persisted state completes the item
	feature.ChecklistJSON = encodeChecklistState(map[string]string{
		"notify-oncall": string(model.ChecklistComplete),
		"update-docs":   string(model.ChecklistComplete),
	})
	res = EvaluateChecklist(feature, live, draft, cfg)
	if res.BlockingRemaining != 0 {
		t.Errorf("all manual items ticked, BlockingRemaining = %d", res.BlockingRemaining)
	}
}

func TestEvaluateChecklist_CorruptStateIgnored(t *testing.T) {
	cfg := model.ChecklistConfig{
		Tasks: []model.ChecklistTask{
			{Task: "notify-oncall", CompletionType: model.CompletionManual, Required: true},
		},
	}
	feature := &model.FeatureMaster{Project: "web", Key: "checkout", ChecklistJSON: "{not json"}
	res := EvaluateChecklist(feature, v1.RevisionConfig{}, v1.RevisionConfig{DefaultValue: "on"}, cfg)
	if itemByKey(t, res, "notify-oncall").Status != model.ChecklistIncomplete {
		t.Error("corrupt persisted state must read as incomplete")
	}
}
