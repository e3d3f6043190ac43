package merge

import (
	"reflect"
	"testing"

	v1 "mergeflow/pkg/api/v1"
)

func rule(id, result string) v1.Rule {
	return v1.Rule{
		ID:        id,
		Attribute: "user_id",
		Operator:  "eq",
		Values:    []string{"42"},
		Result:    result,
		Enabled:   true,
	}
}

func cfg(defaultValue string, rules map[string][]v1.Rule) v1.RevisionConfig {
	return v1.RevisionConfig{DefaultValue: defaultValue, Rules: rules}
}

func TestValues(t *testing.T) {
	tests := []struct {
		name             string
		base, live, draft string
		want             string
		conflict         bool
	}{
		{"no change", "a", "a", "a", "a", false},
		{"draft only", "a", "a", "b", "b", false},
		{"live only", "a", "b", "a", "b", false},
		{"same change", "a", "b", "b", "b", false},
		{"divergent", "a", "b", "c", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, conflict := Values(tt.base, tt.live, tt.draft)
			if conflict != tt.conflict {
				t.Fatalf("conflict = %v, want %v", conflict, tt.conflict)
			}
			if !conflict && got != tt.want {
				t.Errorf("value = %q, want %q", got, tt.want)
			}
		})
	}
}

// Live added R2, draft untouched: live's change wins cleanly.
func TestCompute_LiveAddition(t *testing.T) {
	r1, r2 := rule("r1", "on"), rule("r2", "off")
	base := cfg("off", map[string][]v1.Rule{"prod": {r1}})
	live := cfg("off", map[string][]v1.Rule{"prod": {r1, r2}})
	draft := cfg("off", map[string][]v1.Rule{"prod": {r1}})

	res := Compute(live, base, draft, []string{"prod"})
	if !res.Success {
		t.Fatalf("expected success, conflicts = %v", res.Conflicts)
	}
	if !reflect.DeepEqual(res.Rules["prod"], []v1.Rule{r1, r2}) {
		t.Errorf("merged prod rules = %+v, want [r1 r2]", res.Rules["prod"])
	}
}

// Live added R2, draft added R3: true conflict on that environment.
func TestCompute_DivergentRules(t *testing.T) {
	r1, r2, r3 := rule("r1", "on"), rule("r2", "off"), rule("r3", "maybe")
	base := cfg("off", map[string][]v1.Rule{"prod": {r1}})
	live := cfg("off", map[string][]v1.Rule{"prod": {r1, r2}})
	draft := cfg("off", map[string][]v1.Rule{"prod": {r1, r3}})

	res := Compute(live, base, draft, []string{"prod"})
	if res.Success {
		t.Fatal("expected conflict")
	}
	if !reflect.DeepEqual(res.Conflicts, []string{"prod"}) {
		t.Errorf("conflicts = %v, want [prod]", res.Conflicts)
	}
	if _, ok := res.Rules["prod"]; ok {
		t.Error("conflicting scope must not carry a merged value")
	}
}

func TestCompute_AllConflictsReported(t *testing.T) {
	r1, r2, r3 := rule("r1", "on"), rule("r2", "off"), rule("r3", "maybe")
	base := cfg("a", map[string][]v1.Rule{"prod": {r1}, "dev": {r1}})
	live := cfg("b", map[string][]v1.Rule{"prod": {r2}, "dev": {r1}})
	draft := cfg("c", map[string][]v1.Rule{"prod": {r3}, "dev": {r1}})

	res := Compute(live, base, draft, nil)
	want := []string{ScopeDefaultValue, "prod"}
	if !reflect.DeepEqual(res.Conflicts, want) {
		t.Errorf("conflicts = %v, want %v", res.Conflicts, want)
	}
}

func TestCompute_NoOpIdentity(t *testing.T) {
	x := cfg("on", map[string][]v1.Rule{"prod": {rule("r1", "on")}})
	for _, envs := range [][]string{nil, {"prod"}, {"prod", "dev", "staging"}} {
		res := Compute(x, x, x, envs)
		if !res.Success {
			t.Fatalf("envs %v: conflicts = %v", envs, res.Conflicts)
		}
		if res.DefaultValue != x.DefaultValue {
			t.Errorf("envs %v: default = %q", envs, res.DefaultValue)
		}
		if !reflect.DeepEqual(res.Rules["prod"], x.Rules["prod"]) {
			t.Errorf("envs %v: rules = %+v", envs, res.Rules["prod"])
		}
	}
}

func TestCompute_Deterministic(t *testing.T) {
	r1, r2 := rule("r1", "on"), rule("r2", "off")
	base := cfg("a", map[string][]v1.Rule{"prod": {r1}})
	live := cfg("b", map[string][]v1.Rule{"prod": {r1, r2}, "dev": {r2}})
	draft := cfg("a", map[string][]v1.Rule{"prod": {r1}, "staging": {r1}})

	first := Compute(live, base, draft, []string{"prod", "dev", "staging"})
	for i := 0; i < 10; i++ {
		again := Compute(live, base, draft, []string{"prod", "dev", "staging"})
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
}

// Environments missing from one side behave like an empty rule list.
func TestCompute_AbsentEnvIsEmpty(t *testing.T) {
	r1 := rule("r1", "on")
	base := cfg("off", nil)
	live := cfg("off", nil)
	draft := cfg("off", map[string][]v1.Rule{"prod": {r1}})

	res := Compute(live, base, draft, nil)
	if !res.Success {
		t.Fatalf("conflicts = %v", res.Conflicts)
	}
	if !reflect.DeepEqual(res.Rules["prod"], []v1.Rule{r1}) {
		t.Errorf("prod rules = %+v", res.Rules["prod"])
	}

	// draft removed everything while live is untouched: removal applies
	res = Compute(cfg("off", map[string][]v1.Rule{"prod": {r1}}), cfg("off", map[string][]v1.Rule{"prod": {r1}}), cfg("off", map[string][]v1.Rule{}), nil)
	if !res.Success {
		t.Fatalf("conflicts = %v", res.Conflicts)
	}
	if len(res.Rules["prod"]) != 0 {
		t.Errorf("expected prod cleared, got %+v", res.Rules["prod"])
	}
}

func TestHasChanges(t *testing.T) {
	r1, r2 := rule("r1", "on"), rule("r2", "off")
	live := cfg("off", map[string][]v1.Rule{"prod": {r1}})

	same := Compute(live, live, live, nil)
	if HasChanges(same, live) {
		t.Error("identical merge should report no changes")
	}

	draft := cfg("off", map[string][]v1.Rule{"prod": {r1, r2}})
	changed := Compute(live, live, draft, nil)
	if !HasChanges(changed, live) {
		t.Error("rule addition should report changes")
	}
}
