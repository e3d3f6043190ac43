// Package merge implements the three-way merge of feature configurations.
// All functions are pure: identical inputs always produce identical outputs,
// which lets publish re-run the merge against a possibly-changed live state
// and trust the result.
package merge

import (
	"encoding/json"
	"sort"

	v1 "mergeflow/pkg/api/v1"
)

// ScopeDefaultValue is the conflict scope name for the default value; every
// other scope is an environment id.
const ScopeDefaultValue = "defaultValue"

// Result aggregates the merge of the default value and every environment.
// DefaultValue and Rules hold the merged state for non-conflicting scopes
// only; conflicting scopes are listed in Conflicts (sorted, complete).
type Result struct {
	Success      bool              `json:"success"`
	Conflicts    []string          `json:"conflicts"`
	DefaultValue string            `json:"default_value"`
	Rules        map[string][]v1.Rule `json:"rules"`
}

// Values merges a single scalar scope. Returns the merged value and whether
// live and draft diverged from base in different directions.
func Values(base, live, draft string) (string, bool) {
	if live == base {
		return draft, false
	}
	if draft == base {
		return live, false
	}
	if live == draft {
		return live, false
	}
	return "", true
}

// Rules merges one environment's ordered rule list. Lists are compared by
// serialized equality; a nil list and an empty list are the same thing.
func Rules(base, live, draft []v1.Rule) ([]v1.Rule, bool) {
	b, l, d := encodeRules(base), encodeRules(live), encodeRules(draft)
	if l == b {
		return cloneRules(draft), false
	}
	if d == b {
		return cloneRules(live), false
	}
	if l == d {
		return cloneRules(live), false
	}
	return nil, true
}

// Compute runs the three-way merge across the default value and the union
// of environments known to live, base, draft and the caller.
func Compute(live, base, draft v1.RevisionConfig, environments []string) Result {
	res := Result{
		Conflicts: []string{},
		Rules:     make(map[string][]v1.Rule),
	}

	merged, conflict := Values(base.DefaultValue, live.DefaultValue, draft.DefaultValue)
	if conflict {
		res.Conflicts = append(res.Conflicts, ScopeDefaultValue)
	} else {
		res.DefaultValue = merged
	}

	for _, env := range envUnion(live, base, draft, environments) {
		mergedRules, conflict := Rules(base.Rules[env], live.Rules[env], draft.Rules[env])
		if conflict {
			res.Conflicts = append(res.Conflicts, env)
			continue
		}
		if len(mergedRules) > 0 {
			res.Rules[env] = mergedRules
		}
	}

	sort.Strings(res.Conflicts)
	res.Success = len(res.Conflicts) == 0
	return res
}

// HasChanges reports whether the merged state differs from live, i.e. there
// is anything to publish.
func HasChanges(res Result, live v1.RevisionConfig) bool {
	if !res.Success {
		return false
	}
	if res.DefaultValue != live.DefaultValue {
		return true
	}
	for _, env := range envNames(res.Rules, live.Rules) {
		if encodeRules(res.Rules[env]) != encodeRules(live.Rules[env]) {
			return true
		}
	}
	return false
}

func envUnion(live, base, draft v1.RevisionConfig, extra []string) []string {
	seen := make(map[string]bool)
	for _, env := range extra {
		seen[env] = true
	}
	for env := range live.Rules {
		seen[env] = true
	}
	for env := range base.Rules {
		seen[env] = true
	}
	for env := range draft.Rules {
		seen[env] = true
	}
	envs := make([]string, 0, len(seen))
	for env := range seen {
		envs = append(envs, env)
	}
	sort.Strings(envs)
	return envs
}

func envNames(a, b map[string][]v1.Rule) []string {
	seen := make(map[string]bool)
	for env := range a {
		seen[env] = true
	}
	for env := range b {
		seen[env] = true
	}
	envs := make([]string, 0, len(seen))
	for env := range seen {
		envs = append(envs, env)
	}
	sort.Strings(envs)
	return envs
}

func encodeRules(rules []v1.Rule) string {
	if len(rules) == 0 {
		return "[]"
	}
	b, err := json.Marshal(rules)
	if err != nil {
		// Rule contains only marshalable fields
		panic(err)
	}
	return string(b)
}

func cloneRules(rules []v1.Rule) []v1.Rule {
	if len(rules) == 0 {
		return nil
	}
	out := make([]v1.Rule, len(rules))
	copy(out, rules)
	for i := range out {
		if len(rules[i].Values) > 0 {
			out[i].Values = append([]string(nil), rules[i].Values...)
		}
	}
	return out
}
