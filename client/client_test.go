package client

import (
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"testing"

	v1 "mergeflow/pkg/api/v1"
	"mergeflow/pkg/logger"
)

func init() {
	logger.InitLogger("test")
}

func TestMatchRule(t *testing.T) {
	c := &MergeClient{}

	isModHit := func(val string, threshold int) bool {
		h := fnv.New32a()
		h.Write([]byte(val))
		return int(h.Sum32()%100) < threshold
	}

	tests := []struct {
		name     string
		rule     v1.Rule
		attrs    map[string]string
		expected bool
	}{
		{
			name:     "Operator IN - Match",
			rule:     v1.Rule{Attribute: "role", Operator: "in", Values: []string{"admin", "editor"}},
			attrs:    map[string]string{"role": "editor"},
			expected: true,
		},
		{
			name:     "Operator IN - No Match",
			rule:     v1.Rule{Attribute: "role", Operator: "in", Values: []string{"admin", "editor"}},
			attrs:    map[string]string{"role": "viewer"},
			expected: false,
		},
		{
			name:     "Operator IN - Missing Attribute",
			rule:     v1.Rule{Attribute: "role", Operator: "in", Values: []string{"admin"}},
			attrs:    map[string]string{"group": "eng"},
			expected: false,
		},
		{
			name:     "Operator EQ - Match",
			rule:     v1.Rule{Attribute: "region", Operator: "eq", Values: []string{"us-east-1"}},
			attrs:    map[string]string{"region": "us-east-1"},
			expected: true,
		},
		{
			name:     "Operator EQ - No Match",
			rule:     v1.Rule{Attribute: "region", Operator: "eq", Values: []string{"us-east-1"}},
			attrs:    map[string]string{"region": "eu-west-1"},
			expected: false,
		},
		{
			name:     "Operator MOD - 50% Threshold - Hit",
			rule:     v1.Rule{Attribute: "userId", Operator: "mod", Values: []string{"50"}},
			attrs:    map[string]string{"userId": "user123"},
			expected: isModHit("user123", 50),
		},
		{
			name:     "Operator MOD - Invalid Threshold",
			rule:     v1.Rule{Attribute: "userId", Operator: "mod", Values: []string{"invalid"}},
			attrs:    map[string]string{"userId": "user123"},
			expected: false,
		},
		{
			name:     "Operator UNKNOWN - Should fail safely",
			rule:     v1.Rule{Attribute: "role", Operator: "unknown", Values: []string{"something"}},
			attrs:    map[string]string{"role": "something"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.matchRule(tt.rule, tt.attrs)
			if result != tt.expected {
				t.Errorf("matchRule() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestEvaluate_RuleOrderAndDefault(t *testing.T) {
	c := &MergeClient{
		env:     "production",
		configs: make(map[string]v1.LiveConfig),
	}
	c.configs["web/checkout"] = v1.LiveConfig{
		Project:      "web",
		Key:          "checkout",
		DefaultValue: "off",
		Rules: map[string][]v1.Rule{
			"production": {
				{Attribute: "region", Operator: "eq", Values: []string{"eu"}, Result: "eu-flow", Enabled: true},
				{Attribute: "role", Operator: "in", Values: []string{"beta"}, Result: "beta-flow", Enabled: true},
			},
			"dev": {
				{Attribute: "role", Operator: "in", Values: []string{"beta"}, Result: "dev-only", Enabled: true},
			},
		},
	}

	// first matching rule wins
	val, ok := c.Evaluate("web", "checkout", map[string]string{"region": "eu", "role": "beta"})
	if !ok || val != "eu-flow" {
		t.Errorf("expected eu-flow, got %q ok=%v", val, ok)
	}

	// second rule applies when first misses
	val, _ = c.Evaluate("web", "checkout", map[string]string{"role": "beta"})
	if val != "beta-flow" {
		t.Errorf("expected beta-flow, got %q", val)
	}

	// no match falls back to default; dev rules must not leak in
	val, _ = c.Evaluate("web", "checkout", map[string]string{"region": "us"})
	if val != "off" {
		t.Errorf("expected default off, got %q", val)
	}

	// unknown key reports not found
	if _, ok := c.Evaluate("web", "missing", nil); ok {
		t.Error("expected missing key to report not found")
	}
}

func TestEvaluate_DisabledRuleSkipped(t *testing.T) {
	c := &MergeClient{
		env:     "production",
		configs: make(map[string]v1.LiveConfig),
	}
	c.configs["web/rollout"] = v1.LiveConfig{
		Project:      "web",
		Key:          "rollout",
		DefaultValue: "off",
		Rules: map[string][]v1.Rule{
			"production": {
				{Attribute: "role", Operator: "eq", Values: []string{"beta"}, Result: "on", Enabled: false},
			},
		},
	}

	val, _ := c.Evaluate("web", "rollout", map[string]string{"role": "beta"})
	if val != "off" {
		t.Errorf("disabled rule must not match, got %q", val)
	}
}

func TestModDistribution(t *testing.T) {
	c := &MergeClient{}
	sampleSize := 10000
	thresholds := []int{10, 30, 50, 80}

	for _, threshold := range thresholds {
		t.Run(fmt.Sprintf("Threshold %d%%", threshold), func(t *testing.T) {
			matches := 0
			rule := v1.Rule{
				Attribute: "userId",
				Operator:  "mod",
				Values:    []string{strconv.Itoa(threshold)},
			}

			for i := 0; i < sampleSize; i++ {
				attrs := map[string]string{"userId": fmt.Sprintf("user-%d", i)}
				if c.matchRule(rule, attrs) {
					matches++
				}
			}

			percentage := float64(matches) / float64(sampleSize) * 100
			t.Logf("Distribution for %d%% threshold: %.2f%%", threshold, percentage)

			if math.Abs(percentage-float64(threshold)) > 2.5 {
				t.Errorf("Hash distribution poor: got %.2f%%, want ~%d%% (+/- 2.5%%)", percentage, threshold)
			}
		})
	}
}
