package v1

import (
	"encoding/json"
	"mergeflow/pkg/constraints"
)

// Rule is one targeting rule inside an environment's ordered rule list.
type Rule struct {
	ID          string   `json:"id"`
	Description string   `json:"description,omitempty"`
	Attribute   string   `json:"attribute"`
	Operator    string   `json:"operator"`
	Values      []string `json:"value"`
	Result      string   `json:"result"`
	Enabled     bool     `json:"enabled"`
}

// RevisionConfig is the full structured configuration carried by one
// revision: the default value plus the ordered rule list per environment.
type RevisionConfig struct {
	DefaultValue string            `json:"default_value"`
	Rules        map[string][]Rule `json:"rules"`
}

// LiveConfig is the published configuration as stored in etcd and pushed
// to SDK clients.
type LiveConfig struct {
	Project      string            `json:"project"`
	Key          string            `json:"key"`
	Type         string            `json:"type"`
	Version      int               `json:"version"`  // live feature version
	Revision     int64             `json:"revision"` // overall etcd revision
	DefaultValue string            `json:"default_value"`
	Rules        map[string][]Rule `json:"rules"`
}

type Message struct {
	Project      string             `json:"project"`
	Key          string             `json:"key"`
	Type         string             `json:"type"`
	Version      int                `json:"version"`
	Revision     int64              `json:"revision"`
	DefaultValue string             `json:"default_value"`
	Rules        map[string][]Rule  `json:"rules,omitempty"`
	Action       constraints.Action `json:"action"`
}

func (c *LiveConfig) ToJSON() string {
	b, err := json.Marshal(c)
	if err != nil {
		panic("Mergeflow serialization failed" + err.Error())
	}
	return string(b)
}

func (c *LiveConfig) Config() RevisionConfig {
	return RevisionConfig{DefaultValue: c.DefaultValue, Rules: c.Rules}
}
