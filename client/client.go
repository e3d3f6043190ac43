package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	v1 "mergeflow/pkg/api/v1"
	"mergeflow/pkg/constraints"
	"mergeflow/pkg/logger"

	"go.uber.org/zap"
)

// MergeClient is the embedded SDK. It keeps a local copy of every published
// config in its projects, kept fresh over SSE, and evaluates rules for one
// environment locally.
type MergeClient struct {
	addr       string
	env        string
	projects   []string
	apiKey     string
	httpClient *http.Client

	mu       sync.RWMutex
	configs  map[string]v1.LiveConfig // keyed by project + "/" + key
	lastRev  int64

	ctx    context.Context
	cancel context.CancelFunc
}

func NewMergeClient(addr, env, apiKey string, projects []string) *MergeClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &MergeClient{
		addr:       addr,
		env:        env,
		apiKey:     apiKey,
		projects:   projects,
		httpClient: &http.Client{Timeout: 0},
		configs:    make(map[string]v1.LiveConfig),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (c *MergeClient) Start() error {
	if err := c.fetchAll(); err != nil {
		return err
	}
	go c.runWatchLoop()
	return nil
}

func (c *MergeClient) Stop() {
	c.cancel()
}

func configKey(project, key string) string {
	return project + "/" + key
}

func (c *MergeClient) fetchAll() error {
	projectParam := strings.Join(c.projects, ",")
	url := fmt.Sprintf("%s/v1/stream/snapshot?project=%s", c.addr, projectParam)
	req, _ := http.NewRequest("GET", url, nil)
	req.Header.Set("X-Mergeflow-Key", c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("failed to fetch live snapshot", zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	var res struct {
		Data     []v1.LiveConfig `json:"data"`
		Revision int64           `json:"revision"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		logger.Error("failed to decode snapshot response", zap.Error(err))
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cfg := range res.Data {
		c.configs[configKey(cfg.Project, cfg.Key)] = cfg
	}
	c.lastRev = res.Revision
	return nil
}

func (c *MergeClient) runWatchLoop() {
	backoff := time.Second
	maxBackoff := 30 * time.Second
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			c.mu.RLock()
			projectParam := strings.Join(c.projects, ",")
			url := fmt.Sprintf("%s/v1/stream/watch?last_rev=%d&project=%s", c.addr, c.lastRev, projectParam)
			c.mu.RUnlock()

			// sub-context for request cancellation
			reqCtx, reqCancel := context.WithCancel(c.ctx)
			req, _ := http.NewRequestWithContext(reqCtx, "GET", url, nil)
			req.Header.Set("X-Mergeflow-Key", c.apiKey)
			resp, err := c.httpClient.Do(req)
			if err != nil {
				reqCancel()
				jitter := time.Duration(rand.Int63n(int64(backoff / 2)))
				logger.Warn("SSE disconnected", zap.Error(err))
				time.Sleep(backoff + jitter)
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}

			// Watchdog for heartbeats
			var lastActivity int64 = time.Now().Unix()
			go func() {
				ticker := time.NewTicker(5 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-reqCtx.Done():
						return
					case <-ticker.C:
						if time.Now().Unix()-atomic.LoadInt64(&lastActivity) > 25 {
							logger.Warn("sse heartbeat timeout, reconnecting")
							reqCancel()
							return
						}
					}
				}
			}()

			backoff = time.Second
			scanner := bufio.NewScanner(resp.Body)

			var eventType string
			var dataBuffer bytes.Buffer

			for scanner.Scan() {
				atomic.StoreInt64(&lastActivity, time.Now().Unix())
				line := scanner.Text()
				if line == "" {
					if eventType == "reset" {
						logger.Warn("received reset event, re-fetching snapshot")
						if err := c.fetchAll(); err != nil {
							logger.Error("failed to refetch snapshot after reset", zap.Error(err))
						}
						reqCancel()
						break
					} else if eventType == "ping" {
						eventType = ""
						dataBuffer.Reset()
						continue
					} else if dataBuffer.Len() > 0 {
						var msg v1.Message
						if err := json.Unmarshal(dataBuffer.Bytes(), &msg); err == nil {
							c.handleUpdate(msg)
						} else {
							logger.Error("failed to unmarshal live update", zap.Error(err))
						}
					}

					eventType = ""
					dataBuffer.Reset()
					continue
				}

				if strings.HasPrefix(line, "event: ") {
					eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				} else if strings.HasPrefix(line, "data:") {
					// the SSE spec allows multiple data lines, joined by newline
					if dataBuffer.Len() > 0 {
						dataBuffer.WriteString("\n")
					}
					dataBuffer.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
				}
			}
			reqCancel()
			resp.Body.Close()
		}
	}
}

func (c *MergeClient) handleUpdate(msg v1.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.Revision <= c.lastRev {
		logger.Warn("stale revision received", zap.Int64("msg_rev", msg.Revision), zap.Int64("last_rev", c.lastRev))
		return
	}
	switch msg.Action {
	case constraints.DELETE:
		delete(c.configs, configKey(msg.Project, msg.Key))
		logger.Info("live config removed", zap.String("key", msg.Key), zap.Int64("rev", msg.Revision))
	case constraints.PUT:
		c.configs[configKey(msg.Project, msg.Key)] = v1.LiveConfig{
			Project:      msg.Project,
			Key:          msg.Key,
			Type:         msg.Type,
			Version:      msg.Version,
			Revision:     msg.Revision,
			DefaultValue: msg.DefaultValue,
			Rules:        msg.Rules,
		}
		logger.Info("live config updated", zap.String("key", msg.Key), zap.Int("version", msg.Version), zap.Int64("rev", msg.Revision))
	default:
		logger.Warn("unknown action in live update", zap.Int32("action", int32(msg.Action)))
	}

	c.lastRev = msg.Revision
}

func (c *MergeClient) IsEnabled(project, key string, attrs map[string]string) bool {
	val, ok := c.Evaluate(project, key, attrs)
	if !ok {
		return false
	}
	return val == "true" || val == "1" || val == "on"
}

func (c *MergeClient) GetString(project, key, defaultValue string, attrs map[string]string) string {
	val, ok := c.Evaluate(project, key, attrs)
	if !ok {
		return defaultValue
	}
	return val
}

// Evaluate walks the client environment's rule list in order; the first
// enabled rule that matches wins, otherwise the default value applies.
func (c *MergeClient) Evaluate(project, key string, attrs map[string]string) (string, bool) {
	c.mu.RLock()
	cfg, ok := c.configs[configKey(project, key)]
	c.mu.RUnlock()

	if !ok {
		logger.Warn("key not found", zap.String("project", project), zap.String("key", key))
		return "", false
	}

	for _, rule := range cfg.Rules[c.env] {
		if !rule.Enabled {
			continue
		}
		if c.matchRule(rule, attrs) {
			return rule.Result, true
		}
	}

	return cfg.DefaultValue, true
}

func (c *MergeClient) matchRule(rule v1.Rule, attrs map[string]string) bool {
	val, ok := attrs[rule.Attribute]
	if !ok {
		return false
	}

	switch rule.Operator {
	case "in":
		if slices.Contains(rule.Values, val) {
			return true
		}
	case "eq":
		return len(rule.Values) > 0 && val == rule.Values[0]
	case "mod":
		// rule.Values[0] is expected to be an integer threshold between 0-100
		if len(rule.Values) == 0 {
			return false
		}
		threshold, err := strconv.Atoi(rule.Values[0])
		if err != nil || threshold == 0 {
			return false
		}
		h := fnv.New32a()
		h.Write([]byte(val))
		hashVal := h.Sum32()
		return int(hashVal%100) < threshold
	}

	return false
}
