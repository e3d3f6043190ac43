package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"mergeflow/internal/buffer"
	"mergeflow/internal/dto/resp"
	"mergeflow/internal/model"
	"mergeflow/internal/repository"
	v1 "mergeflow/pkg/api/v1"
	"mergeflow/pkg/constraints"
	"mergeflow/pkg/logger"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

var ErrEtcdUnhealthy = errors.New("etcd unhealthy")
var ErrMysqlUnhealthy = errors.New("mysql unhealthy")

// FeatureService serves the read side: feature listings, revision history,
// audit logs and the live snapshot pushed to SDK clients.
type FeatureService struct {
	featureRepo  repository.FeatureInterface
	revisionRepo repository.RevisionInterface
	reviewRepo   repository.ReviewInterface
	auditRepo    repository.AuditInterface
	liveRepo     *repository.LiveRepository
	buffer       *buffer.RevisionBuffer
	cache        *LiveCache
	hub          *Hub
}

func NewFeatureService(
	featureRepo repository.FeatureInterface,
	revisionRepo repository.RevisionInterface,
	reviewRepo repository.ReviewInterface,
	auditRepo repository.AuditInterface,
	liveRepo *repository.LiveRepository,
	hub *Hub,
) *FeatureService {
	return &FeatureService{
		featureRepo:  featureRepo,
		revisionRepo: revisionRepo,
		reviewRepo:   reviewRepo,
		auditRepo:    auditRepo,
		liveRepo:     liveRepo,
		hub:          hub,
		buffer:       buffer.NewRevisionBuffer(1000),
		cache:        NewLiveCache(),
	}
}

// GetCompensation replays buffered publish events after lastRev so a
// reconnecting client can catch up without a full snapshot.
func (s *FeatureService) GetCompensation(lastRev int64) ([]v1.Message, bool) {
	return s.buffer.GetSince(lastRev)
}

func (s *FeatureService) GetFeature(ctx context.Context, project, key string) (*resp.FeatureItem, error) {
	m, err := s.featureRepo.GetByKey(ctx, project, key)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	return featureItem(m), nil
}

func (s *FeatureService) ListFeatures(ctx context.Context, project, search string) ([]resp.FeatureItem, error) {
	masters, err := s.featureRepo.List(ctx, project, search)
	if err != nil {
		return nil, err
	}
	items := make([]resp.FeatureItem, 0, len(masters))
	for _, m := range masters {
		items = append(items, *featureItem(m))
	}
	return items, nil
}

func (s *FeatureService) ListRevisions(ctx context.Context, project, key string) ([]resp.RevisionItem, error) {
	m, err := s.featureRepo.GetByKey(ctx, project, key)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	revs, err := s.revisionRepo.ListByFeature(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	items := make([]resp.RevisionItem, 0, len(revs))
	for _, r := range revs {
		rules, _ := decodeRuleMap(r.RulesJSON)
		items = append(items, resp.RevisionItem{
			Version:      r.Version,
			BaseVersion:  r.BaseVersion,
			Status:       string(r.Status),
			DefaultValue: r.DefaultValue,
			Rules:        rules,
			Comment:      r.Comment,
			ReviewRound:  r.ReviewRound,
			CreatedBy:    r.CreatedBy,
			CreatedAt:    r.CreatedAt,
			ClosedBy:     r.ClosedBy,
			ClosedAt:     r.ClosedAt,
		})
	}
	return items, nil
}

func (s *FeatureService) GetFeatureAudits(ctx context.Context, project, key string) ([]resp.AuditLogItem, error) {
	audits, err := s.auditRepo.ListByKey(ctx, project, key)
	if err != nil {
		return nil, err
	}
	items := make([]resp.AuditLogItem, 0, len(audits))
	for _, a := range audits {
		items = append(items, resp.AuditLogItem{
			ID:              a.ID,
			Project:         a.Project,
			Key:             a.Key,
			RevisionVersion: a.RevisionVersion,
			Event:           string(a.Event),
			OldStatus:       a.OldStatus,
			NewStatus:       a.NewStatus,
			Detail:          a.Detail,
			Operator:        a.Operator,
			CreatedAt:       a.CreatedAt,
		})
	}
	return items, nil
}

// GetAllLive returns the cached live snapshot for a project and the etcd
// revision it is consistent with.
func (s *FeatureService) GetAllLive(ctx context.Context, project string) ([]v1.LiveConfig, int64) {
	return s.cache.GetSnapshot(project)
}

func (s *FeatureService) Health(ctx context.Context) error {
	if s.featureRepo.PingContext(ctx) != nil {
		return ErrMysqlUnhealthy
	}
	if s.liveRepo.Health(ctx) != nil {
		return ErrEtcdUnhealthy
	}
	return nil
}

// Run initializes the live snapshot from etcd and then follows the watch
// stream, feeding the cache, the replay buffer and the hub.
func (s *FeatureService) Run(ctx context.Context) {
	prefix := LiveRootPrefix
	// get initial snapshot
	getResp, err := s.liveRepo.GetWithRevision(ctx, prefix)
	if err != nil {
		logger.Error("failed to get initial live configs", zap.Error(err))
		return
	}
	// avoid missing updates between Get and Watch
	rev0 := getResp.Header.Revision
	for _, kv := range getResp.Kvs {
		var cfg v1.LiveConfig
		if err := json.Unmarshal(kv.Value, &cfg); err != nil {
			logger.Warn("failed to unmarshal live config during snapshot", zap.String("key", string(kv.Key)))
			continue
		}
		cfg.Revision = kv.ModRevision
		s.cache.Update(string(kv.Key), cfg)
	}
	logger.Info("live snapshot initialized", zap.Int64("rev", rev0))

	watchChan := s.liveRepo.WatchLiveFrom(ctx, prefix, rev0+1)
	for {
		select {
		case <-ctx.Done():
			return
		case wresp := <-watchChan:
			if wresp.Canceled {
				logger.Warn("watch canceled", zap.Error(wresp.Err()))
				return
			}
			for _, ev := range wresp.Events {
				var msg v1.Message
				if ev.Type == clientv3.EventTypeDelete {
					// delete events carry no value, parse the key
					project, key := parseLiveKey(string(ev.Kv.Key))
					msg = v1.Message{
						Project:  project,
						Key:      key,
						Revision: ev.Kv.ModRevision,
						Action:   constraints.DELETE,
					}
					s.cache.Delete(string(ev.Kv.Key), ev.Kv.ModRevision)
				} else {
					var cfg v1.LiveConfig
					if err := json.Unmarshal(ev.Kv.Value, &cfg); err != nil {
						logger.Error("failed to unmarshal live config", zap.String("key", string(ev.Kv.Key)), zap.ByteString("raw_value", ev.Kv.Value))
						continue
					}
					cfg.Revision = ev.Kv.ModRevision
					msg = v1.Message{
						Project:      cfg.Project,
						Key:          cfg.Key,
						Type:         cfg.Type,
						Version:      cfg.Version,
						Revision:     ev.Kv.ModRevision,
						DefaultValue: cfg.DefaultValue,
						Rules:        cfg.Rules,
						Action:       constraints.PUT,
					}
					s.cache.Update(string(ev.Kv.Key), cfg)
				}
				s.buffer.AddMessage(msg)
				s.hub.Broadcast <- msg
			}
		}
	}
}

// parseLiveKey splits a full etcd key built by BuildLiveKey back into
// project and feature key.
// Key structure: /mergeflow/{project}/features/{key}
func parseLiveKey(fullKey string) (project, key string) {
	parts := strings.Split(fullKey, "/")
	if len(parts) >= 5 && parts[3] == "features" {
		return parts[2], parts[4]
	}
	return "", fullKey
}

func featureItem(m *model.FeatureMaster) *resp.FeatureItem {
	rules, _ := decodeRuleMap(m.RulesJSON)
	return &resp.FeatureItem{
		ID:           m.ID,
		Project:      m.Project,
		Key:          m.Key,
		Type:         m.Type,
		Description:  m.Description,
		Tags:         m.Tags,
		LiveVersion:  m.LiveVersion,
		DefaultValue: m.DefaultValue,
		Rules:        rules,
		UpdatedAt:    m.UpdatedAt,
		UpdatedBy:    m.UpdatedBy,
	}
}
