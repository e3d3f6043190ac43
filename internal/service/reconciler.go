package service

import (
	"context"
	"encoding/json"
	"time"

	"mergeflow/internal/model"
	"mergeflow/internal/repository"
	v1 "mergeflow/pkg/api/v1"
	"mergeflow/pkg/logger"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
	"go.uber.org/zap"
)

// Reconciler periodically compares the live state in MySQL (source of
// truth) against etcd (distribution plane) and repairs drift. A distributed
// lock keeps only one instance reconciling at a time.
type Reconciler struct {
	etcdClient  *clientv3.Client
	liveRepo    *repository.LiveRepository
	featureRepo repository.FeatureInterface
	interval    time.Duration
}

func NewReconciler(client *clientv3.Client, liveRepo *repository.LiveRepository, featureRepo repository.FeatureInterface, interval time.Duration) *Reconciler {
	return &Reconciler{
		etcdClient:  client,
		liveRepo:    liveRepo,
		featureRepo: featureRepo,
		interval:    interval,
	}
}

func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Session for distributed lock, tightly coupled with a lease
	session, err := concurrency.NewSession(r.etcdClient, concurrency.WithTTL(10))
	if err != nil {
		logger.Error("failed to create etcd concurrency session", zap.Error(err))
		return
	}
	defer session.Close()

	mutex := concurrency.NewMutex(session, "/locks/reconciler")

	logger.Info("reconciler started", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lockCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := mutex.Lock(lockCtx)
			cancel()

			if err != nil {
				if err == context.DeadlineExceeded {
					// lock held by another instance, skip this round
					logger.Debug("reconciliation skipped, another instance holds the lock")
				} else {
					logger.Error("failed to acquire reconciliation lock", zap.Error(err))
				}
				continue
			}

			logger.Info("lock acquired, starting reconciliation")
			r.reconcile(ctx)

			if err := mutex.Unlock(context.Background()); err != nil {
				logger.Warn("failed to release reconciliation lock", zap.Error(err))
			}
		}
	}
}

func (r *Reconciler) reconcile(ctx context.Context) {
	// todo batching/cursor
	dbFeatures, err := r.featureRepo.GetAll(ctx)
	if err != nil {
		logger.Error("recon: failed to fetch features from db", zap.Error(err))
		return
	}
	dbMap := make(map[string]*model.FeatureMaster)
	for _, f := range dbFeatures {
		if f.LiveVersion == 0 {
			// never published, nothing to distribute
			continue
		}
		fullKey := BuildLiveKey(f.Project, f.Key)
		dbMap[fullKey] = f
	}

	resp, err := r.liveRepo.GetWithRevision(ctx, LiveRootPrefix)
	if err != nil {
		logger.Error("recon: failed to fetch live configs from etcd", zap.Error(err))
		return
	}
	etcdMap := make(map[string]*v1.LiveConfig)
	for _, kv := range resp.Kvs {
		var cfg v1.LiveConfig
		if err := json.Unmarshal(kv.Value, &cfg); err == nil {
			etcdMap[string(kv.Key)] = &cfg
		}
	}

	// MySQL has, etcd missing or behind
	for fullKey, master := range dbMap {
		etcdCfg, exists := etcdMap[fullKey]

		shouldUpdate := false
		reason := ""

		if !exists {
			shouldUpdate = true
			reason = "missing_in_etcd"
		} else if etcdCfg.Version < master.LiveVersion {
			shouldUpdate = true
			reason = "version_behind"
		} else if etcdCfg.Version == master.LiveVersion &&
			(etcdCfg.DefaultValue != master.DefaultValue) {
			shouldUpdate = true
			reason = "value_mismatch"
		}

		if shouldUpdate {
			logger.Warn("recon: fixing inconsistency", zap.String("key", fullKey), zap.String("reason", reason))

			rules, err := decodeRuleMap(master.RulesJSON)
			if err != nil {
				logger.Error("recon: corrupt live rules in db", zap.String("key", fullKey), zap.Error(err))
				continue
			}
			cfg := v1.LiveConfig{
				Project:      master.Project,
				Key:          master.Key,
				Type:         master.Type,
				Version:      master.LiveVersion,
				DefaultValue: master.DefaultValue,
				Rules:        rules,
			}
			if _, err := r.liveRepo.SaveLiveIfNewer(ctx, fullKey, cfg); err != nil {
				logger.Error("recon: failed to fix etcd", zap.String("key", fullKey), zap.Error(err))
			}
		}
	}

	// etcd has, MySQL missing
	for fullKey := range etcdMap {
		if _, exists := dbMap[fullKey]; !exists {
			logger.Warn("recon: orphan live key", zap.String("key", fullKey))
		}
	}

	logger.Info("reconciliation finished", zap.Int("db_count", len(dbMap)), zap.Int("etcd_count", len(etcdMap)))
}
