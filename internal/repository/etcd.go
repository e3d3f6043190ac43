package repository

import (
	"context"
	"encoding/json"
	"errors"
	v1 "mergeflow/pkg/api/v1"

	clientv3 "go.etcd.io/etcd/client/v3"
)

var ErrLiveConfigNotFound = errors.New("live config not found")

type EtcdInterface interface {
	clientv3.KV
	clientv3.Watcher
	Close() error
}

// LiveRepository stores published live configs in etcd, one key per feature.
type LiveRepository struct {
	client EtcdInterface
}

func NewLiveRepository(client EtcdInterface) *LiveRepository {
	return &LiveRepository{
		client: client,
	}
}

// GetLive retrieves a published config by its full etcd key.
func (r *LiveRepository) GetLive(ctx context.Context, key string) (*v1.LiveConfig, error) {
	resp, err := r.client.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, ErrLiveConfigNotFound
	}
	kv := resp.Kvs[0]
	var cfg v1.LiveConfig
	if err := json.Unmarshal(kv.Value, &cfg); err != nil {
		return nil, err
	}
	cfg.Revision = kv.ModRevision
	return &cfg, nil
}

// SaveLiveIfNewer writes a published config only if its live version is
// greater than what etcd already holds. (CAS)
func (r *LiveRepository) SaveLiveIfNewer(ctx context.Context, key string, newValue v1.LiveConfig) (int64, error) {
	const maxRetries = 3
	var retries int

	for {
		resp, err := r.client.Get(ctx, key)
		if err != nil {
			return 0, err
		}

		val := newValue.ToJSON()

		if len(resp.Kvs) == 0 {
			txn := r.client.Txn(ctx).
				If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
				Then(clientv3.OpPut(key, val))

			tResp, err := txn.Commit()
			if err != nil {
				return 0, err
			}
			if !tResp.Succeeded {
				// Contention detected
				retries++
				if retries > maxRetries {
					return 0, errors.New("max retries exceeded for SaveLiveIfNewer")
				}
				continue
			}
			return tResp.Header.Revision, nil
		}

		// Key exists, parse the value to check stored version
		var current v1.LiveConfig
		kv := resp.Kvs[0]
		if err := json.Unmarshal(kv.Value, &current); err != nil {
			return 0, err
		}
		// If stored live version >= new live version, do nothing (idempotency).
		if current.Version >= newValue.Version {
			return kv.ModRevision, nil
		}

		// CAS update: ensure we are updating the exact etcd revision we just read
		txn := r.client.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(key), "=", kv.ModRevision)).
			Then(clientv3.OpPut(key, val))

		tResp, err := txn.Commit()
		if err != nil {
			return 0, err
		}

		if tResp.Succeeded {
			return tResp.Header.Revision, nil
		}
		// If CAS failed (someone else updated in between), loop again
		retries++
		if retries > maxRetries {
			return 0, errors.New("max retries exceeded for SaveLiveIfNewer")
		}
	}
}

func (r *LiveRepository) GetWithRevision(ctx context.Context, prefix string) (*clientv3.GetResponse, error) {
	resp, err := r.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *LiveRepository) WatchLive(ctx context.Context, prefix string) clientv3.WatchChan {
	return r.client.Watch(ctx, prefix, clientv3.WithPrefix())
}

func (r *LiveRepository) WatchLiveFrom(ctx context.Context, prefix string, startRev int64) clientv3.WatchChan {
	return r.client.Watch(ctx, prefix, clientv3.WithPrefix(), clientv3.WithRev(startRev))
}

func (r *LiveRepository) Health(ctx context.Context) error {
	_, err := r.client.Get(ctx, "health_check")
	return err
}
