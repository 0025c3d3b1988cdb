// Package store provides the Redis-backed workflow store used by the
// escalation engine. Instances live in one hash per instance plus a set of
// pending instance IDs; the HR application owns writes to both, the engine
// only lists pending instances and advances escalation tiers.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openhrm/escalation-engine/pkg/config"
	"github.com/openhrm/escalation-engine/pkg/workflow"
)

const (
	fieldStageStartedAt = "stageStartedAt"
	fieldSLAHours       = "slaHours"
	fieldTier           = "tier"
	fieldMaxTier        = "maxTier"
	fieldApprovers      = "approvers"
)

// ErrInstanceNotFound is returned when an instance ID has no stored record.
var ErrInstanceNotFound = errors.New("workflow instance not found")

// RedisStore implements workflow.Store on a Redis backend.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	log       *zap.SugaredLogger
}

// NewRedisStore connects to Redis using the given configuration.
func NewRedisStore(cfg config.Redis, log *zap.SugaredLogger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		log:       log.Named("redis-store"),
	}
}

// Ping verifies connectivity, used at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) pendingKey() string {
	return s.keyPrefix + ":pending"
}

func (s *RedisStore) instanceKey(id string) string {
	return s.keyPrefix + ":instance:" + id
}

// ListPendingInstances returns all instances in the pending set. Instances
// whose hash is missing or malformed are skipped with a warning; a bad record
// must not hide the rest of the queue.
func (s *RedisStore) ListPendingInstances(ctx context.Context) ([]workflow.Instance, error) {
	ids, err := s.client.SMembers(ctx, s.pendingKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing pending instance ids: %w", err)
	}

	instances := make([]workflow.Instance, 0, len(ids))
	for _, id := range ids {
		record, err := s.client.HGetAll(ctx, s.instanceKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("reading instance %s: %w", id, err)
		}
		inst, err := parseInstance(id, record)
		if err != nil {
			s.log.Warnw("Skipping malformed instance record", "instance", id, "error", err)
			continue
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

// AdvanceToNextTier moves a breached instance to its next escalation tier and
// restarts its stage clock. Returns false when the instance is already at its
// final tier or no longer pending, which makes re-running a completed scan a
// no-op.
func (s *RedisStore) AdvanceToNextTier(ctx context.Context, instanceID string) (bool, error) {
	pending, err := s.client.SIsMember(ctx, s.pendingKey(), instanceID).Result()
	if err != nil {
		return false, fmt.Errorf("checking pending membership for %s: %w", instanceID, err)
	}
	if !pending {
		return false, nil
	}

	record, err := s.client.HGetAll(ctx, s.instanceKey(instanceID)).Result()
	if err != nil {
		return false, fmt.Errorf("reading instance %s: %w", instanceID, err)
	}
	if len(record) == 0 {
		return false, fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
	}

	tier, _ := strconv.Atoi(record[fieldTier])
	if maxStr, ok := record[fieldMaxTier]; ok {
		if maxTier, err := strconv.Atoi(maxStr); err == nil && maxTier > 0 && tier >= maxTier {
			return false, nil
		}
	}

	_, err = s.client.HSet(ctx, s.instanceKey(instanceID),
		fieldTier, strconv.Itoa(tier+1),
		fieldStageStartedAt, time.Now().UTC().Format(time.RFC3339Nano),
	).Result()
	if err != nil {
		return false, fmt.Errorf("advancing instance %s to tier %d: %w", instanceID, tier+1, err)
	}

	s.log.Infow("Advanced instance to next escalation tier", "instance", instanceID, "tier", tier+1)
	return true, nil
}

// ApproverContacts returns the notification addresses for the current
// approvers of an instance.
func (s *RedisStore) ApproverContacts(ctx context.Context, instanceID string) ([]string, error) {
	raw, err := s.client.HGet(ctx, s.instanceKey(instanceID), fieldApprovers).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading approver contacts for %s: %w", instanceID, err)
	}
	return splitContacts(raw), nil
}

// parseInstance converts a Redis hash into a workflow.Instance.
func parseInstance(id string, record map[string]string) (workflow.Instance, error) {
	if len(record) == 0 {
		return workflow.Instance{}, ErrInstanceNotFound
	}

	startedAt, err := time.Parse(time.RFC3339Nano, record[fieldStageStartedAt])
	if err != nil {
		return workflow.Instance{}, fmt.Errorf("parsing %s: %w", fieldStageStartedAt, err)
	}
	slaHours, err := strconv.ParseFloat(record[fieldSLAHours], 64)
	if err != nil {
		return workflow.Instance{}, fmt.Errorf("parsing %s: %w", fieldSLAHours, err)
	}
	tier, _ := strconv.Atoi(record[fieldTier])

	return workflow.Instance{
		ID:             id,
		StageStartedAt: startedAt,
		SLAHours:       slaHours,
		Tier:           tier,
	}, nil
}

// splitContacts parses the comma-separated approver list, dropping empties.
func splitContacts(raw string) []string {
	parts := strings.Split(raw, ",")
	contacts := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			contacts = append(contacts, trimmed)
		}
	}
	return contacts
}
