package cascade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key layout: one JSON value per job plus a per-encounter set
	// of job IDs acting as the cancellation index.
	jobKeyPrefix   = "cascade:job:"
	indexKeyPrefix = "cascade:enc:"
)

// RedisQueue is a Redis-backed job queue for deployments where the
// background workers run outside the scribe process.
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func jobKey(jobID string) string { return jobKeyPrefix + jobID }

func indexKey(encounterID string) string { return indexKeyPrefix + encounterID }

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	if job.ID == "" || job.EncounterID == "" {
		return fmt.Errorf("cascade queue: job id and encounter id are required")
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("cascade queue encode: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, jobKey(job.ID), raw, 0)
	pipe.SAdd(ctx, indexKey(job.EncounterID), job.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (q *RedisQueue) ListByEncounter(ctx context.Context, encounterID string) ([]Job, error) {
	ids, err := q.client.SMembers(ctx, indexKey(encounterID)).Result()
	if err != nil {
		return nil, err
	}

	var out []Job
	for _, id := range ids {
		raw, err := q.client.Get(ctx, jobKey(id)).Result()
		if errors.Is(err, redis.Nil) {
			// Index entry outlived its job; drop it rather than error.
			q.client.SRem(ctx, indexKey(encounterID), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			continue
		}
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnqueuedAt.Before(out[j].EnqueuedAt) })
	return out, nil
}

func (q *RedisQueue) Complete(ctx context.Context, encounterID, jobID string) error {
	pipe := q.client.Pipeline()
	pipe.Del(ctx, jobKey(jobID))
	pipe.SRem(ctx, indexKey(encounterID), jobID)
	_, err := pipe.Exec(ctx)
	return err
}

func (q *RedisQueue) CancelByEncounter(ctx context.Context, encounterID string) (int, error) {
	ids, err := q.client.SMembers(ctx, indexKey(encounterID)).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := q.client.Pipeline()
	dels := make([]*redis.IntCmd, 0, len(ids))
	for _, id := range ids {
		dels = append(dels, pipe.Del(ctx, jobKey(id)))
	}
	pipe.Del(ctx, indexKey(encounterID))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	// Count jobs that actually existed, not index entries.
	cancelled := 0
	for _, del := range dels {
		cancelled += int(del.Val())
	}
	return cancelled, nil
}
