//go:build integration

package cascade_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"charak/internal/consent/cascade"
	"charak/pkg/testutil/containers"
)

type RedisQueueSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	queue *cascade.RedisQueue
	ctx   context.Context
}

func TestRedisQueueSuite(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	suite.Run(t, &RedisQueueSuite{
		redis: rc,
		queue: cascade.NewRedisQueue(rc.Client),
		ctx:   context.Background(),
	})
}

func (s *RedisQueueSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisQueueSuite) job(encounterID, id string, offset time.Duration) cascade.Job {
	return cascade.Job{
		ID:          id,
		EncounterID: encounterID,
		Kind:        cascade.KindDocRender,
		Payload:     []byte("payload-" + id),
		EnqueuedAt:  time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC).Add(offset),
	}
}

func (s *RedisQueueSuite) TestEnqueueAndList() {
	s.Require().NoError(s.queue.Enqueue(s.ctx, s.job("enc-1", "job-2", time.Minute)))
	s.Require().NoError(s.queue.Enqueue(s.ctx, s.job("enc-1", "job-1", 0)))
	s.Require().NoError(s.queue.Enqueue(s.ctx, s.job("enc-2", "job-3", 0)))

	jobs, err := s.queue.ListByEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.Require().Len(jobs, 2)
	s.Equal("job-1", jobs[0].ID)
	s.Equal("job-2", jobs[1].ID)
	s.Equal([]byte("payload-job-1"), jobs[0].Payload)
}

func (s *RedisQueueSuite) TestCompleteRemovesOneJob() {
	s.Require().NoError(s.queue.Enqueue(s.ctx, s.job("enc-1", "job-1", 0)))
	s.Require().NoError(s.queue.Enqueue(s.ctx, s.job("enc-1", "job-2", time.Minute)))

	s.Require().NoError(s.queue.Complete(s.ctx, "enc-1", "job-1"))

	jobs, err := s.queue.ListByEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.Require().Len(jobs, 1)
	s.Equal("job-2", jobs[0].ID)

	// Completing an absent job is not an error.
	s.Require().NoError(s.queue.Complete(s.ctx, "enc-1", "job-1"))
}

func (s *RedisQueueSuite) TestCancelByEncounter() {
	s.Require().NoError(s.queue.Enqueue(s.ctx, s.job("enc-1", "job-1", 0)))
	s.Require().NoError(s.queue.Enqueue(s.ctx, s.job("enc-1", "job-2", time.Minute)))
	s.Require().NoError(s.queue.Enqueue(s.ctx, s.job("enc-2", "job-3", 0)))

	cancelled, err := s.queue.CancelByEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.Equal(2, cancelled)

	jobs, err := s.queue.ListByEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.Empty(jobs)

	other, err := s.queue.ListByEncounter(s.ctx, "enc-2")
	s.Require().NoError(err)
	s.Len(other, 1)
}

func (s *RedisQueueSuite) TestCancelEmptyEncounter() {
	cancelled, err := s.queue.CancelByEncounter(s.ctx, "enc-none")
	s.Require().NoError(err)
	s.Zero(cancelled)
}
