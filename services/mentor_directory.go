package services

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/anjiri1684/career_mentor/database"
	"github.com/anjiri1684/career_mentor/metrics"
	"github.com/anjiri1684/career_mentor/models"
	"github.com/anjiri1684/career_mentor/utils"
)

const (
	activeMentorsKey   = "mentors:active"
	activeMentorsLimit = 5
	activeMentorsTTL   = 5 * time.Minute
)

type MentorQuerier interface {
	QueryMentors(ctx context.Context, q database.MentorQuery) (iter.Seq2[models.Mentor, error], error)
}

type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// MentorDirectory lists active mentors, read through an optional cache.
type MentorDirectory struct {
	store   MentorQuerier
	cache   Cache
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewMentorDirectory(store MentorQuerier, cache Cache, m *metrics.Metrics, log *slog.Logger) *MentorDirectory {
	return &MentorDirectory{store: store, cache: cache, metrics: m, log: log}
}

func (d *MentorDirectory) ActiveMentors(ctx context.Context) ([]models.Mentor, error) {
	if d.cache != nil {
		var cached []models.Mentor
		found, err := d.cache.Get(ctx, activeMentorsKey, &cached)
		if err != nil {
			d.log.WarnContext(ctx, "mentor cache read failed", utils.ErrAttr(err))
		}
		d.metrics.CacheLookup(found)
		if found {
			return cached, nil
		}
	}

	seq, err := d.store.QueryMentors(ctx, database.MentorQuery{
		Status:  models.MentorActive,
		OrderBy: "registered_at",
		Limit:   activeMentorsLimit,
	})
	if err != nil {
		return nil, err
	}
	mentors := make([]models.Mentor, 0, activeMentorsLimit)
	for mentor, err := range seq {
		if err != nil {
			return nil, err
		}
		mentors = append(mentors, mentor)
	}

	if d.cache != nil {
		if err := d.cache.Set(ctx, activeMentorsKey, mentors, activeMentorsTTL); err != nil {
			d.log.WarnContext(ctx, "mentor cache write failed", utils.ErrAttr(err))
		}
	}
	return mentors, nil
}

func (d *MentorDirectory) Invalidate(ctx context.Context) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Invalidate(ctx, activeMentorsKey); err != nil {
		d.log.WarnContext(ctx, "mentor cache invalidation failed", utils.ErrAttr(err))
	}
}
