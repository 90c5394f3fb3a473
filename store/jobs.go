package store

import (
	"context"
	"fmt"

	"axiapac.com/timeclock/model"
	"axiapac.com/timeclock/utils"
	"gorm.io/gorm"
)

// CacheJobs replaces the cached job list and stamps each row with cached_at.
func (s *Store) CacheJobs(ctx context.Context, jobs []model.Job) error {
	ts := s.stamp()
	rows := utils.Map(jobs, func(j model.Job) model.Job {
		j.CachedAt = ts
		return j
	})

	return s.tx(ctx, func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Job{}).Error; err != nil {
			return fmt.Errorf("clear job cache: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			return fmt.Errorf("write job cache: %w", err)
		}
		return nil
	})
}

func (s *Store) GetCachedJobs(ctx context.Context) ([]model.Job, error) {
	var jobs []model.Job
	err := s.tx(ctx, func(tx *gorm.DB) error {
		return tx.Order("name ASC, id ASC").Find(&jobs).Error
	})
	if err != nil {
		return nil, fmt.Errorf("get cached jobs: %w", err)
	}
	return jobs, nil
}

// GetCachedJob returns nil, nil when the job is not cached.
func (s *Store) GetCachedJob(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	err := s.tx(ctx, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).First(&job).Error
	})
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached job %s: %w", id, err)
	}
	return &job, nil
}
