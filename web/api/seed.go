package api

import (
	"fmt"
	"os"

	"axiapac.com/timeclock/model"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type jobsFile struct {
	Jobs []model.Job `yaml:"jobs"`
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.ReceivedPunch{}, &model.Job{}); err != nil {
		return fmt.Errorf("migrate receiver schema: %w", err)
	}
	return nil
}

// LoadJobs reads a YAML document of the form `jobs: [...]`.
func LoadJobs(path string) ([]model.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read jobs file: %w", err)
	}

	var parsed jobsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal jobs file %s: %w", path, err)
	}
	for i, j := range parsed.Jobs {
		if j.ID == "" {
			return nil, fmt.Errorf("jobs file %s: job %d has no id", path, i)
		}
	}
	return parsed.Jobs, nil
}

// SeedJobs upserts jobs by id.
func SeedJobs(db *gorm.DB, jobs []model.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).CreateInBatches(jobs, 100).Error
}
