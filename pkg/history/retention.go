// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package history

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RetentionJob periodically deletes turns older than the retention window.
type RetentionJob struct {
	store  *SQLiteStore
	maxAge time.Duration
	cron   *cron.Cron
	logger *zap.Logger
}

// NewRetentionJob creates a job that runs hourly deleting turns older
// than maxAge.
func NewRetentionJob(store *SQLiteStore, maxAge time.Duration, logger *zap.Logger) *RetentionJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionJob{
		store:  store,
		maxAge: maxAge,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start schedules and starts the cleanup job.
func (j *RetentionJob) Start() error {
	_, err := j.cron.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := j.store.CleanupOlderThan(ctx, j.maxAge); err != nil {
			j.logger.Warn("history retention cleanup failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// Stop stops the scheduler; running cleanups complete.
func (j *RetentionJob) Stop() {
	j.cron.Stop()
}
