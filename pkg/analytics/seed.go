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

package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

var (
	seedApps = []struct {
		name     string
		platform string
	}{
		{"Paint for Android", "Android"},
		{"Paint iOS", "iOS"},
		{"Countdown iOS", "iOS"},
		{"Countdown Android", "Android"},
		{"Flashlight Pro", "Android"},
		{"Weather Now", "iOS"},
		{"Weather Now Android", "Android"},
		{"Habit Tracker", "iOS"},
	}

	seedCountries = []string{"USA", "UK", "Germany", "Brazil", "India", "Japan"}
)

// Seed creates the app_metrics table and fills it with deterministic
// sample data covering days daily rows per app and country. Opens its own
// writable connection; the serving gateway stays read-only.
func Seed(ctx context.Context, driver, dsn string, days int, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if days <= 0 {
		days = 60
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open analytics database for seeding: %w", err)
	}
	defer db.Close()

	createSQL := `
		CREATE TABLE IF NOT EXISTS app_metrics (
			app_name VARCHAR(128) NOT NULL,
			platform VARCHAR(16) NOT NULL,
			date DATE NOT NULL,
			country VARCHAR(64) NOT NULL,
			installs INTEGER NOT NULL,
			in_app_revenue DECIMAL(12,2) NOT NULL,
			ads_revenue DECIMAL(12,2) NOT NULL,
			ua_cost DECIMAL(12,2) NOT NULL
		)
	`
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create app_metrics: %w", err)
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM app_metrics"); err != nil {
		return fmt.Errorf("failed to clear app_metrics: %w", err)
	}

	placeholder := func(i int) string {
		if driver == "mysql" {
			return "?"
		}
		return fmt.Sprintf("$%d", i)
	}
	insertSQL := fmt.Sprintf(`
		INSERT INTO app_metrics (app_name, platform, date, country, installs, in_app_revenue, ads_revenue, ua_cost)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s)
	`, placeholder(1), placeholder(2), placeholder(3), placeholder(4),
		placeholder(5), placeholder(6), placeholder(7), placeholder(8))

	stmt, err := db.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	// Fixed seed keeps reseeded environments comparable.
	rng := rand.New(rand.NewSource(42))
	start := time.Now().UTC().AddDate(0, 0, -days)
	rowCount := 0

	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d).Format("2006-01-02")
		for _, app := range seedApps {
			for _, country := range seedCountries {
				installs := 50 + rng.Intn(500)
				inApp := float64(installs) * (0.05 + rng.Float64()*0.30)
				ads := float64(installs) * (0.02 + rng.Float64()*0.15)
				uaCost := float64(installs) * (0.03 + rng.Float64()*0.25)
				if _, err := stmt.ExecContext(ctx, app.name, app.platform, date, country,
					installs, round2(inApp), round2(ads), round2(uaCost)); err != nil {
					return fmt.Errorf("failed to insert seed row: %w", err)
				}
				rowCount++
			}
		}
	}

	logger.Info("app_metrics seeded",
		zap.Int("rows", rowCount),
		zap.Int("days", days),
		zap.Int("apps", len(seedApps)),
	)
	return nil
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}
