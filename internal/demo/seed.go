package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/Alp4ka/gotable"
)

// Migrate creates the sample tables and the profile table.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&Host{}, &Event{}); err != nil {
		return fmt.Errorf("migrate events: %w", err)
	}

	return gotable.NewGormProfileStore(db).Migrate(ctx)
}

// Seed inserts n sample events unless the table already has rows.
func Seed(ctx context.Context, db *gorm.DB, n int) error {
	db = db.WithContext(ctx)

	var count int64
	if err := db.Model(&Event{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count events: %w", err)
	}

	if count > 0 {
		return nil
	}

	hosts := []Host{{Name: "alpha"}, {Name: "bravo"}, {Name: "charlie"}}
	if err := db.Create(&hosts).Error; err != nil {
		return fmt.Errorf("seed hosts: %w", err)
	}

	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	events := make([]Event, 0, n)
	for i := range n {
		kind := Kinds[i%len(Kinds)]
		event := Event{
			Title:      fmt.Sprintf("%s #%d", kind, i+1),
			Kind:       kind,
			Severity:   i % 5,
			HostID:     lo.ToPtr(hosts[i%len(hosts)].ID),
			HappenedAt: start.Add(time.Duration(i) * time.Hour),
		}
		if i%3 != 0 {
			event.Acknowledged = lo.ToPtr(i%3 == 1)
		}
		events = append(events, event)
	}

	if err := db.CreateInBatches(&events, 100).Error; err != nil {
		return fmt.Errorf("seed events: %w", err)
	}

	return nil
}
