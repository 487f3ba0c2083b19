package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestWorkItemSnapshotsMigration(t *testing.T) {
	content := readMigration(t, "*_create_work_item_snapshots.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS work_item_snapshots",
		"document JSONB NOT NULL",
		"idx_work_item_snapshots_owner_id",
		"DROP TABLE IF EXISTS work_item_snapshots",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestNotificationsMigration(t *testing.T) {
	content := readMigration(t, "*_create_notifications.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS notifications",
		"CONSTRAINT uq_notifications_event_id UNIQUE (event_id)",
		"idx_notifications_work_item_id",
		"DROP TABLE IF EXISTS notifications",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
