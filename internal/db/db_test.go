package db

import (
	"os"
	"testing"
	"time"
)

func getTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}
	database, err := Connect(dsn)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	t.Cleanup(func() {
		database.conn.Exec("DELETE FROM usage_events")
		database.Close()
	})
	return database
}

func TestConnect(t *testing.T) {
	database := getTestDB(t)
	if err := database.Ping(); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}

func TestMigrate(t *testing.T) {
	database := getTestDB(t)

	var exists bool
	err := database.conn.QueryRow(`
		SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'usage_events')
	`).Scan(&exists)
	if err != nil {
		t.Fatalf("checking usage_events: %v", err)
	}
	if !exists {
		t.Error("table usage_events does not exist")
	}
}

func TestBatchRecordEvents(t *testing.T) {
	database := getTestDB(t)

	now := time.Now()
	events := []UsageEvent{
		{SessionCode: "ABC234", Event: EventSessionCreated, CreatedAt: now},
		{SessionCode: "ABC234", Event: EventTTSRequest, Provider: "elevenlabs", CacheHit: false, Status: 200, DurationMs: 420, CreatedAt: now},
		{SessionCode: "ABC234", Event: EventTTSRequest, Provider: "elevenlabs", CacheHit: true, Status: 200, CreatedAt: now},
	}
	if err := database.BatchRecordEvents(events); err != nil {
		t.Fatalf("BatchRecordEvents() error: %v", err)
	}

	var count int
	database.conn.QueryRow("SELECT COUNT(*) FROM usage_events WHERE session_code = 'ABC234'").Scan(&count)
	if count != 3 {
		t.Errorf("event count = %d, want 3", count)
	}

	var hits int
	database.conn.QueryRow(`SELECT COUNT(*) FILTER (WHERE cache_hit)
		FROM usage_events WHERE session_code = 'ABC234' AND event = $1`, EventTTSRequest).Scan(&hits)
	if hits != 1 {
		t.Errorf("cache hits = %d, want 1", hits)
	}
}

func TestBatchRecordEvents_Empty(t *testing.T) {
	database := &DB{}
	if err := database.BatchRecordEvents(nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}
}
