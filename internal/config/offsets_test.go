package config

import (
	"os"
	"path/filepath"
	"testing"

	"viaduct/source/kafka"
)

func TestLoadOffsetTrack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "offsets.yml")
	body := `- { cluster: "kafka-a:9092", topic: orders, partition: 0, offset: 1200 }
- { cluster: "kafka-b:9092", topic: returns, partition: 3, offset: 42 }
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write offsets.yml: %v", err)
	}

	track, err := LoadOffsetTrack(path)
	if err != nil {
		t.Fatalf("LoadOffsetTrack: %v", err)
	}
	if len(track) != 2 {
		t.Fatalf("loaded %d entries, want 2", len(track))
	}
	a := kafka.PartitionMeta{Cluster: "kafka-a:9092", Topic: "orders", Partition: 0}
	if track[a] != 1200 {
		t.Fatalf("offset for %s = %d, want 1200", a, track[a])
	}
	b := kafka.PartitionMeta{Cluster: "kafka-b:9092", Topic: "returns", Partition: 3}
	if track[b] != 42 {
		t.Fatalf("offset for %s = %d, want 42", b, track[b])
	}
}

func TestLoadOffsetTrack_MissingFileIsEmpty(t *testing.T) {
	track, err := LoadOffsetTrack(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("LoadOffsetTrack: %v", err)
	}
	if len(track) != 0 {
		t.Fatalf("expected empty snapshot, got %v", track)
	}
}

func TestLoadOffsetTrack_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "offsets.yml")
	if err := os.WriteFile(path, []byte("not: a: list"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadOffsetTrack(path); err == nil {
		t.Fatal("expected error for malformed snapshot")
	}
}
