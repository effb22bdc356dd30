package ledger

import "testing"

func TestOpenRunsMigrationsAndRecordsEvents(t *testing.T) {
	l, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	l.RecordEvent(7, ClientConnected, "remote=127.0.0.1:9000")
	l.RecordEvent(7, ClientDisconnected, "reason=eof")
	l.RecordEvent(8, FrameRejected, "width=5000")

	n, err := l.EventCount()
	if err != nil {
		t.Fatalf("EventCount: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 events, got %d", n)
	}

	events, err := l.RecentEvents("", 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 3 || events[0].Kind != FrameRejected {
		t.Fatalf("expected most recent first = FrameRejected, got %+v", events)
	}
}

func TestRecentEventsFiltersByKind(t *testing.T) {
	l, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	l.RecordEvent(1, ClientConnected, "")
	l.RecordEvent(2, ClientConnected, "")
	l.RecordEvent(1, ClientDisconnected, "")

	events, err := l.RecentEvents(ClientConnected, 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 connected events, got %d", len(events))
	}
}

func TestReopenPreservesAppliedMigrationVersion(t *testing.T) {
	path := t.TempDir() + "/ledger.db"
	l1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	l1.RecordEvent(1, ClientConnected, "")
	if err := l1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	l2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()
	n, err := l2.EventCount()
	if err != nil {
		t.Fatalf("EventCount: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected event to persist across reopen, got count %d", n)
	}
}

func TestNoopSinkDiscardsEvents(t *testing.T) {
	var sink EventSink = NoopSink{}
	sink.RecordEvent(1, ClientConnected, "")
}
