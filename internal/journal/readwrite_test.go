package journal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/roach88/tca/internal/ident"
)

func TestCreateSession_RoundTrip(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	sess, err := j.CreateSession(ctx, "counter", "timer.yaml", map[string]int{"count": 3})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	if sess.ID.Version() != 7 {
		t.Errorf("session id version = %d, want 7", sess.ID.Version())
	}

	got, err := j.Session(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Session() failed: %v", err)
	}
	if got.Feature != "counter" || got.Scenario != "timer.yaml" {
		t.Errorf("Session() = %+v", got)
	}
	if string(got.InitialState) != `{"count":3}` {
		t.Errorf("initial state = %s", got.InitialState)
	}
	if !got.CreatedAt.Equal(sess.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, sess.CreatedAt)
	}
}

func TestSession_NotFound(t *testing.T) {
	j := createTestJournal(t)

	_, err := j.Session(context.Background(), ident.Sequential(1))
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Session() error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessions_OrderedByID(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	var want []string
	for _, f := range []string{"counter", "todos", "search"} {
		sess, err := j.CreateSession(ctx, f, "", struct{}{})
		if err != nil {
			t.Fatalf("CreateSession() failed: %v", err)
		}
		want = append(want, sess.ID.String())
	}

	sessions, err := j.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions() failed: %v", err)
	}
	if len(sessions) != len(want) {
		t.Fatalf("Sessions() returned %d, want %d", len(sessions), len(want))
	}
	for i, s := range sessions {
		if s.ID.String() != want[i] {
			t.Errorf("sessions[%d] = %s, want %s", i, s.ID, want[i])
		}
	}
}

func TestSessions_EmptyNotNil(t *testing.T) {
	j := createTestJournal(t)

	sessions, err := j.Sessions(context.Background())
	if err != nil {
		t.Fatalf("Sessions() failed: %v", err)
	}
	if sessions == nil {
		t.Error("Sessions() returned nil, want empty slice")
	}
}

func TestAppendEntry_OrderAndIdempotency(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	sess, err := j.CreateSession(ctx, "counter", "", map[string]int{"count": 0})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}

	entry := func(seq int64, label, state string) Entry {
		return Entry{
			SessionID: sess.ID,
			Seq:       seq,
			Origin:    "external",
			Label:     label,
			Action:    json.RawMessage(`{"type":"` + label + `"}`),
			State:     json.RawMessage(state),
		}
	}

	// Written out of order; read back by seq.
	for _, e := range []Entry{
		entry(2, "IncrementTapped", `{"count":2}`),
		entry(1, "IncrementTapped", `{"count":1}`),
		entry(3, "DecrementTapped", `{"count":1}`),
		entry(1, "DecrementTapped", `{"count":-1}`),
	} {
		if err := j.AppendEntry(ctx, e); err != nil {
			t.Fatalf("AppendEntry(%d) failed: %v", e.Seq, err)
		}
	}

	entries, err := j.Entries(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Entries() failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Entries() returned %d, want 3", len(entries))
	}
	for i, e := range entries {
		if e.Seq != int64(i+1) {
			t.Errorf("entries[%d].Seq = %d", i, e.Seq)
		}
	}
	if string(entries[0].State) != `{"count":1}` {
		t.Errorf("duplicate seq overwrote entry: %s", entries[0].State)
	}

	counts, err := j.LabelCounts(ctx, sess.ID)
	if err != nil {
		t.Fatalf("LabelCounts() failed: %v", err)
	}
	want := []LabelCount{{"DecrementTapped", 1}, {"IncrementTapped", 2}}
	if len(counts) != len(want) {
		t.Fatalf("LabelCounts() = %v, want %v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("LabelCounts()[%d] = %v, want %v", i, counts[i], want[i])
		}
	}
}

func TestAppendEntry_RequiresSession(t *testing.T) {
	j := createTestJournal(t)

	err := j.AppendEntry(context.Background(), Entry{
		SessionID: ident.Sequential(9),
		Seq:       1,
		Origin:    "external",
		Label:     "IncrementTapped",
		Action:    json.RawMessage(`{"type":"IncrementTapped"}`),
		State:     json.RawMessage(`{}`),
	})
	if err == nil {
		t.Error("expected foreign key violation")
	}
}

func TestAppendEntry_RejectsUnknownOrigin(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	sess, err := j.CreateSession(ctx, "counter", "", struct{}{})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	err = j.AppendEntry(ctx, Entry{
		SessionID: sess.ID,
		Seq:       1,
		Origin:    "unknown",
		Label:     "IncrementTapped",
		Action:    json.RawMessage(`{}`),
		State:     json.RawMessage(`{}`),
	})
	if err == nil {
		t.Error("expected check constraint violation")
	}
}

func TestDeleteSession_Cascades(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	sess, err := j.CreateSession(ctx, "counter", "", struct{}{})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	if err := j.AppendEntry(ctx, Entry{
		SessionID: sess.ID, Seq: 1, Origin: "external", Label: "IncrementTapped",
		Action: json.RawMessage(`{}`), State: json.RawMessage(`{}`),
	}); err != nil {
		t.Fatalf("AppendEntry() failed: %v", err)
	}

	if err := j.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("DeleteSession() failed: %v", err)
	}
	var n int
	if err := j.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if n != 0 {
		t.Errorf("%d entries survived session delete", n)
	}

	if err := j.DeleteSession(ctx, sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second DeleteSession() error = %v, want ErrSessionNotFound", err)
	}
}
