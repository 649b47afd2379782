package store

import (
	"errors"
	"testing"

	"CirclePool/internal/circle"
)

func testPubkey(n byte) circle.PubKey {
	var pk circle.PubKey
	pk[0] = 0x02
	pk[1] = n
	return pk
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})

	return st
}

func newTestState(t *testing.T, id byte) *circle.CircleState {
	t.Helper()

	s := circle.New([32]byte{id}, 100_000, 2_592_000, 1_234_567_890)
	if err := s.AddMember(testPubkey(1), 0, 1_234_567_890); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if err := s.AddMember(testPubkey(2), 1, 1_234_567_891); err != nil {
		t.Fatalf("add member: %v", err)
	}

	return s
}

func TestPutGetState(t *testing.T) {
	st := openTestStore(t)
	s := newTestState(t, 1)

	if err := st.PutState(s); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := st.GetState(s.CircleID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.StateHash() != s.StateHash() {
		t.Error("state hash changed through the store")
	}
	if len(got.Members) != 2 {
		t.Errorf("members = %d, want 2", len(got.Members))
	}
}

func TestGetStateMissing(t *testing.T) {
	st := openTestStore(t)

	if _, err := st.GetState([32]byte{9}); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestHistoryRetainsOldStates(t *testing.T) {
	st := openTestStore(t)
	s := newTestState(t, 1)

	if err := st.PutState(s); err != nil {
		t.Fatalf("put initial: %v", err)
	}
	initialHash := s.StateHash()

	for i := byte(1); i <= 2; i++ {
		if err := s.RecordContribution(testPubkey(i), 100_000, 1_234_567_900, [32]byte{i}); err != nil {
			t.Fatalf("contribute %d: %v", i, err)
		}
	}
	if err := st.PutState(s); err != nil {
		t.Fatalf("put funded: %v", err)
	}

	// The latest state reflects the contributions.
	latest, err := st.GetState(s.CircleID)
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest.CurrentPool != 200_000 {
		t.Errorf("latest pool = %d, want 200000", latest.CurrentPool)
	}

	// The initial state is still reachable through history.
	old, err := st.GetHistorical(s.CircleID, initialHash)
	if err != nil {
		t.Fatalf("get historical: %v", err)
	}
	if old.CurrentPool != 0 {
		t.Errorf("historical pool = %d, want 0", old.CurrentPool)
	}

	if _, err := st.GetHistorical(s.CircleID, [32]byte{0xde, 0xad}); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound for unknown hash", err)
	}
}

func TestListCircles(t *testing.T) {
	st := openTestStore(t)

	for id := byte(1); id <= 3; id++ {
		if err := st.PutState(newTestState(t, id)); err != nil {
			t.Fatalf("put circle %d: %v", id, err)
		}
	}

	ids, err := st.ListCircles()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("circles = %d, want 3", len(ids))
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	st, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	s := newTestState(t, 1)
	if err := st.PutState(s); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	st2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()

	got, err := st2.GetState(s.CircleID)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.StateHash() != s.StateHash() {
		t.Error("state changed across reopen")
	}
}
