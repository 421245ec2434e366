package store

import (
	"testing"
	"time"

	"chathub/pkg/domain"
)

func seedUser(t *testing.T, m *MemoryStore, id, name, email string) {
	t.Helper()
	if err := m.SaveUser(domain.User{ID: id, Name: name, Email: email}); err != nil {
		t.Fatalf("SaveUser(%s): %v", id, err)
	}
}

func TestMemoryStoreUserLookup(t *testing.T) {
	m := NewMemoryStore()
	seedUser(t, m, "u1", "Alice", "alice@example.com")

	ok, err := m.HasUserEmail("alice@example.com")
	if err != nil || !ok {
		t.Fatalf("HasUserEmail = %v, %v", ok, err)
	}
	u, ok, err := m.GetUserByEmail("alice@example.com")
	if err != nil || !ok || u.ID != "u1" {
		t.Fatalf("GetUserByEmail = %+v, %v, %v", u, ok, err)
	}
	if _, ok, _ := m.GetUserByID("missing"); ok {
		t.Fatal("GetUserByID found missing user")
	}
}

func TestMemoryStoreSaveUserReplacesEmailIndex(t *testing.T) {
	m := NewMemoryStore()
	seedUser(t, m, "u1", "Alice", "alice@example.com")
	seedUser(t, m, "u1", "Alice", "alice2@example.com")

	if ok, _ := m.HasUserEmail("alice@example.com"); ok {
		t.Fatal("stale email still indexed after update")
	}
	if ok, _ := m.HasUserEmail("alice2@example.com"); !ok {
		t.Fatal("new email not indexed")
	}
}

func TestMemoryStoreListUsersOrder(t *testing.T) {
	m := NewMemoryStore()
	seedUser(t, m, "u1", "Zoe", "zoe@example.com")
	seedUser(t, m, "u2", "Alice", "alice@example.com")
	seedUser(t, m, "u3", "Bob", "bob@example.com")
	if err := m.SetPresence("u1", true, time.Now()); err != nil {
		t.Fatalf("SetPresence: %v", err)
	}

	users, err := m.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	got := make([]string, 0, len(users))
	for _, u := range users {
		got = append(got, u.Name)
	}
	want := []string{"Zoe", "Alice", "Bob"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestMemoryStoreSetPresenceUnknownUser(t *testing.T) {
	m := NewMemoryStore()
	if err := m.SetPresence("nope", true, time.Now()); err == nil {
		t.Fatal("expected error for unknown user")
	}
}

func TestMemoryStoreMessagesLifecycle(t *testing.T) {
	m := NewMemoryStore()

	first, err := m.AppendMessage(domain.Message{RoomID: "a_b", SenderID: "a", ReceiverID: "b", Body: "hello"})
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	second, err := m.AppendMessage(domain.Message{RoomID: "a_b", SenderID: "b", ReceiverID: "a", Body: "hi"})
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if _, err := m.AppendMessage(domain.Message{RoomID: "a_c", SenderID: "a", ReceiverID: "c", Body: "other room"}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	if first.ID == 0 || second.ID <= first.ID {
		t.Fatalf("ids not increasing: %d then %d", first.ID, second.ID)
	}
	if first.CreatedAt.IsZero() {
		t.Fatal("CreatedAt not assigned")
	}

	history, err := m.RoomHistory("a_b")
	if err != nil {
		t.Fatalf("RoomHistory: %v", err)
	}
	if len(history) != 2 || history[0].ID != first.ID || history[1].ID != second.ID {
		t.Fatalf("history = %+v", history)
	}

	removed, err := m.DeleteMessage(first.ID)
	if err != nil || !removed {
		t.Fatalf("DeleteMessage = %v, %v", removed, err)
	}
	removed, err = m.DeleteMessage(first.ID)
	if err != nil || removed {
		t.Fatalf("second DeleteMessage = %v, %v", removed, err)
	}

	history, _ = m.RoomHistory("a_b")
	if len(history) != 1 || history[0].ID != second.ID {
		t.Fatalf("history after delete = %+v", history)
	}
}

func TestMemoryStoreRoomHistoryEmptyRoom(t *testing.T) {
	m := NewMemoryStore()
	history, err := m.RoomHistory("nobody_here")
	if err != nil {
		t.Fatalf("RoomHistory: %v", err)
	}
	if history == nil || len(history) != 0 {
		t.Fatalf("history = %#v, want empty non-nil slice", history)
	}
}
