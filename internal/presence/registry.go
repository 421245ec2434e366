// Package presence tracks which users currently hold an open connection.
//
// The registry is the single owner of the online flag: a user is online iff
// the registry maps their id to a live connection handle. The account store
// mirrors the flag and last-seen time so HTTP listings sort the same way as
// broadcast snapshots.
package presence

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"chathub/pkg/domain"
)

// ErrUserNotFound is returned when the target of MarkOnline does not resolve
// in the account store.
var ErrUserNotFound = errors.New("presence: user not found")

// AccountStore is the narrow account contract the registry consumes.
type AccountStore interface {
	GetUserByID(id string) (domain.User, bool, error)
	ListUsers() ([]domain.User, error)
	SetPresence(id string, online bool, lastSeen time.Time) error
}

// Registry is the process-wide presence table. It is created once at startup,
// injected into the connection hub, and torn down with the process. All
// methods are safe for concurrent use; online flag and connection handle are
// updated under one lock so they can never disagree.
type Registry struct {
	mu       sync.Mutex
	accounts AccountStore
	conns    map[string]any // userID -> opaque connection handle
}

// NewRegistry builds an empty registry over the given account store.
func NewRegistry(accounts AccountStore) *Registry {
	return &Registry{
		accounts: accounts,
		conns:    make(map[string]any),
	}
}

// MarkOnline records the user as online, owned by conn. Returns
// ErrUserNotFound when the account store has no such user; the caller should
// log and carry on rather than drop the connection.
func (r *Registry) MarkOnline(userID string, conn any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok, err := r.accounts.GetUserByID(userID)
	if err != nil {
		return fmt.Errorf("look up user %s: %w", userID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	if err := r.accounts.SetPresence(userID, true, time.Now().UTC()); err != nil {
		return fmt.Errorf("persist presence for %s: %w", userID, err)
	}
	r.conns[userID] = conn
	return nil
}

// MarkOffline clears the user's online state regardless of which connection
// owns it. Idempotent: a second call is a no-op.
func (r *Registry) MarkOffline(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[userID]; !ok {
		return nil
	}
	delete(r.conns, userID)
	if err := r.accounts.SetPresence(userID, false, time.Now().UTC()); err != nil {
		return fmt.Errorf("persist presence for %s: %w", userID, err)
	}
	return nil
}

// ReleaseConnection marks the user offline only when conn still owns their
// online state. A close racing a re-identify on a fresh connection therefore
// cannot knock the user offline. Returns whether the user transitioned.
func (r *Registry) ReleaseConnection(userID string, conn any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.conns[userID]
	if !ok || current != conn {
		return false, nil
	}
	delete(r.conns, userID)
	if err := r.accounts.SetPresence(userID, false, time.Now().UTC()); err != nil {
		return true, fmt.Errorf("persist presence for %s: %w", userID, err)
	}
	return true, nil
}

// Snapshot returns every user's presence summary, online users first, each
// group sorted by display name ascending. The registry's connection table is
// the truth for the online flag.
func (r *Registry) Snapshot() ([]domain.UserSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users, err := r.accounts.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	summaries := make([]domain.UserSummary, 0, len(users))
	for _, u := range users {
		_, online := r.conns[u.ID]
		u.Online = online
		summaries = append(summaries, u.Summary())
	}
	sortSummaries(summaries)
	return summaries, nil
}

// sortSummaries orders online first, then name ascending; stable so equal
// names keep the store's order.
func sortSummaries(s []domain.UserSummary) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Online != s[j].Online {
			return s[i].Online
		}
		return s[i].Name < s[j].Name
	})
}
