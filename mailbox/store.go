// Package mailbox owns the authoritative in-memory copies of users and
// messages for one client session. The message log is append-only and keeps
// insertion order; conversations are derived elsewhere, never stored here.
package mailbox

import (
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"team-mail/domain"
)

type Store struct {
	mu sync.RWMutex

	users map[string]domain.User
	log   []domain.Message
	// byID maps a message id to its position in the log so remote copies
	// of optimistically appended messages reconcile in place.
	byID map[string]int

	// lastRead tracks, per peer, the instant the conversation was last
	// opened. Used for unread badges only.
	lastRead map[string]time.Time

	// pendingProfile marks users with an unacknowledged local profile edit.
	// Remote merges must not clobber the edited field while set.
	pendingProfile map[string]bool

	version uint64
}

func NewStore() *Store {
	return &Store{
		users:          make(map[string]domain.User),
		byID:           make(map[string]int),
		lastRead:       make(map[string]time.Time),
		pendingProfile: make(map[string]bool),
	}
}

// Version increments on every mutation. Consumers caching derived views
// can use it for exact invalidation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// UpsertUser inserts or replaces a user record from a local command.
// Presence fields are preserved unless the incoming record carries a
// strictly fresher LastSeen, keeping LastSeen monotonic per user.
func (s *Store) UpsertUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.users[u.ID]; ok && !u.LastSeen.After(existing.LastSeen) {
		u.IsOnline = existing.IsOnline
		u.LastSeen = existing.LastSeen
	}
	s.users[u.ID] = u
	s.version++
}

// ApplyRemoteUser merges a remotely observed user record. The remote value
// wins on every field, presence verbatim, except a display name carrying an
// unacknowledged local edit.
func (s *Store) ApplyRemoteUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.users[u.ID]; ok && s.pendingProfile[u.ID] {
		u.DisplayName = existing.DisplayName
	}
	s.users[u.ID] = u
	s.version++
}

// SetPresence overwrites a user's presence with a remote observation.
func (s *Store) SetPresence(id string, online bool, lastSeen time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return
	}
	s.users[id] = u.WithPresence(online, lastSeen)
	s.version++
}

// MarkProfilePending flags a user as having a local profile edit in flight.
func (s *Store) MarkProfilePending(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingProfile[id] = true
}

// ClearProfilePending removes the in-flight edit marker.
func (s *Store) ClearProfilePending(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pendingProfile, id)
}

// RemoveUser deletes the user record. Messages referencing the id are kept:
// history survives with a "former user" reference and consumers must
// tolerate sender or recipient ids with no matching current user.
func (s *Store) RemoveUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, id)
	delete(s.lastRead, id)
	delete(s.pendingProfile, id)
	s.version++
}

// AppendMessage validates and appends a locally created message at the end
// of the log. Existing entries are never reordered.
func (s *Store) AppendMessage(m domain.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[m.ID] = len(s.log)
	s.log = append(s.log, m)
	s.version++
	return nil
}

// MergeRemoteMessage folds a remotely observed message into the log,
// deduplicating by id. A known id is reconciled in place with the remote
// copy winning on field conflicts while the log position is preserved. An
// unknown id is appended with its remote-declared id and timestamp intact.
// Returns true when the message was new to the store.
func (s *Store) MergeRemoteMessage(m domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pos, ok := s.byID[m.ID]; ok {
		s.log[pos] = m
		s.version++
		return false
	}
	s.byID[m.ID] = len(s.log)
	s.log = append(s.log, m)
	s.version++
	return true
}

// ReconcileAck rebinds an optimistically appended message to the identity
// the remote assigned on acknowledgment. The entry keeps its log position.
// When a sync pull already merged the committed copy under remoteID before
// the ack arrived, the optimistic entry is dropped instead: the log must
// never hold two entries with the same id.
func (s *Store) ReconcileAck(localID, remoteID string, remoteTS time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.byID[localID]
	if !ok {
		return
	}

	if _, merged := s.byID[remoteID]; merged && localID != remoteID {
		s.log = append(s.log[:pos], s.log[pos+1:]...)
		delete(s.byID, localID)
		for id, p := range s.byID {
			if p > pos {
				s.byID[id] = p - 1
			}
		}
		s.version++
		return
	}

	m := s.log[pos]
	m.ID = remoteID
	if !remoteTS.IsZero() {
		m.Timestamp = remoteTS
	}
	s.log[pos] = m
	delete(s.byID, localID)
	s.byID[remoteID] = pos
	s.version++
}

// HasMessage reports whether a message id is present in the log.
func (s *Store) HasMessage(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

// Messages returns a snapshot of the log in insertion order.
func (s *Store) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Message, len(s.log))
	copy(out, s.log)
	return out
}

// User looks up a single record by id.
func (s *Store) User(id string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// Users returns all known users ordered by id.
func (s *Store) Users() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := lo.Values(s.users)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OtherUsers returns every known user except selfID, ordered by id.
// This is the set a broadcast with no explicit recipients freezes at send.
func (s *Store) OtherUsers(selfID string) []domain.User {
	return lo.Filter(s.Users(), func(u domain.User, _ int) bool {
		return u.ID != selfID
	})
}

// OwnerCount reports how many owner accounts are currently known.
func (s *Store) OwnerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.CountBy(lo.Values(s.users), domain.User.IsOwner)
}

// MarkRead records the newest message timestamp observed from peerID at the
// moment the conversation view was opened. Anchoring the mark to remote
// timestamps rather than the local clock keeps unread counts immune to
// skew between the server and this machine.
func (s *Store) MarkRead(selfID, peerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var newest time.Time
	for _, m := range s.log {
		if m.FromUserID == peerID && lo.Contains(m.To, selfID) && m.Timestamp.After(newest) {
			newest = m.Timestamp
		}
	}
	s.lastRead[peerID] = newest
	s.version++
}

// UnreadFrom counts messages sent by peerID to selfID after the
// conversation was last opened.
func (s *Store) UnreadFrom(selfID, peerID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	since := s.lastRead[peerID]
	return lo.CountBy(s.log, func(m domain.Message) bool {
		return m.FromUserID == peerID &&
			lo.Contains(m.To, selfID) &&
			m.Timestamp.After(since)
	})
}
