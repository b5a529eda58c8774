package mailbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"team-mail/domain"
	"team-mail/errors"
)

func message(id, from string, to []string, content string, at time.Time) domain.Message {
	return domain.Message{ID: id, FromUserID: from, To: to, Content: content, Timestamp: at}
}

func TestStore_AppendMessage_Validation(t *testing.T) {
	now := time.Now().UTC()

	t.Run("should reject empty recipient set", func(t *testing.T) {
		req := require.New(t)
		s := NewStore()
		err := s.AppendMessage(message("m1", "anna", nil, "hi", now))
		req.ErrorIs(err, errors.ErrValidation)
		req.Empty(s.Messages())
	})

	t.Run("should reject blank content without attachments", func(t *testing.T) {
		req := require.New(t)
		s := NewStore()
		err := s.AppendMessage(message("m1", "anna", []string{"boris"}, "", now))
		req.ErrorIs(err, errors.ErrValidation)
	})

	t.Run("should keep insertion order", func(t *testing.T) {
		req := require.New(t)
		s := NewStore()
		req.NoError(s.AppendMessage(message("m1", "anna", []string{"boris"}, "one", now)))
		req.NoError(s.AppendMessage(message("m2", "anna", []string{"boris"}, "two", now)))
		req.NoError(s.AppendMessage(message("m3", "boris", []string{"anna"}, "three", now)))

		got := s.Messages()
		req.Len(got, 3)
		req.Equal([]string{"m1", "m2", "m3"}, []string{got[0].ID, got[1].ID, got[2].ID})
	})
}

func TestStore_UpsertUser_PresenceIsMonotonic(t *testing.T) {
	req := require.New(t)
	s := NewStore()
	seen := time.Now().UTC()

	s.UpsertUser(domain.User{ID: "u1", Email: "anna@corp.local", FirstName: "Anna", IsOnline: true, LastSeen: seen})

	// A later local upsert without fresher presence must not regress it.
	s.UpsertUser(domain.User{ID: "u1", Email: "anna@corp.local", FirstName: "Anna", DisplayName: "Anya"})

	u, ok := s.User("u1")
	req.True(ok)
	req.Equal("Anya", u.DisplayName)
	req.True(u.IsOnline)
	req.Equal(seen, u.LastSeen)

	// Fresher presence wins.
	later := seen.Add(time.Minute)
	s.UpsertUser(domain.User{ID: "u1", Email: "anna@corp.local", FirstName: "Anna", IsOnline: false, LastSeen: later})
	u, _ = s.User("u1")
	req.False(u.IsOnline)
	req.Equal(later, u.LastSeen)
}

func TestStore_ApplyRemoteUser(t *testing.T) {
	t.Run("should take remote presence verbatim", func(t *testing.T) {
		req := require.New(t)
		s := NewStore()
		seen := time.Now().UTC()
		s.UpsertUser(domain.User{ID: "u1", FirstName: "Boris", IsOnline: true, LastSeen: seen})

		s.ApplyRemoteUser(domain.User{ID: "u1", FirstName: "Boris", IsOnline: false, LastSeen: seen.Add(-time.Hour)})

		u, _ := s.User("u1")
		req.False(u.IsOnline, "a stale local true must never survive a remote merge")
		req.Equal(seen.Add(-time.Hour), u.LastSeen)
	})

	t.Run("should keep a pending local display name edit", func(t *testing.T) {
		req := require.New(t)
		s := NewStore()
		s.UpsertUser(domain.User{ID: "u1", FirstName: "Boris", DisplayName: "Bob"})
		s.MarkProfilePending("u1")

		s.ApplyRemoteUser(domain.User{ID: "u1", FirstName: "Boris", DisplayName: "Boris"})
		u, _ := s.User("u1")
		req.Equal("Bob", u.DisplayName)

		// Once acknowledged, the remote value flows through again.
		s.ClearProfilePending("u1")
		s.ApplyRemoteUser(domain.User{ID: "u1", FirstName: "Boris", DisplayName: "Boris"})
		u, _ = s.User("u1")
		req.Equal("Boris", u.DisplayName)
	})
}

func TestStore_MergeRemoteMessage_DedupeByID(t *testing.T) {
	req := require.New(t)
	s := NewStore()
	now := time.Now().UTC()

	req.NoError(s.AppendMessage(message("local-1", "anna", []string{"boris"}, "draft wording", now)))

	// Remote copy of the same id wins on fields but keeps the log position.
	added := s.MergeRemoteMessage(message("local-1", "anna", []string{"boris"}, "final wording", now))
	req.False(added)
	got := s.Messages()
	req.Len(got, 1)
	req.Equal("final wording", got[0].Content)

	// Unknown ids append with their remote identity intact.
	remoteTS := now.Add(-time.Minute)
	added = s.MergeRemoteMessage(message("remote-7", "boris", []string{"anna"}, "hello", remoteTS))
	req.True(added)
	got = s.Messages()
	req.Len(got, 2)
	req.Equal("remote-7", got[1].ID)
	req.Equal(remoteTS, got[1].Timestamp)
}

func TestStore_ReconcileAck(t *testing.T) {
	req := require.New(t)
	s := NewStore()
	now := time.Now().UTC()

	req.NoError(s.AppendMessage(message("tmp-1", "anna", []string{"boris"}, "hi", now)))

	ackTS := now.Add(time.Second)
	s.ReconcileAck("tmp-1", "42", ackTS)

	req.False(s.HasMessage("tmp-1"))
	req.True(s.HasMessage("42"))
	got := s.Messages()
	req.Equal("42", got[0].ID)
	req.Equal(ackTS, got[0].Timestamp)

	// A later sync delivering the remote copy dedupes instead of duplicating.
	s.MergeRemoteMessage(message("42", "anna", []string{"boris"}, "hi", ackTS))
	req.Len(s.Messages(), 1)
}

func TestStore_ReconcileAck_AfterSyncAlreadyMergedTheCommit(t *testing.T) {
	req := require.New(t)
	s := NewStore()
	now := time.Now().UTC()

	// Optimistic append under a local id, then a sync tick pulls the
	// committed copy under the server id before the ack returns.
	req.NoError(s.AppendMessage(message("local-uuid", "anna", []string{"boris"}, "hi", now)))
	serverTS := now.Add(time.Second)
	req.True(s.MergeRemoteMessage(message("100", "anna", []string{"boris"}, "hi", serverTS)))

	s.ReconcileAck("local-uuid", "100", serverTS)

	// The two copies collapse into one entry; the id stays unique.
	got := s.Messages()
	req.Len(got, 1)
	req.Equal("100", got[0].ID)
	req.Equal(serverTS, got[0].Timestamp)
	req.False(s.HasMessage("local-uuid"))

	// The surviving entry still reconciles with later remote merges.
	req.False(s.MergeRemoteMessage(message("100", "anna", []string{"boris"}, "hi", serverTS)))
	req.Len(s.Messages(), 1)
}

func TestStore_ReconcileAck_CollapseKeepsLaterPositionsAddressable(t *testing.T) {
	req := require.New(t)
	s := NewStore()
	now := time.Now().UTC()

	req.NoError(s.AppendMessage(message("local-a", "anna", []string{"boris"}, "first", now)))
	req.True(s.MergeRemoteMessage(message("100", "anna", []string{"boris"}, "first", now)))
	req.NoError(s.AppendMessage(message("local-b", "anna", []string{"boris"}, "second", now.Add(time.Second))))

	// Dropping the optimistic copy of "first" shifts the log; entries after
	// it must stay reachable by id.
	s.ReconcileAck("local-a", "100", now)
	s.ReconcileAck("local-b", "101", now.Add(2*time.Second))

	got := s.Messages()
	req.Len(got, 2)
	req.Equal([]string{"100", "101"}, []string{got[0].ID, got[1].ID})
	req.False(s.MergeRemoteMessage(message("101", "anna", []string{"boris"}, "second", now.Add(2*time.Second))))
	req.Len(s.Messages(), 2)
}

func TestStore_RemoveUser_KeepsHistory(t *testing.T) {
	req := require.New(t)
	s := NewStore()
	now := time.Now().UTC()

	s.UpsertUser(domain.User{ID: "u1", FirstName: "Anna"})
	s.UpsertUser(domain.User{ID: "u2", FirstName: "Boris"})
	req.NoError(s.AppendMessage(message("m1", "u2", []string{"u1"}, "bye", now)))

	s.RemoveUser("u2")

	_, ok := s.User("u2")
	req.False(ok)
	req.Len(s.Users(), 1)

	// History is preserved with a dangling sender reference.
	got := s.Messages()
	req.Len(got, 1)
	req.Equal("u2", got[0].FromUserID)
}

func TestStore_UnreadFrom(t *testing.T) {
	req := require.New(t)
	s := NewStore()
	base := time.Now().UTC()

	req.NoError(s.AppendMessage(message("m1", "boris", []string{"anna"}, "one", base.Add(1*time.Second))))
	req.NoError(s.AppendMessage(message("m2", "boris", []string{"anna"}, "two", base.Add(2*time.Second))))
	req.NoError(s.AppendMessage(message("m3", "anna", []string{"boris"}, "reply", base.Add(3*time.Second))))

	req.Equal(2, s.UnreadFrom("anna", "boris"))

	s.MarkRead("anna", "boris")
	req.Equal(0, s.UnreadFrom("anna", "boris"))

	req.NoError(s.AppendMessage(message("m4", "boris", []string{"anna"}, "three", base.Add(4*time.Second))))
	req.Equal(1, s.UnreadFrom("anna", "boris"))
}

func TestStore_MarkRead_AnchorsToMessageTimestamps(t *testing.T) {
	req := require.New(t)
	s := NewStore()

	// The server clock runs ahead of this machine: the message is stamped
	// in the local future. Opening the view must still clear it, and a
	// later message must still count as unread.
	ahead := time.Now().UTC().Add(5 * time.Minute)
	req.NoError(s.AppendMessage(message("m1", "boris", []string{"anna"}, "one", ahead)))

	req.Equal(1, s.UnreadFrom("anna", "boris"))
	s.MarkRead("anna", "boris")
	req.Equal(0, s.UnreadFrom("anna", "boris"))

	req.NoError(s.AppendMessage(message("m2", "boris", []string{"anna"}, "two", ahead.Add(time.Second))))
	req.Equal(1, s.UnreadFrom("anna", "boris"))
}

func TestStore_VersionBumpsOnMutation(t *testing.T) {
	req := require.New(t)
	s := NewStore()

	v := s.Version()
	s.UpsertUser(domain.User{ID: "u1"})
	req.Greater(s.Version(), v)

	v = s.Version()
	req.NoError(s.AppendMessage(message("m1", "u1", []string{"u2"}, "hi", time.Now().UTC())))
	req.Greater(s.Version(), v)

	v = s.Version()
	s.RemoveUser("u1")
	req.Greater(s.Version(), v)
}
