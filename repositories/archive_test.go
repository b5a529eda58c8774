package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"team-mail/domain"
)

func openTestArchive(t *testing.T) Archive {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewArchive(db, slog.Default())
}

func TestArchive_MessagesComeBackChronological(t *testing.T) {
	req := require.New(t)
	archive := openTestArchive(t)
	base := time.Now().UTC().Truncate(time.Microsecond)

	// Stored out of order; the padded-timestamp keys restore chronology.
	messages := []domain.Message{
		{ID: "3", FromUserID: "anna", To: []string{"boris"}, Content: "three", Timestamp: base.Add(2 * time.Second)},
		{ID: "1", FromUserID: "anna", To: []string{"boris"}, Content: "one", Timestamp: base},
		{ID: "2", FromUserID: "boris", To: []string{"anna"}, Content: "two", Timestamp: base.Add(time.Second)},
	}
	for _, m := range messages {
		req.NoError(archive.StoreMessage(m))
	}

	got, err := archive.Messages()
	req.NoError(err)
	req.Len(got, 3)
	req.Equal([]string{"1", "2", "3"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestArchive_StoreMessageIsIdempotent(t *testing.T) {
	req := require.New(t)
	archive := openTestArchive(t)

	m := domain.Message{
		ID: "1", FromUserID: "anna", To: []string{"boris", "clara"},
		Content: "Meeting at 10", IsBroadcast: true,
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		Attachments: []domain.Attachment{
			{Name: "agenda.txt", URL: "data:text/plain; charset=utf-8;base64,aGk=", Size: 2},
		},
	}
	req.NoError(archive.StoreMessage(m))
	req.NoError(archive.StoreMessage(m))

	got, err := archive.Messages()
	req.NoError(err)
	req.Len(got, 1)
	req.Equal(m, got[0])
}

func TestArchive_Roster(t *testing.T) {
	req := require.New(t)
	archive := openTestArchive(t)
	seen := time.Now().UTC().Truncate(time.Microsecond)

	req.NoError(archive.StoreUser(domain.User{ID: "1", Email: "anna@corp.local", FirstName: "Anna", Role: domain.RoleOwner, IsOnline: true, LastSeen: seen}))
	req.NoError(archive.StoreUser(domain.User{ID: "2", Email: "boris@corp.local", FirstName: "Boris", Role: domain.RoleWorker, LastSeen: seen}))

	users, err := archive.Users()
	req.NoError(err)
	req.Len(users, 2)
	req.Equal("anna@corp.local", users[0].Email)
	req.True(users[0].IsOnline)

	req.NoError(archive.RemoveUser("2"))
	users, err = archive.Users()
	req.NoError(err)
	req.Len(users, 1)
}
