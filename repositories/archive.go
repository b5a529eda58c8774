//go:generate go run go.uber.org/mock/mockgen -source=archive.go -destination=../mocks/mock_archive.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"team-mail/domain"
)

// Archive persists reconciled messages and the last observed roster in
// BadgerDB so history survives restarts and the read-only viewer can
// render it. It is a cache of remote truth, never the source of it.
type Archive struct {
	db  *badger.DB
	log *slog.Logger
}

func NewArchive(db *badger.DB, log *slog.Logger) Archive {
	return Archive{db: db, log: log}
}

// messageRecord is the stored form of a message, the same JSON document
// shape the wire uses.
type messageRecord struct {
	ID          string              `json:"id"`
	FromUserID  string              `json:"fromUserId"`
	To          []string            `json:"to"`
	Content     string              `json:"content"`
	IsBroadcast bool                `json:"isBroadcast"`
	Timestamp   time.Time           `json:"timestamp"`
	Attachments []domain.Attachment `json:"attachments,omitempty"`
}

type userRecord struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	IsOnline    bool      `json:"isOnline"`
	LastSeen    time.Time `json:"lastSeen"`
}

// StoreMessage persists a message under a key formatted as
// "msg:{timestamp_padded}:{id}". The 19-digit zero padding keeps keys in
// chronological order under Badger's lexicographic iteration, and the id
// suffix disambiguates messages stamped within the same nanosecond.
// Re-storing the same message overwrites the same key, so replays from the
// sync loop are harmless.
func (a Archive) StoreMessage(m domain.Message) error {
	key := fmt.Sprintf("msg:%019d:%s", m.Timestamp.UnixNano(), m.ID)

	value, err := json.Marshal(fromMessage(m))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Messages returns every archived message in chronological order.
func (a Archive) Messages() ([]domain.Message, error) {
	var out []domain.Message
	err := a.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var rec messageRecord
				if err := json.Unmarshal(value, &rec); err != nil {
					return err
				}
				out = append(out, toMessage(rec))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// StoreUser persists the latest observed user record, keyed by id.
func (a Archive) StoreUser(u domain.User) error {
	value, err := json.Marshal(userRecord{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		IsOnline:    u.IsOnline,
		LastSeen:    u.LastSeen,
	})
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("user:"+u.ID), value)
	})
}

// RemoveUser drops a roster record. Archived messages referencing the id
// are intentionally kept.
func (a Archive) RemoveUser(id string) error {
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte("user:" + id))
	})
}

// Users returns the archived roster ordered by id.
func (a Archive) Users() ([]domain.User, error) {
	var out []domain.User
	err := a.db.View(func(txn *badger.Txn) error {
		prefix := []byte("user:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var rec userRecord
				if err := json.Unmarshal(value, &rec); err != nil {
					return err
				}
				out = append(out, domain.User{
					ID:          rec.ID,
					Email:       rec.Email,
					FirstName:   rec.FirstName,
					LastName:    rec.LastName,
					DisplayName: rec.DisplayName,
					Role:        domain.Role(rec.Role),
					IsOnline:    rec.IsOnline,
					LastSeen:    rec.LastSeen,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

func fromMessage(m domain.Message) messageRecord {
	return messageRecord{
		ID:          m.ID,
		FromUserID:  m.FromUserID,
		To:          m.To,
		Content:     m.Content,
		IsBroadcast: m.IsBroadcast,
		Timestamp:   m.Timestamp.UTC(),
		Attachments: m.Attachments,
	}
}

func toMessage(rec messageRecord) domain.Message {
	return domain.Message{
		ID:          rec.ID,
		FromUserID:  rec.FromUserID,
		To:          rec.To,
		Content:     rec.Content,
		IsBroadcast: rec.IsBroadcast,
		Timestamp:   rec.Timestamp.UTC(),
		Attachments: rec.Attachments,
	}
}
