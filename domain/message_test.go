package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"team-mail/errors"
)

func TestMessage_InConversation(t *testing.T) {
	req := require.New(t)

	broadcast := Message{
		ID:          "m1",
		FromUserID:  "anna",
		To:          []string{"boris", "clara", "dimitri"},
		Content:     "Meeting at 10",
		IsBroadcast: true,
		Timestamp:   time.Now().UTC(),
	}

	// From the sender's perspective the message sits in one conversation
	// per recipient.
	req.True(broadcast.InConversation("anna", "boris"))
	req.True(broadcast.InConversation("anna", "clara"))
	req.True(broadcast.InConversation("anna", "dimitri"))
	req.False(broadcast.InConversation("anna", "elena"))

	// Each recipient sees it only in the conversation with the sender.
	req.True(broadcast.InConversation("boris", "anna"))
	req.False(broadcast.InConversation("boris", "clara"))
}

func TestMessage_Validate(t *testing.T) {
	now := time.Now().UTC()

	t.Run("should reject a message without recipients", func(t *testing.T) {
		req := require.New(t)
		m := Message{ID: "m1", FromUserID: "anna", Content: "hi", Timestamp: now}
		req.ErrorIs(m.Validate(), errors.ErrValidation)
	})

	t.Run("should reject a message without sender", func(t *testing.T) {
		req := require.New(t)
		m := Message{ID: "m1", To: []string{"boris"}, Content: "hi", Timestamp: now}
		req.ErrorIs(m.Validate(), errors.ErrValidation)
	})

	t.Run("should reject blank content with no attachments", func(t *testing.T) {
		req := require.New(t)
		m := Message{ID: "m1", FromUserID: "anna", To: []string{"boris"}, Timestamp: now}
		req.ErrorIs(m.Validate(), errors.ErrValidation)
	})

	t.Run("should accept blank content when an attachment is present", func(t *testing.T) {
		req := require.New(t)
		m := Message{
			ID:          "m1",
			FromUserID:  "anna",
			To:          []string{"boris"},
			Timestamp:   now,
			Attachments: []Attachment{{Name: "report.pdf", URL: "data:application/pdf;base64,", Size: 0}},
		}
		req.NoError(m.Validate())
	})
}

func TestUser_Label(t *testing.T) {
	req := require.New(t)

	u := User{FirstName: "Anna", LastName: "Ivanova"}
	req.Equal("Anna", u.Label())

	u.DisplayName = "Anya"
	req.Equal("Anya", u.Label())
}

func TestCommands_Validate(t *testing.T) {
	t.Run("should reject a malformed login email", func(t *testing.T) {
		req := require.New(t)
		cmd := LoginCommand{Email: "not-an-email", Password: "pw1"}
		req.ErrorIs(cmd.Validate(), errors.ErrValidation)
	})

	t.Run("should accept a complete create user command", func(t *testing.T) {
		req := require.New(t)
		cmd := CreateUserCommand{
			FirstName: "Anna",
			LastName:  "Ivanova",
			Email:     "anna@corp.local",
			Password:  "pw1",
		}
		req.NoError(cmd.Validate())
	})
}
