// Package domain contains core concepts of the messaging client.
// This file defines Message records and the conversation membership rule.
// Messages are immutable once created.
package domain

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"team-mail/errors"
)

// Attachment is a self-contained file representation. URL inlines the
// content as a data URI, Size is the original byte length.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Message is an immutable multicast-capable mail item. To holds the frozen
// recipient set: one entry makes a direct message, several make a multicast.
// IsBroadcast is declared by the sender and independent of the To size.
type Message struct {
	ID          string
	FromUserID  string
	To          []string
	Content     string
	Timestamp   time.Time
	IsBroadcast bool
	Attachments []Attachment
}

func (m Message) IsDirect() bool {
	return !m.IsBroadcast && len(m.To) == 1
}

// InConversation reports whether the message belongs to the conversation
// between selfID and peerID. A multicast message satisfies this for every
// recipient, which makes one broadcast a member of N distinct conversations.
func (m Message) InConversation(selfID, peerID string) bool {
	if m.FromUserID == selfID {
		return lo.Contains(m.To, peerID)
	}
	if m.FromUserID == peerID {
		return lo.Contains(m.To, selfID)
	}
	return false
}

// Validate enforces the append invariants: a sender, at least one
// recipient, and either content or at least one attachment.
func (m Message) Validate() error {
	if m.FromUserID == "" {
		return fmt.Errorf("%w: message without sender", errors.ErrValidation)
	}
	if len(m.To) == 0 {
		return fmt.Errorf("%w: message without recipients", errors.ErrValidation)
	}
	if m.Content == "" && len(m.Attachments) == 0 {
		return fmt.Errorf("%w: empty message body", errors.ErrValidation)
	}
	return nil
}
