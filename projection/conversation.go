// Package projection builds derived views over the mailbox.
// Conversations are recomputable projections of the flat message log,
// never mutable stateful objects. Does not emit events or touch the store.
package projection

import (
	"sort"

	"github.com/samber/lo"

	"team-mail/domain"
)

// Mailbox is the read surface a projection needs: a snapshot of the
// message log in insertion order.
type Mailbox interface {
	Messages() []domain.Message
}

// ConversationFor derives the ordered timeline shared between selfID and
// peerID. The log is filtered by conversation membership, then sorted by
// timestamp ascending with insertion order breaking ties (timestamps may
// collide at second granularity from rapid sends).
//
// The derivation is pure: repeated calls against an unchanged mailbox
// return identical sequences, which both the reconciliation loop and the
// UI rely on.
func ConversationFor(selfID, peerID string, box Mailbox) []domain.Message {
	visible := lo.Filter(box.Messages(), func(m domain.Message, _ int) bool {
		return m.InConversation(selfID, peerID)
	})

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Timestamp.Before(visible[j].Timestamp)
	})
	return visible
}

// BroadcastsBy lists the broadcast messages sent by userID, in the same
// timestamp-then-insertion order as conversation timelines.
func BroadcastsBy(userID string, box Mailbox) []domain.Message {
	sent := lo.Filter(box.Messages(), func(m domain.Message, _ int) bool {
		return m.IsBroadcast && m.FromUserID == userID
	})

	sort.SliceStable(sent, func(i, j int) bool {
		return sent[i].Timestamp.Before(sent[j].Timestamp)
	})
	return sent
}
