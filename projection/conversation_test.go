package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"team-mail/domain"
	"team-mail/mailbox"
)

func TestConversationFor_OrderedByTimestamp(t *testing.T) {
	req := require.New(t)
	box := mailbox.NewStore()
	base := time.Now().UTC()

	// Inserted out of timestamp order on purpose: the remote log can
	// deliver older messages after newer optimistic ones.
	msgs := []domain.Message{
		{ID: "m3", FromUserID: "anna", To: []string{"boris"}, Content: "three", Timestamp: base.Add(3 * time.Second)},
		{ID: "m1", FromUserID: "anna", To: []string{"boris"}, Content: "one", Timestamp: base.Add(1 * time.Second)},
		{ID: "m2", FromUserID: "boris", To: []string{"anna"}, Content: "two", Timestamp: base.Add(2 * time.Second)},
	}
	for _, m := range msgs {
		req.NoError(box.AppendMessage(m))
	}

	got := ConversationFor("anna", "boris", box)
	req.Len(got, 3)
	req.Equal([]string{"m1", "m2", "m3"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestConversationFor_TieBreakByInsertionOrder(t *testing.T) {
	req := require.New(t)
	box := mailbox.NewStore()
	at := time.Now().UTC().Truncate(time.Second)

	// Same second, rapid sends: insertion order must decide.
	for _, id := range []string{"a", "b", "c"} {
		req.NoError(box.AppendMessage(domain.Message{
			ID: id, FromUserID: "anna", To: []string{"boris"}, Content: id, Timestamp: at,
		}))
	}

	got := ConversationFor("anna", "boris", box)
	req.Equal([]string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestConversationFor_IsStable(t *testing.T) {
	req := require.New(t)
	box := mailbox.NewStore()
	base := time.Now().UTC()

	req.NoError(box.AppendMessage(domain.Message{ID: "m1", FromUserID: "anna", To: []string{"boris"}, Content: "hi", Timestamp: base}))
	req.NoError(box.AppendMessage(domain.Message{ID: "m2", FromUserID: "boris", To: []string{"anna"}, Content: "hey", Timestamp: base}))

	first := ConversationFor("anna", "boris", box)
	second := ConversationFor("anna", "boris", box)
	req.Equal(first, second)
}

func TestConversationFor_BroadcastFanout(t *testing.T) {
	req := require.New(t)
	box := mailbox.NewStore()
	at := time.Now().UTC()

	broadcast := domain.Message{
		ID:          "b1",
		FromUserID:  "anna",
		To:          []string{"boris", "clara", "dimitri"},
		Content:     "Meeting at 10",
		IsBroadcast: true,
		Timestamp:   at,
	}
	req.NoError(box.AppendMessage(broadcast))

	// From the sender: one conversation per recipient.
	for _, peer := range broadcast.To {
		req.Len(ConversationFor("anna", peer, box), 1)
	}
	req.Empty(ConversationFor("anna", "elena", box))

	// From a recipient: exactly one conversation, the one with the sender.
	req.Len(ConversationFor("boris", "anna", box), 1)
	req.Empty(ConversationFor("boris", "clara", box))
}

func TestConversationFor_IgnoresUnrelatedMessages(t *testing.T) {
	req := require.New(t)
	box := mailbox.NewStore()
	at := time.Now().UTC()

	req.NoError(box.AppendMessage(domain.Message{ID: "m1", FromUserID: "clara", To: []string{"dimitri"}, Content: "private", Timestamp: at}))
	req.NoError(box.AppendMessage(domain.Message{ID: "m2", FromUserID: "anna", To: []string{"boris"}, Content: "ours", Timestamp: at}))

	got := ConversationFor("anna", "boris", box)
	req.Len(got, 1)
	req.Equal("m2", got[0].ID)
}

func TestBroadcastsBy(t *testing.T) {
	req := require.New(t)
	box := mailbox.NewStore()
	base := time.Now().UTC()

	req.NoError(box.AppendMessage(domain.Message{ID: "m1", FromUserID: "anna", To: []string{"boris"}, Content: "direct", Timestamp: base}))
	req.NoError(box.AppendMessage(domain.Message{
		ID: "b1", FromUserID: "anna", To: []string{"boris", "clara"},
		Content: "to everyone", IsBroadcast: true, Timestamp: base.Add(time.Second),
	}))

	got := BroadcastsBy("anna", box)
	req.Len(got, 1)
	req.Equal("b1", got[0].ID)
	req.Empty(BroadcastsBy("boris", box))
}
