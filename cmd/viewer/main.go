// The viewer renders the archived roster and conversations from the
// BadgerDB archive in read-only mode, without touching the network. It can
// run next to a live client: BypassLockGuard opens the database even while
// the client process holds the lock.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"team-mail/domain"
	"team-mail/projection"
	"team-mail/repositories"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	// VIEWER_SELF renders conversations from this user's point of view;
	// leave empty to print the roster only.
	SelfID string `envconfig:"VIEWER_SELF"`
	PeerID string `envconfig:"VIEWER_PEER"`
	// VIEWER_COLOURS enables colorized presence markers.
	Colours bool `envconfig:"VIEWER_COLOURS" default:"true"`
}

func main() {
	// 1. Load config
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Open Badger in Read-Only mode
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	archive := repositories.NewArchive(db, logger)
	users, err := archive.Users()
	if err != nil {
		log.Fatalf("Failed to load roster: %v", err)
	}
	messages, err := archive.Messages()
	if err != nil {
		log.Fatalf("Failed to load messages: %v", err)
	}

	printRoster(users, config.Colours)

	if config.SelfID != "" && config.PeerID != "" {
		printConversation(config.SelfID, config.PeerID, users, messages)
	}
	if config.SelfID != "" {
		printBroadcasts(config.SelfID, messages)
	}
}

func printBroadcasts(selfID string, messages []domain.Message) {
	broadcasts := projection.BroadcastsBy(selfID, archiveLog(messages))
	if len(broadcasts) == 0 {
		return
	}
	fmt.Printf("\nBroadcasts sent by %s\n", selfID)
	for _, m := range broadcasts {
		fmt.Printf("[%s] to %d recipients: %s\n",
			m.Timestamp.Local().Format(time.RFC822), len(m.To), m.Content)
	}
}

func printRoster(users []domain.User, colours bool) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Role", "Presence", "Last Seen"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, u := range users {
		presence := "offline"
		if u.IsOnline {
			presence = "online"
		}
		if colours {
			if u.IsOnline {
				presence = color.New(color.FgGreen).Render(presence)
			} else {
				presence = color.New(color.FgGray).Render(presence)
			}
		}
		lastSeen := ""
		if !u.LastSeen.IsZero() {
			lastSeen = u.LastSeen.Local().Format(time.RFC822)
		}
		table.Append([]string{u.ID, u.Label(), string(u.Role), presence, lastSeen})
	}
	table.Render()
}

// archiveLog adapts the archived message slice to the projection's
// mailbox interface.
type archiveLog []domain.Message

func (a archiveLog) Messages() []domain.Message { return a }

func printConversation(selfID, peerID string, users []domain.User, messages []domain.Message) {
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Label()
	}
	// Senders deleted since keep their id as the only reference.
	name := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return fmt.Sprintf("former user %s", id)
	}

	fmt.Printf("\nConversation %s <-> %s\n", name(selfID), name(peerID))
	for _, m := range projection.ConversationFor(selfID, peerID, archiveLog(messages)) {
		line := fmt.Sprintf("[%s] %s: %s", m.Timestamp.Local().Format(time.RFC822), name(m.FromUserID), m.Content)
		for _, att := range m.Attachments {
			line += fmt.Sprintf(" (attachment %s, %d bytes)", att.Name, att.Size)
		}
		fmt.Println(line)
	}
}
