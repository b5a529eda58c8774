// Package services translates user intent into mailbox mutations and
// remote directory calls. Commands validate locally first, append
// optimistically, then ask the remote for acknowledgment; a failed
// acknowledgment surfaces to the caller and never rolls the optimistic
// write back, nor is it retried silently.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"team-mail/attachment"
	"team-mail/auth"
	"team-mail/contract"
	"team-mail/domain"
	"team-mail/errors"
	"team-mail/mailbox"
	"team-mail/moderation"
	"team-mail/projection"
)

// epochCounter tags each login. Callbacks from a previous epoch must
// never mutate a newer session's store.
var epochCounter atomic.Uint64

type SessionService struct {
	log         *slog.Logger
	dir         contract.IDirectory
	tokens      *auth.Tokens
	censor      *moderation.Censor
	emailDomain string
}

func NewSessionService(log *slog.Logger, dir contract.IDirectory, tokens *auth.Tokens, censor *moderation.Censor, emailDomain string) *SessionService {
	return &SessionService{
		log:         log,
		dir:         dir,
		tokens:      tokens,
		censor:      censor,
		emailDomain: emailDomain,
	}
}

// Login authenticates against the remote directory and opens a fresh
// session scope: a new store, a new epoch, a new token. Nothing is
// created on a credential mismatch.
func (s *SessionService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = s.normalizeEmail(email)
	cmd := domain.LoginCommand{Email: email, Password: password}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	user, err := s.dir.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	epoch := epochCounter.Add(1)
	token, err := s.tokens.Mint(user.ID, string(user.Role), epoch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrTokenGeneration, err)
	}

	// The hash is kept for offline lock-screen re-auth only; the remote
	// already authenticated the raw password.
	lockHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	box := mailbox.NewStore()
	now := time.Now().UTC()
	box.UpsertUser(user.WithPresence(true, now))

	session := &Session{
		log:      s.log,
		dir:      s.dir,
		box:      box,
		censor:   s.censor,
		service:  s,
		self:     user,
		token:    token,
		lockHash: lockHash,
		epoch:    epoch,
	}
	session.active.Store(true)

	s.log.Info("Session opened", "user", user.ID, "epoch", epoch)
	return session, nil
}

// normalizeEmail appends the corporate domain to bare login names, so
// "anna" authenticates as "anna@<domain>".
func (s *SessionService) normalizeEmail(email string) string {
	if s.emailDomain != "" && !strings.Contains(email, "@") {
		return email + "@" + s.emailDomain
	}
	return email
}

// Session is one authenticated client scope. It owns its mailbox store
// from login to logout; nothing is shared with other sessions in the
// same process.
type Session struct {
	log     *slog.Logger
	dir     contract.IDirectory
	box     *mailbox.Store
	censor  *moderation.Censor
	service *SessionService

	self     domain.User
	token    string
	lockHash string
	epoch    uint64

	active atomic.Bool
	locked atomic.Bool

	mu            sync.Mutex
	cancels       []context.CancelFunc
	onPeerRemoved func(peerID string)
}

func (s *Session) Self() domain.User     { return s.self }
func (s *Session) Token() string         { return s.token }
func (s *Session) Epoch() uint64         { return s.epoch }
func (s *Session) Store() *mailbox.Store { return s.box }

// OnLogout registers a cancel function to be invoked synchronously at
// teardown. The sync worker's context lands here.
func (s *Session) OnLogout(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels = append(s.cancels, cancel)
}

// SetPeerRemovedHook lets the UI layer clear an open conversation view
// when its peer is deleted, instead of silently keeping it.
func (s *Session) SetPeerRemovedHook(fn func(peerID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPeerRemoved = fn
}

func (s *Session) ensureActive() error {
	if !s.active.Load() {
		return errors.ErrNoSession
	}
	if s.locked.Load() {
		return errors.ErrSessionLocked
	}
	return nil
}

// SendDirect composes a single-recipient message, appends it
// optimistically and requests remote acknowledgment. Attachment files are
// encoded independently: failures come back in fileErrs while the
// surviving attachments are still sent.
func (s *Session) SendDirect(ctx context.Context, peerID, content string, files []attachment.File) (domain.Message, []error, error) {
	if err := s.ensureActive(); err != nil {
		return domain.Message{}, nil, err
	}

	encoded, fileErrs := attachment.EncodeAll(files)
	msg := domain.Message{
		ID:          uuid.NewString(),
		FromUserID:  s.self.ID,
		To:          []string{peerID},
		Content:     s.censor.Apply(strings.TrimSpace(content)),
		Timestamp:   time.Now().UTC(),
		Attachments: encoded,
	}

	if err := s.deliver(ctx, &msg); err != nil {
		return msg, fileErrs, err
	}
	return msg, fileErrs, nil
}

// SendBroadcast composes a multicast message. An empty recipient list
// resolves to all other known users at call time; the resolved set is
// frozen into the message and never re-evaluated.
func (s *Session) SendBroadcast(ctx context.Context, recipientIDs []string, content string) (domain.Message, error) {
	if err := s.ensureActive(); err != nil {
		return domain.Message{}, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Message{}, fmt.Errorf("%w: broadcast without content", errors.ErrValidation)
	}

	if len(recipientIDs) == 0 {
		recipientIDs = lo.Map(s.box.OtherUsers(s.self.ID), func(u domain.User, _ int) string {
			return u.ID
		})
	}

	msg := domain.Message{
		ID:          uuid.NewString(),
		FromUserID:  s.self.ID,
		To:          recipientIDs,
		Content:     s.censor.Apply(content),
		Timestamp:   time.Now().UTC(),
		IsBroadcast: true,
	}

	if err := s.deliver(ctx, &msg); err != nil {
		return msg, err
	}
	return msg, nil
}

// deliver appends the message locally, then requests acknowledgment.
// Local validation rejects before any store mutation; a remote failure
// keeps the optimistic entry and surfaces to the caller.
func (s *Session) deliver(ctx context.Context, msg *domain.Message) error {
	if err := s.box.AppendMessage(*msg); err != nil {
		return err
	}

	ack, err := s.dir.SendMessage(ctx, *msg)
	if err != nil {
		s.log.Warn("Message not acknowledged", "id", msg.ID, "err", err)
		return fmt.Errorf("send not acknowledged: %w", err)
	}

	// The session may have been torn down while the call was in flight.
	if !s.active.Load() {
		return errors.ErrNoSession
	}
	s.box.ReconcileAck(msg.ID, ack.ID, ack.Timestamp)
	msg.ID = ack.ID
	return nil
}

// UpdateProfile changes the acting user's display name. Acting on any
// other user's record is refused.
func (s *Session) UpdateProfile(ctx context.Context, userID, displayName string) error {
	if err := s.ensureActive(); err != nil {
		return err
	}
	if userID != s.self.ID {
		return fmt.Errorf("%w: profile belongs to another user", errors.ErrForbidden)
	}

	// Optimistic local edit, shielded from the sync loop until the
	// remote call completes.
	s.box.MarkProfilePending(s.self.ID)
	defer s.box.ClearProfilePending(s.self.ID)

	if u, ok := s.box.User(s.self.ID); ok {
		u.DisplayName = displayName
		s.box.UpsertUser(u)
	}
	s.self.DisplayName = displayName

	if err := s.dir.UpdateUser(ctx, userID, displayName); err != nil {
		return fmt.Errorf("profile update not acknowledged: %w", err)
	}
	return nil
}

// CreateUser provisions a worker account. Owner only. A bare login name
// is normalized to a corporate email before validation.
func (s *Session) CreateUser(ctx context.Context, firstName, lastName, email, password string) (domain.User, error) {
	if err := s.ensureActive(); err != nil {
		return domain.User{}, err
	}
	if !s.self.IsOwner() {
		return domain.User{}, fmt.Errorf("%w: only owners create accounts", errors.ErrForbidden)
	}

	cmd := domain.CreateUserCommand{
		FirstName: firstName,
		LastName:  lastName,
		Email:     s.service.normalizeEmail(email),
		Password:  password,
	}
	if err := cmd.Validate(); err != nil {
		return domain.User{}, err
	}

	created, err := s.dir.CreateUser(ctx, cmd)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user not acknowledged: %w", err)
	}

	if s.active.Load() {
		s.box.UpsertUser(created)
	}
	return created, nil
}

// DeleteUser removes an account. Owner only; owners may not delete
// themselves, and the last remaining owner is undeletable. Messages
// referencing the deleted id stay in the log as "former user" history.
func (s *Session) DeleteUser(ctx context.Context, id string) error {
	if err := s.ensureActive(); err != nil {
		return err
	}
	if !s.self.IsOwner() {
		return fmt.Errorf("%w: only owners delete accounts", errors.ErrForbidden)
	}
	if id == s.self.ID {
		return errors.ErrSelfDeletion
	}
	if target, ok := s.box.User(id); ok && target.IsOwner() && s.box.OwnerCount() <= 1 {
		return errors.ErrLastOwner
	}

	if err := s.dir.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user not acknowledged: %w", err)
	}

	if !s.active.Load() {
		return errors.ErrNoSession
	}
	s.box.RemoveUser(id)

	s.mu.Lock()
	hook := s.onPeerRemoved
	s.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	return nil
}

// Conversation derives the timeline with one peer and marks it read.
func (s *Session) Conversation(peerID string) []domain.Message {
	timeline := projection.ConversationFor(s.self.ID, peerID, s.box)
	s.box.MarkRead(s.self.ID, peerID)
	return timeline
}

// Unread counts messages from peerID not yet seen in an open view.
func (s *Session) Unread(peerID string) int {
	return s.box.UnreadFrom(s.self.ID, peerID)
}

// Roster lists all co-workers, self excluded, ordered by id.
func (s *Session) Roster() []domain.User {
	return s.box.OtherUsers(s.self.ID)
}

// Broadcasts lists the announcements this user has sent.
func (s *Session) Broadcasts() []domain.Message {
	return projection.BroadcastsBy(s.self.ID, s.box)
}

// Lock freezes the session until Unlock succeeds. Queries and commands
// are refused while locked.
func (s *Session) Lock() {
	s.locked.Store(true)
}

// Unlock re-authenticates against the locally held credential hash, no
// network round trip involved.
func (s *Session) Unlock(password string) error {
	if !s.active.Load() {
		return errors.ErrNoSession
	}
	ok, err := auth.VerifyPassword(password, s.lockHash)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrInvalidCredentials
	}
	s.locked.Store(false)
	return nil
}

// Logout tears the session down: every registered cancel runs
// synchronously, the local presence flips offline, and no further
// command or late callback may mutate the store.
func (s *Session) Logout() error {
	if !s.active.CompareAndSwap(true, false) {
		return errors.ErrNoSession
	}

	s.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}

	s.box.SetPresence(s.self.ID, false, time.Now().UTC())
	s.log.Info("Session closed", "user", s.self.ID, "epoch", s.epoch)
	return nil
}
