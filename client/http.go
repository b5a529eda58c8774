// Package client implements the remote directory over the corporate
// backend's JSON HTTP endpoints (one endpoint each for auth, users and
// messages). It only translates between wire payloads and domain types;
// merge semantics live with the callers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/samber/lo"

	"team-mail/domain"
	"team-mail/errors"
)

// API talks to the three backend endpoints. It implements
// contract.IDirectory.
type API struct {
	log         *slog.Logger
	http        *http.Client
	authURL     string
	usersURL    string
	messagesURL string
}

func NewAPI(log *slog.Logger, authURL, usersURL, messagesURL string, timeout time.Duration) *API {
	return &API{
		log:         log,
		http:        &http.Client{Timeout: timeout},
		authURL:     authURL,
		usersURL:    usersURL,
		messagesURL: messagesURL,
	}
}

// The backend serves numeric ids; locally ids are opaque strings.
// json.Number tolerates both shapes.
type userPayload struct {
	ID          json.Number `json:"id"`
	Email       string      `json:"email"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	DisplayName string      `json:"displayName"`
	Role        string      `json:"role"`
	IsOnline    bool        `json:"isOnline"`
	LastSeen    string      `json:"lastSeen"`
}

type messagePayload struct {
	ID          json.Number         `json:"id"`
	FromUserID  json.Number         `json:"fromUserId"`
	To          []json.Number       `json:"to"`
	Content     string              `json:"content"`
	IsBroadcast bool                `json:"isBroadcast"`
	Timestamp   string              `json:"timestamp"`
	Attachments []domain.Attachment `json:"attachments,omitempty"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func (a *API) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	body := map[string]string{"email": email, "password": password}

	var payload userPayload
	status, err := a.do(ctx, http.MethodPost, a.authURL, body, &payload)
	if err != nil {
		return domain.User{}, err
	}
	switch status {
	case http.StatusOK:
		return toUser(payload), nil
	case http.StatusUnauthorized:
		return domain.User{}, errors.ErrInvalidCredentials
	default:
		return domain.User{}, fmt.Errorf("authenticate: unexpected status %d", status)
	}
}

func (a *API) ListUsers(ctx context.Context) ([]domain.User, error) {
	var payload []userPayload
	status, err := a.do(ctx, http.MethodGet, a.usersURL, nil, &payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list users: unexpected status %d", status)
	}
	return lo.Map(payload, func(p userPayload, _ int) domain.User { return toUser(p) }), nil
}

func (a *API) ListMessages(ctx context.Context, forUserID string) ([]domain.Message, error) {
	u := a.messagesURL + "?userId=" + url.QueryEscape(forUserID)

	var payload []messagePayload
	status, err := a.do(ctx, http.MethodGet, u, nil, &payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list messages: unexpected status %d", status)
	}
	return lo.Map(payload, func(p messagePayload, _ int) domain.Message { return toMessage(p) }), nil
}

func (a *API) CreateUser(ctx context.Context, cmd domain.CreateUserCommand) (domain.User, error) {
	body := map[string]string{
		"email":     cmd.Email,
		"password":  cmd.Password,
		"firstName": cmd.FirstName,
		"lastName":  cmd.LastName,
	}

	var payload userPayload
	status, err := a.do(ctx, http.MethodPost, a.usersURL, body, &payload)
	if err != nil {
		return domain.User{}, err
	}
	if status != http.StatusCreated {
		return domain.User{}, fmt.Errorf("create user: unexpected status %d", status)
	}

	// The creation response only echoes id and email; the rest is what we
	// sent. New accounts are workers with the first name as display name.
	return domain.User{
		ID:          payload.ID.String(),
		Email:       cmd.Email,
		FirstName:   cmd.FirstName,
		LastName:    cmd.LastName,
		DisplayName: cmd.FirstName,
		Role:        domain.RoleWorker,
	}, nil
}

func (a *API) UpdateUser(ctx context.Context, id, displayName string) error {
	body := map[string]string{"id": id, "displayName": displayName}

	status, err := a.do(ctx, http.MethodPut, a.usersURL, body, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", errors.ErrUnknownUser, id)
	default:
		return fmt.Errorf("update user: unexpected status %d", status)
	}
}

func (a *API) DeleteUser(ctx context.Context, id string) error {
	u := a.usersURL + "?id=" + url.QueryEscape(id)

	status, err := a.do(ctx, http.MethodDelete, u, nil, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", errors.ErrUnknownUser, id)
	default:
		return fmt.Errorf("delete user: unexpected status %d", status)
	}
}

func (a *API) SendMessage(ctx context.Context, m domain.Message) (domain.Message, error) {
	body := map[string]any{
		"fromUserId":  m.FromUserID,
		"toUserIds":   m.To,
		"content":     m.Content,
		"isBroadcast": m.IsBroadcast,
	}
	if len(m.Attachments) > 0 {
		body["attachments"] = m.Attachments
	}

	var payload struct {
		ID json.Number `json:"id"`
	}
	status, err := a.do(ctx, http.MethodPost, a.messagesURL, body, &payload)
	if err != nil {
		return domain.Message{}, err
	}
	if status != http.StatusCreated {
		return domain.Message{}, fmt.Errorf("send message: unexpected status %d", status)
	}

	// The acknowledgment carries only the assigned id; the timestamp is
	// observed on the next sync pull.
	m.ID = payload.ID.String()
	return m, nil
}

// do issues one JSON request and decodes the response into out when the
// status carries a body worth decoding. It returns the status code so
// callers keep ownership of per-endpoint semantics.
func (a *API) do(ctx context.Context, method, rawURL string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		var remote errorPayload
		if decodeErr := json.NewDecoder(resp.Body).Decode(&remote); decodeErr == nil && remote.Error != "" {
			a.log.Debug("Remote call rejected", "method", method, "status", resp.StatusCode, "error", remote.Error)
		}
		return resp.StatusCode, nil
	}

	if out != nil {
		decoder := json.NewDecoder(resp.Body)
		decoder.UseNumber()
		if err := decoder.Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding %s response: %w", method, err)
		}
	}
	return resp.StatusCode, nil
}

func toUser(p userPayload) domain.User {
	return domain.User{
		ID:          p.ID.String(),
		Email:       p.Email,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		DisplayName: p.DisplayName,
		Role:        domain.Role(p.Role),
		IsOnline:    p.IsOnline,
		LastSeen:    parseWhen(p.LastSeen),
	}
}

func toMessage(p messagePayload) domain.Message {
	return domain.Message{
		ID:         p.ID.String(),
		FromUserID: p.FromUserID.String(),
		To: lo.Map(p.To, func(n json.Number, _ int) string {
			return n.String()
		}),
		Content:     p.Content,
		IsBroadcast: p.IsBroadcast,
		Timestamp:   parseWhen(p.Timestamp),
		Attachments: p.Attachments,
	}
}

// parseWhen accepts both RFC3339 and the backend's bare ISO form without a
// zone suffix. An unparseable or empty value maps to the zero time.
func parseWhen(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
