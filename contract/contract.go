//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"team-mail/domain"
)

// IDirectory is the remote source of truth for users and messages.
// Every call crosses a request/response boundary with no ordering
// guarantee relative to other calls: callers must treat responses as
// arriving asynchronously with respect to local optimistic state.
type IDirectory interface {
	Authenticate(ctx context.Context, email, password string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	ListMessages(ctx context.Context, forUserID string) ([]domain.Message, error)
	CreateUser(ctx context.Context, cmd domain.CreateUserCommand) (domain.User, error)
	UpdateUser(ctx context.Context, id, displayName string) error
	DeleteUser(ctx context.Context, id string) error
	// SendMessage returns the remote-assigned id and creation timestamp
	// so the optimistic local copy can be reconciled on acknowledgment.
	SendMessage(ctx context.Context, m domain.Message) (domain.Message, error)
}

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision without forcing a Name method onto the
// Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// ISupervisor runs workers in goroutines, restarts them after crashes and
// shuts down cleanly when the parent context is canceled.
type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}
