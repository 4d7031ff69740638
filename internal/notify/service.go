package notify

import "context"

// Service is the capability the scheduler reconciles against: something
// that can hold pending notifications, cancel them by identifier, and
// report what is currently pending for a user. The Postgres-backed
// implementation lives in store.go; tests substitute an in-memory fake.
type Service interface {
	// Schedule registers a notification and returns its identifier.
	Schedule(ctx context.Context, userID string, req Request) (string, error)

	// Cancel removes a pending notification. Cancelling an identifier
	// that no longer exists is not an error.
	Cancel(ctx context.Context, userID, id string) error

	// ListPending returns every pending notification for the user.
	ListPending(ctx context.Context, userID string) ([]Record, error)

	// RequestPermission reports whether the user has granted push
	// permission. When false, every scheduling operation is a no-op.
	RequestPermission(ctx context.Context, userID string) (bool, error)
}
