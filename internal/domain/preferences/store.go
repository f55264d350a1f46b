package preferences

import "context"

const (
	KeyDarkMode          = "dark_mode"
	KeyPendingInviteCode = "pending_invite_code"
	KeyCurrentBaby       = "current_baby"
	keyLastSidePrefix    = "last_side:"
)

// Store is a per-principal key-value store. Missing keys are reported with
// ok=false, never as an error.
type Store interface {
	Get(ctx context.Context, userID, key string) (string, bool, error)
	Set(ctx context.Context, userID, key, value string) error
	Delete(ctx context.Context, userID, key string) error
	All(ctx context.Context, userID string) (map[string]string, error)
}

func lastSideKey(babyID string) string {
	return keyLastSidePrefix + babyID
}
