package shares

import "golang.org/x/crypto/bcrypt"

// FlagStore is the per-visitor state the share gate writes its unlock flags to
type FlagStore interface {
	Flag(name string) bool
	SetFlag(name string)
}

// UnlockFlag names the session flag that records a share as unlocked
func UnlockFlag(id string) string {
	return "share:" + id + ":ok"
}

// VerifyPassword compares password against the share's stored hash. Shares
// without a password accept anything.
func VerifyPassword(rec Record, password string) bool {
	if !rec.HasPassword() {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) == nil
}

// Unlocked reports whether the visitor may see the share. Shares without a
// password are always unlocked.
func Unlocked(rec Record, flags FlagStore) bool {
	if !rec.HasPassword() {
		return true
	}
	return flags != nil && flags.Flag(UnlockFlag(rec.ID))
}

// Unlock checks password and on success marks the share unlocked for the
// rest of the session.
func Unlock(rec Record, password string, flags FlagStore) bool {
	if !VerifyPassword(rec, password) {
		return false
	}
	if rec.HasPassword() {
		flags.SetFlag(UnlockFlag(rec.ID))
	}
	return true
}
