package model

// Role identifies the account kind an event is addressed to, or the kind
// the active session is authenticated as.
type Role string

const (
	RoleUser      Role = "user"
	RoleCraftsman Role = "craftsman"
	RoleCompany   Role = "company"
	RoleAdmin     Role = "admin"

	// RoleWorker is a historical alias for RoleCraftsman that still
	// appears in broadcast channel names and polled payloads.
	RoleWorker Role = "worker"
)

// NormalizeRole collapses role synonyms to their canonical form: a company
// account is addressed as a user, and "worker" is the legacy spelling of
// craftsman. Unknown roles pass through unchanged so the recipient guard
// can reject them by mismatch.
func NormalizeRole(r Role) Role {
	switch r {
	case RoleCompany:
		return RoleUser
	case RoleWorker:
		return RoleCraftsman
	default:
		return r
	}
}

// Identity is the (role, user ID) pair that scopes every notification,
// contact list, and push subscription.
type Identity struct {
	Role   Role  `json:"role"`
	UserID int64 `json:"user_id"`
}

// Matches reports whether the other identity addresses the same account,
// treating role synonyms as equal.
func (id Identity) Matches(other Identity) bool {
	return id.UserID == other.UserID &&
		NormalizeRole(id.Role) == NormalizeRole(other.Role)
}

// ChannelAliases returns every role spelling the push broker may use when
// naming this identity's channels. The first entry is the canonical form.
func (id Identity) ChannelAliases() []Role {
	switch NormalizeRole(id.Role) {
	case RoleUser:
		return []Role{RoleUser, RoleCompany}
	case RoleCraftsman:
		return []Role{RoleCraftsman, RoleWorker}
	default:
		return []Role{NormalizeRole(id.Role)}
	}
}
