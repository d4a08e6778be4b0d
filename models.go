package directory

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// UserStatus is the lifecycle state of an account
type UserStatus = string

const (
	// UserStatusActive accounts are the only ones allowed to authenticate
	UserStatusActive UserStatus = "ACTIVE"
	// UserStatusInactive marks accounts turned off by an administrator
	UserStatusInactive UserStatus = "INACTIVE"
	// UserStatusPending is the default for auto provisioned federated accounts
	UserStatusPending UserStatus = "PENDING"
	// UserStatusSuspended marks temporarily blocked accounts
	UserStatusSuspended UserStatus = "SUSPENDED"
	// UserStatusDeleted mirrors the soft delete flag for display purposes
	UserStatusDeleted UserStatus = "DELETED"
)

// DefaultProfilePicture is the sentinel avatar stored when a federated
// profile carries no picture.
const DefaultProfilePicture = "https://www.gravatar.com/avatar/?d=mp"

// User is the directory account model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID             int64      `bun:"id,pk" json:"id"`
	Email          string     `bun:"email,notnull,unique" json:"email"`
	Username       string     `bun:"username,notnull,unique" json:"username"`
	FirstName      string     `bun:"first_name" json:"first_name,omitempty"`
	LastName       string     `bun:"last_name" json:"last_name,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	Role           UserRole   `bun:"user_role,notnull" json:"role"`
	Status         UserStatus `bun:"status,notnull" json:"status"`
	Campus         string     `bun:"campus" json:"campus,omitempty"`
	Department     string     `bun:"department" json:"department,omitempty"`
	Phone          string     `bun:"phone_number" json:"phone_number,omitempty"`
	ProfilePicture string     `bun:"profile_picture" json:"profile_picture,omitempty"`

	// Hierarchy references are descriptive metadata only, they carry no
	// weight in authorization decisions.
	VicePresidentID   *int64 `bun:"vice_president_id" json:"vice_president_id,omitempty"`
	VicePresidentName string `bun:"vice_president_name" json:"vice_president_name,omitempty"`
	DirectorID        *int64 `bun:"director_id" json:"director_id,omitempty"`
	DirectorName      string `bun:"director_name" json:"director_name,omitempty"`
	OfficeHeadID      *int64 `bun:"office_head_id" json:"office_head_id,omitempty"`
	OfficeHeadName    string `bun:"office_head_name" json:"office_head_name,omitempty"`

	// Deleted is a soft delete flag independent of Status. A deleted account
	// must never authenticate even if Status is stale.
	Deleted bool `bun:"is_deleted" json:"-"`

	LoggedInAt *time.Time `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt  *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt  *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus backfills the default status on records created before the
// status column existed.
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusActive
	}
}

// CanAuthenticate reports whether the account satisfies the invariant
// required for every authenticated operation: not deleted and ACTIVE.
func (u *User) CanAuthenticate() bool {
	if u == nil || u.Deleted {
		return false
	}
	return u.Status == UserStatusActive
}

// FullName joins the name parts for display.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Sanitize returns a copy safe to serialize outward: the password hash is
// stripped. The JSON tags already hide the hash, this guards non JSON paths.
func (u *User) Sanitize() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	return &clone
}

// NormalizeEmail lower-cases and trims an email so lookups and unique
// constraints agree on a single spelling.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
