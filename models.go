package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is derived from the active and email verified flags
type AccountStatus string

const (
	AccountStatusPending AccountStatus = "pending"
	AccountStatusActive  AccountStatus = "active"
)

// Account is the durable identity record
type Account struct {
	bun.BaseModel    `bun:"table:accounts,alias:acc"`
	ID               uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Email            string     `bun:"email,notnull,unique" json:"email"`
	Name             string     `bun:"name,notnull" json:"name"`
	PasswordHash     string     `bun:"password_hash,notnull" json:"-"`
	Role             Role       `bun:"role,notnull" json:"role"`
	Active           bool       `bun:"active,notnull" json:"active"`
	EmailVerified    bool       `bun:"email_verified,notnull" json:"email_verified"`
	PhoneNumber      string     `bun:"phone_number" json:"phone_number,omitempty"`
	SchoolID         string     `bun:"school_id" json:"school_id,omitempty"`
	TSCNumber        string     `bun:"tsc_number,nullzero,unique" json:"tsc_number,omitempty"`
	AdmissionNumber  string     `bun:"admission_number,nullzero,unique" json:"admission_number,omitempty"`
	Profile          Profile    `bun:"profile,type:jsonb" json:"profile"`
	FailedLoginCount int        `bun:"failed_login_count,notnull" json:"-"`
	LockedUntil      *time.Time `bun:"locked_until,nullzero" json:"locked_until,omitempty"`
	LastLoginAt      *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	LastLoginIP      string     `bun:"last_login_ip" json:"-"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt        time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// Profile holds the role specific attributes captured at registration.
// They are not interpreted after registration.
type Profile struct {
	InstitutionID            string   `json:"institution_id,omitempty"`
	SubjectsTaught           []string `json:"subjects_taught,omitempty"`
	ClassesAssigned          []string `json:"classes_assigned,omitempty"`
	Qualification            string   `json:"qualification,omitempty"`
	ClassName                string   `json:"class_name,omitempty"`
	DateOfBirth              string   `json:"date_of_birth,omitempty"`
	ParentGuardianContact    string   `json:"parent_guardian_contact,omitempty"`
	CountyOfResidence        string   `json:"county_of_residence,omitempty"`
	NationalID               string   `json:"national_id,omitempty"`
	ChildrenAdmissionNumbers []string `json:"children_admission_numbers,omitempty"`
	RelationshipToChildren   string   `json:"relationship_to_children,omitempty"`
	Address                  string   `json:"address,omitempty"`
}

// Status derives the account status from the approval flags
func (a *Account) Status() AccountStatus {
	if a.Active {
		return AccountStatusActive
	}
	return AccountStatusPending
}

// IsLocked reports whether a lockout window is open at now
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// NormalizeEmail trims and lowercases an email so lookups are case insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
