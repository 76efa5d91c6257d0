// Package notify turns account lifecycle changes into outbound messages and
// delivers them off the request path.
package notify

import (
	"fmt"
	"strings"
	"time"

	identity "github.com/elimuconnect/go-identity"
	"github.com/google/uuid"
)

// Kind identifies the lifecycle change a message reports
type Kind string

const (
	KindRegistration Kind = "registration"
	KindApproval     Kind = "approval"
	KindRejection    Kind = "rejection"
)

// Detail is one labelled line in a message
type Detail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Message is what a Sender delivers
type Message struct {
	ID        uuid.UUID     `json:"id"`
	Kind      Kind          `json:"kind"`
	To        string        `json:"to"`
	Subject   string        `json:"subject"`
	Body      string        `json:"body"`
	AccountID uuid.UUID     `json:"account_id"`
	Role      identity.Role `json:"role"`
	Details   []Detail      `json:"details,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Composer renders messages for the platform mailboxes
type Composer struct {
	Platform     string
	AdminEmail   string
	SupportEmail string
	SupportPhone string
	Clock        func() time.Time
}

func (c Composer) platform() string {
	if c.Platform == "" {
		return "ElimuConnect"
	}
	return c.Platform
}

func (c Composer) now() time.Time {
	if c.Clock == nil {
		return time.Now().UTC()
	}
	return c.Clock().UTC()
}

// Registration goes to the administrator mailbox
func (c Composer) Registration(acc *identity.Account) Message {
	details := append(commonDetails(acc), RoleDetails(acc)...)

	var b strings.Builder
	fmt.Fprintf(&b, "A new user has registered on %s", c.platform())
	if acc.Active {
		b.WriteString(".\n\n")
	} else {
		b.WriteString(" and requires approval.\n\n")
	}
	writeDetails(&b, details)
	if !acc.Active {
		b.WriteString("\nPlease review and approve or reject this registration through the admin dashboard.\n")
	}
	c.writeFooter(&b)

	return c.message(KindRegistration, c.AdminEmail, "New User Registration - "+c.platform(), b.String(), acc, details)
}

// Approval goes to the account holder
func (c Composer) Approval(acc *identity.Account) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", acc.Name)
	fmt.Fprintf(&b, "Your %s registration on %s has been approved. You can now sign in with %s.\n",
		strings.ToLower(string(acc.Role)), c.platform(), acc.Email)
	c.writeFooter(&b)

	return c.message(KindApproval, acc.Email, "Registration Approved - "+c.platform(), b.String(), acc, nil)
}

// Rejection goes to the account holder and carries the reason
func (c Composer) Rejection(acc *identity.Account, reason string) Message {
	if reason == "" {
		reason = "No reason provided"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", acc.Name)
	fmt.Fprintf(&b, "We were unable to approve your registration on %s.\n\n", c.platform())
	fmt.Fprintf(&b, "Reason: %s\n\n", reason)
	b.WriteString("You are welcome to register again with corrected details.\n")
	c.writeFooter(&b)

	details := []Detail{{Label: "Reason", Value: reason}}
	return c.message(KindRejection, acc.Email, "Registration Update - "+c.platform(), b.String(), acc, details)
}

func (c Composer) message(kind Kind, to, subject, body string, acc *identity.Account, details []Detail) Message {
	return Message{
		ID:        uuid.New(),
		Kind:      kind,
		To:        to,
		Subject:   subject,
		Body:      body,
		AccountID: acc.ID,
		Role:      acc.Role,
		Details:   details,
		CreatedAt: c.now(),
	}
}

func (c Composer) writeFooter(b *strings.Builder) {
	if c.SupportEmail == "" && c.SupportPhone == "" {
		return
	}
	b.WriteString("\nSupport contact:")
	if c.SupportEmail != "" {
		fmt.Fprintf(b, " %s", c.SupportEmail)
	}
	if c.SupportPhone != "" {
		fmt.Fprintf(b, " %s", c.SupportPhone)
	}
	b.WriteString("\n")
}

func commonDetails(acc *identity.Account) []Detail {
	phone := acc.PhoneNumber
	if phone == "" {
		phone = "Not provided"
	}
	return []Detail{
		{Label: "Name", Value: acc.Name},
		{Label: "Email", Value: acc.Email},
		{Label: "Role", Value: string(acc.Role)},
		{Label: "Phone", Value: phone},
	}
}

// RoleDetails lists the role specific attributes worth showing a reviewer
func RoleDetails(acc *identity.Account) []Detail {
	switch acc.Role {
	case identity.RoleAdmin:
		return []Detail{
			{Label: "Institution ID", Value: acc.Profile.InstitutionID},
		}
	case identity.RoleTeacher:
		return []Detail{
			{Label: "TSC Number", Value: acc.TSCNumber},
			{Label: "School ID", Value: acc.SchoolID},
			{Label: "Qualification", Value: acc.Profile.Qualification},
			{Label: "Subjects", Value: strings.Join(acc.Profile.SubjectsTaught, ", ")},
		}
	case identity.RoleStudent:
		return []Detail{
			{Label: "Admission Number", Value: acc.AdmissionNumber},
			{Label: "School ID", Value: acc.SchoolID},
			{Label: "Class", Value: acc.Profile.ClassName},
		}
	case identity.RoleParent:
		return []Detail{
			{Label: "National ID", Value: acc.Profile.NationalID},
			{Label: "Children", Value: strings.Join(acc.Profile.ChildrenAdmissionNumbers, ", ")},
			{Label: "Relationship", Value: acc.Profile.RelationshipToChildren},
		}
	default:
		return nil
	}
}

func writeDetails(b *strings.Builder, details []Detail) {
	for _, d := range details {
		fmt.Fprintf(b, "%s: %s\n", d.Label, d.Value)
	}
}
