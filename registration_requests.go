package identity

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const dateOfBirthLayout = "2006-01-02"

// RegistrationRequest is one of AdminRegistration, TeacherRegistration,
// StudentRegistration or ParentRegistration.
type RegistrationRequest interface {
	Role() Role
	Validate() error
	credentials() (name, email, password string)
	validate(now time.Time) error
	normalize()
	toAccount() *Account
}

// AdminRegistration registers a school administrator
type AdminRegistration struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	InstitutionID string `json:"institution_id"`
	AdminCode     string `json:"admin_code"`
}

// TeacherRegistration registers a TSC registered teacher
type TeacherRegistration struct {
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	PhoneNumber     string   `json:"phone_number"`
	TSCNumber       string   `json:"tsc_number"`
	SchoolID        string   `json:"school_id"`
	SubjectsTaught  []string `json:"subjects_taught"`
	ClassesAssigned []string `json:"classes_assigned"`
	Qualification   string   `json:"qualification"`
}

// StudentRegistration registers a learner
type StudentRegistration struct {
	Name                  string `json:"name"`
	Email                 string `json:"email"`
	Password              string `json:"password"`
	AdmissionNumber       string `json:"admission_number"`
	SchoolID              string `json:"school_id"`
	ClassName             string `json:"class_name"`
	DateOfBirth           string `json:"date_of_birth"`
	ParentGuardianContact string `json:"parent_guardian_contact"`
	CountyOfResidence     string `json:"county_of_residence"`
}

// ParentRegistration registers a parent or guardian
type ParentRegistration struct {
	Name                     string   `json:"name"`
	Email                    string   `json:"email"`
	Password                 string   `json:"password"`
	PhoneNumber              string   `json:"phone_number"`
	NationalID               string   `json:"national_id"`
	ChildrenAdmissionNumbers []string `json:"children_admission_numbers"`
	RelationshipToChildren   string   `json:"relationship_to_children"`
	Address                  string   `json:"address"`
}

var (
	_ RegistrationRequest = (*AdminRegistration)(nil)
	_ RegistrationRequest = (*TeacherRegistration)(nil)
	_ RegistrationRequest = (*StudentRegistration)(nil)
	_ RegistrationRequest = (*ParentRegistration)(nil)
)

func credentialRules(name, email, password *string) []*validation.FieldRules {
	return []*validation.FieldRules{
		validation.Field(name, validation.Required, validation.RuneLength(2, 100)),
		validation.Field(email, validation.Required, is.EmailFormat),
		validation.Field(password, validation.Required, validation.Length(8, 72)),
	}
}

func (r *AdminRegistration) Role() Role { return RoleAdmin }

// Validate checks the request the way registration sees it, after
// normalization. The receiver is left untouched.
func (r *AdminRegistration) Validate() error {
	normalized := *r
	normalized.normalize()
	return normalized.validate(time.Now())
}

func (r *AdminRegistration) credentials() (string, string, string) {
	return r.Name, r.Email, r.Password
}

func (r *AdminRegistration) validate(time.Time) error {
	rules := append(credentialRules(&r.Name, &r.Email, &r.Password),
		validation.Field(&r.InstitutionID, validation.Required),
		validation.Field(&r.AdminCode, validation.Required),
	)
	return validation.ValidateStruct(r, rules...)
}

func (r *AdminRegistration) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
	r.InstitutionID = strings.TrimSpace(r.InstitutionID)
}

func (r *AdminRegistration) toAccount() *Account {
	return &Account{
		Profile: Profile{InstitutionID: r.InstitutionID},
	}
}

func (r *TeacherRegistration) Role() Role { return RoleTeacher }

func (r *TeacherRegistration) Validate() error {
	normalized := *r
	normalized.normalize()
	return normalized.validate(time.Now())
}

func (r *TeacherRegistration) credentials() (string, string, string) {
	return r.Name, r.Email, r.Password
}

func (r *TeacherRegistration) validate(time.Time) error {
	rules := append(credentialRules(&r.Name, &r.Email, &r.Password),
		validation.Field(&r.PhoneNumber, validation.Required, KenyanPhone),
		validation.Field(&r.TSCNumber, validation.Required, validation.Length(1, 32)),
		validation.Field(&r.SchoolID, validation.Required),
		validation.Field(&r.SubjectsTaught, validation.Required, validation.Each(validation.Required)),
		validation.Field(&r.ClassesAssigned, validation.Required, validation.Each(validation.Required)),
		validation.Field(&r.Qualification, validation.Required),
	)
	return validation.ValidateStruct(r, rules...)
}

func (r *TeacherRegistration) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
	r.PhoneNumber = normalizePhoneOrKeep(r.PhoneNumber)
	r.TSCNumber = strings.ToUpper(strings.TrimSpace(r.TSCNumber))
	r.SchoolID = strings.TrimSpace(r.SchoolID)
	r.SubjectsTaught = trimAll(r.SubjectsTaught)
	r.ClassesAssigned = trimAll(r.ClassesAssigned)
}

func (r *TeacherRegistration) toAccount() *Account {
	return &Account{
		PhoneNumber: r.PhoneNumber,
		SchoolID:    r.SchoolID,
		TSCNumber:   r.TSCNumber,
		Profile: Profile{
			SubjectsTaught:  r.SubjectsTaught,
			ClassesAssigned: r.ClassesAssigned,
			Qualification:   strings.TrimSpace(r.Qualification),
		},
	}
}

func (r *StudentRegistration) Role() Role { return RoleStudent }

func (r *StudentRegistration) Validate() error {
	normalized := *r
	normalized.normalize()
	return normalized.validate(time.Now())
}

func (r *StudentRegistration) credentials() (string, string, string) {
	return r.Name, r.Email, r.Password
}

func (r *StudentRegistration) validate(now time.Time) error {
	rules := append(credentialRules(&r.Name, &r.Email, &r.Password),
		validation.Field(&r.AdmissionNumber, validation.Required, validation.Length(1, 32)),
		validation.Field(&r.SchoolID, validation.Required),
		validation.Field(&r.ClassName, validation.Required),
		validation.Field(&r.DateOfBirth, validation.Required,
			validation.Date(dateOfBirthLayout).Max(now).RangeError("must be in the past")),
		validation.Field(&r.ParentGuardianContact, KenyanPhone),
	)
	return validation.ValidateStruct(r, rules...)
}

func (r *StudentRegistration) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
	r.AdmissionNumber = strings.ToUpper(strings.TrimSpace(r.AdmissionNumber))
	r.SchoolID = strings.TrimSpace(r.SchoolID)
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
	if r.ParentGuardianContact != "" {
		r.ParentGuardianContact = normalizePhoneOrKeep(r.ParentGuardianContact)
	}
}

func (r *StudentRegistration) toAccount() *Account {
	return &Account{
		SchoolID:        r.SchoolID,
		AdmissionNumber: r.AdmissionNumber,
		Profile: Profile{
			ClassName:             strings.TrimSpace(r.ClassName),
			DateOfBirth:           r.DateOfBirth,
			ParentGuardianContact: r.ParentGuardianContact,
			CountyOfResidence:     strings.TrimSpace(r.CountyOfResidence),
		},
	}
}

func (r *ParentRegistration) Role() Role { return RoleParent }

func (r *ParentRegistration) Validate() error {
	normalized := *r
	normalized.normalize()
	return normalized.validate(time.Now())
}

func (r *ParentRegistration) credentials() (string, string, string) {
	return r.Name, r.Email, r.Password
}

func (r *ParentRegistration) validate(time.Time) error {
	rules := append(credentialRules(&r.Name, &r.Email, &r.Password),
		validation.Field(&r.PhoneNumber, validation.Required, KenyanPhone),
		validation.Field(&r.NationalID, validation.Required, NationalID),
		validation.Field(&r.ChildrenAdmissionNumbers, validation.Required, validation.Each(validation.Required)),
		validation.Field(&r.RelationshipToChildren, validation.Required),
	)
	return validation.ValidateStruct(r, rules...)
}

func (r *ParentRegistration) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
	r.PhoneNumber = normalizePhoneOrKeep(r.PhoneNumber)
	r.NationalID = strings.TrimSpace(r.NationalID)
	admissions := trimAll(r.ChildrenAdmissionNumbers)
	for i, a := range admissions {
		admissions[i] = strings.ToUpper(a)
	}
	r.ChildrenAdmissionNumbers = admissions
}

func (r *ParentRegistration) toAccount() *Account {
	return &Account{
		PhoneNumber: r.PhoneNumber,
		Profile: Profile{
			NationalID:               r.NationalID,
			ChildrenAdmissionNumbers: r.ChildrenAdmissionNumbers,
			RelationshipToChildren:   strings.TrimSpace(r.RelationshipToChildren),
			Address:                  strings.TrimSpace(r.Address),
		},
	}
}
