package models

import "encoding/json"

// Status is the follow-up lifecycle state of a guest.
type Status string

const (
	StatusPending   Status = "Pending Minister Follow-up"
	StatusCompleted Status = "Completed"
)

// IsPending reports whether the guest still waits for a minister.
func (s Status) IsPending() bool { return s == StatusPending }

// Guest is one row of the spreadsheet: the intake submission plus the
// minister follow-up overlay. Every value is kept as the string the Store
// holds; Extra carries columns this service does not know about.
type Guest struct {
	ID                 string `json:"id"`
	FullName           string `json:"fullName,omitempty"`
	Email              string `json:"email,omitempty"`
	PhoneNumber        string `json:"phoneNumber,omitempty"`
	WhatsappNumber     string `json:"whatsappNumber,omitempty"`
	Profession         string `json:"profession,omitempty"`
	SchoolLevel        string `json:"schoolLevel,omitempty"`
	SchoolDepartment   string `json:"schoolDepartment,omitempty"`
	Gender             string `json:"gender,omitempty"`
	MaritalStatus      string `json:"maritalStatus,omitempty"`
	HowDidYouHear      string `json:"howDidYouHear,omitempty"`
	InvitedBy          string `json:"invitedBy,omitempty"`
	HouseAddress       string `json:"houseAddress,omitempty"`
	OfficeAddress      string `json:"officeAddress,omitempty"`
	Birthday           string `json:"birthday,omitempty"`
	BestReachMethod    string `json:"bestReachMethod,omitempty"`
	JoinChurch         string `json:"joinChurch,omitempty"`
	JoinDepartment     string `json:"joinDepartment,omitempty"`
	SelectedDepartment string `json:"selectedDepartment,omitempty"`
	Blessings          string `json:"blessings,omitempty"`
	SubmissionDate     string `json:"submissionDate,omitempty"`
	Status             Status `json:"status,omitempty"`

	FollowUp

	Extra map[string]string `json:"-"`
}

// FollowUp is the overlay a minister writes once per guest.
type FollowUp struct {
	ServiceDay       string `json:"serviceDay,omitempty"`
	MinisterName     string `json:"ministerName,omitempty"`
	LifeClassTeacher string `json:"lifeClassTeacher,omitempty"`
	JoinedChurch     string `json:"joinedChurch,omitempty"`
	Department       string `json:"department,omitempty"`
	HodInCharge      string `json:"hodInCharge,omitempty"`
	MinisterComment  string `json:"ministerComment,omitempty"`
	CompletedDate    string `json:"completedDate,omitempty"`
}

// field returns a pointer to the struct field behind a canonical name.
func (g *Guest) field(name string) *string {
	switch name {
	case "id":
		return &g.ID
	case "fullName":
		return &g.FullName
	case "email":
		return &g.Email
	case "phoneNumber":
		return &g.PhoneNumber
	case "whatsappNumber":
		return &g.WhatsappNumber
	case "profession":
		return &g.Profession
	case "schoolLevel":
		return &g.SchoolLevel
	case "schoolDepartment":
		return &g.SchoolDepartment
	case "gender":
		return &g.Gender
	case "maritalStatus":
		return &g.MaritalStatus
	case "howDidYouHear":
		return &g.HowDidYouHear
	case "invitedBy":
		return &g.InvitedBy
	case "houseAddress":
		return &g.HouseAddress
	case "officeAddress":
		return &g.OfficeAddress
	case "birthday":
		return &g.Birthday
	case "bestReachMethod":
		return &g.BestReachMethod
	case "joinChurch":
		return &g.JoinChurch
	case "joinDepartment":
		return &g.JoinDepartment
	case "selectedDepartment":
		return &g.SelectedDepartment
	case "blessings":
		return &g.Blessings
	case "submissionDate":
		return &g.SubmissionDate
	case "serviceDay":
		return &g.ServiceDay
	case "ministerName":
		return &g.MinisterName
	case "lifeClassTeacher":
		return &g.LifeClassTeacher
	case "joinedChurch":
		return &g.JoinedChurch
	case "department":
		return &g.Department
	case "hodInCharge":
		return &g.HodInCharge
	case "ministerComment":
		return &g.MinisterComment
	case "completedDate":
		return &g.CompletedDate
	}
	return nil
}

// Set assigns a value by canonical field name. Unknown names land in Extra.
func (g *Guest) Set(name, value string) {
	if name == "status" {
		g.Status = Status(value)
		return
	}
	if p := g.field(name); p != nil {
		*p = value
		return
	}
	if g.Extra == nil {
		g.Extra = make(map[string]string)
	}
	g.Extra[name] = value
}

// Get reads a value by canonical field name.
func (g *Guest) Get(name string) string {
	if name == "status" {
		return string(g.Status)
	}
	if p := g.field(name); p != nil {
		return *p
	}
	return g.Extra[name]
}

type guestJSON Guest

// MarshalJSON emits the known fields in camelCase followed by Extra under
// the key the Store used.
func (g Guest) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(guestJSON(g))
	if err != nil || len(g.Extra) == 0 {
		return base, err
	}
	var m map[string]any
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	for k, v := range g.Extra {
		if _, taken := m[k]; !taken {
			m[k] = v
		}
	}
	return json.Marshal(m)
}
