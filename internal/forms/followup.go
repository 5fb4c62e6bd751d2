package forms

import (
	"net/url"
	"strings"

	"github.com/wordsanctuary/guestbook/internal/models"
)

// OthersValue selects a free-text value in place of a predefined option.
const OthersValue = "others"

// FollowUpDraft is the minister's in-progress overlay for one guest.
type FollowUpDraft struct {
	GuestID          string
	ServiceDay       string
	CustomServiceDay string
	MinisterName     string
	LifeClassTeacher string
	JoinedChurch     string
	Department       string
	CustomDepartment string
	HodInCharge      string
	MinisterComment  string
}

// SetServiceDay picks a service day. Leaving "others" drops the custom text.
func (d *FollowUpDraft) SetServiceDay(v string) {
	d.ServiceDay = v
	if v != OthersValue {
		d.CustomServiceDay = ""
	}
}

// SetDepartment picks a department. Leaving "others" drops the custom text.
func (d *FollowUpDraft) SetDepartment(v string) {
	d.Department = v
	if v != OthersValue {
		d.CustomDepartment = ""
	}
}

// MinisterData resolves "others" to the custom values and returns the
// overlay sent to the Store.
func (d *FollowUpDraft) MinisterData() map[string]any {
	serviceDay := d.ServiceDay
	if serviceDay == OthersValue {
		serviceDay = d.CustomServiceDay
	}
	department := d.Department
	if department == OthersValue {
		department = d.CustomDepartment
	}
	return map[string]any{
		"serviceDay":       serviceDay,
		"ministerName":     d.MinisterName,
		"lifeClassTeacher": d.LifeClassTeacher,
		"joinedChurch":     d.JoinedChurch,
		"department":       department,
		"hodInCharge":      d.HodInCharge,
		"ministerComment":  d.MinisterComment,
	}
}

// FollowUpFromForm builds a draft from an HTML form post.
func FollowUpFromForm(form url.Values) *FollowUpDraft {
	get := func(k string) string { return strings.TrimSpace(form.Get(k)) }
	d := &FollowUpDraft{
		GuestID:          get("guestId"),
		MinisterName:     get("ministerName"),
		LifeClassTeacher: get("lifeClassTeacher"),
		JoinedChurch:     get("joinedChurch"),
		HodInCharge:      get("hodInCharge"),
		MinisterComment:  get("ministerComment"),
		CustomServiceDay: get("customServiceDay"),
		CustomDepartment: get("customDepartment"),
	}
	d.SetServiceDay(get("serviceDay"))
	d.SetDepartment(get("department"))
	return d
}

// DepartmentOptions lists the departments a minister may assign a guest.
// A guest who declined a department gets a leading "none" choice; every
// list ends with "others".
func DepartmentOptions(c *Catalog, g *models.Guest) []Option {
	out := make([]Option, 0, len(c.Departments)+2)
	if g != nil && g.JoinDepartment == "no" {
		out = append(out, Option{Value: "none", Label: "No Department (Guest's Original Choice)"})
	}
	out = append(out, c.Departments...)
	return append(out, Option{Value: OthersValue, Label: "Others (Specify)"})
}
