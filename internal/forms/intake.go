package forms

import (
	"net/url"
	"sort"
	"strings"
)

// intakeFields are the fields a guest fills in, in form order.
var intakeFields = []string{
	"fullName", "phoneNumber", "whatsappNumber", "email", "profession",
	"schoolLevel", "schoolDepartment", "gender", "maritalStatus", "howDidYouHear",
	"invitedBy", "houseAddress", "officeAddress", "birthday", "bestReachMethod",
	"joinChurch", "joinDepartment", "selectedDepartment",
}

// IntakeDraft is an in-progress guest submission. Changing a controlling
// field clears the fields that only apply to its previous value; cleared
// values are gone for good.
type IntakeDraft struct {
	catalog   *Catalog
	values    map[string]string
	blessings map[string]bool
}

func NewIntakeDraft(c *Catalog) *IntakeDraft {
	return &IntakeDraft{
		catalog:   c,
		values:    make(map[string]string, len(intakeFields)),
		blessings: make(map[string]bool),
	}
}

// Set assigns one field and applies the conditional clearing rules.
func (d *IntakeDraft) Set(field, value string) {
	d.values[field] = value

	switch field {
	case "profession":
		if value != "student" {
			delete(d.values, "schoolLevel")
			delete(d.values, "schoolDepartment")
		}
		if value != "working-class" {
			delete(d.values, "officeAddress")
		}
	case "howDidYouHear":
		if value != "friend" && value != "evangelism" {
			delete(d.values, "invitedBy")
		}
	case "joinDepartment":
		if value != "yes" {
			delete(d.values, "selectedDepartment")
		}
	}
}

// Get returns the current value of a field.
func (d *IntakeDraft) Get(field string) string {
	return d.values[field]
}

// ToggleBlessing checks or unchecks one predefined tag. Unknown tags are ignored.
func (d *IntakeDraft) ToggleBlessing(tag string, on bool) {
	if d.catalog.blessingRank(tag) < 0 {
		return
	}
	if on {
		d.blessings[tag] = true
	} else {
		delete(d.blessings, tag)
	}
}

// Blessings returns the checked tags in catalog order.
func (d *IntakeDraft) Blessings() []string {
	out := make([]string, 0, len(d.blessings))
	for tag := range d.blessings {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool {
		return d.catalog.blessingRank(out[i]) < d.catalog.blessingRank(out[j])
	})
	return out
}

// Payload is the submission body: every filled field plus the comma-joined
// blessings.
func (d *IntakeDraft) Payload() map[string]any {
	p := make(map[string]any, len(d.values)+1)
	for k, v := range d.values {
		if v != "" {
			p[k] = v
		}
	}
	p["blessings"] = strings.Join(d.Blessings(), ", ")
	return p
}

// IntakeFromForm replays an HTML form post through a draft, controlling
// fields first so dependent values submitted alongside them survive only
// when they still apply.
func IntakeFromForm(c *Catalog, form url.Values) *IntakeDraft {
	d := NewIntakeDraft(c)
	for _, f := range []string{"profession", "howDidYouHear", "joinDepartment"} {
		if v := strings.TrimSpace(form.Get(f)); v != "" {
			d.Set(f, v)
		}
	}
	for _, f := range intakeFields {
		v := strings.TrimSpace(form.Get(f))
		if v == "" || isController(f) || !d.applies(f) {
			continue
		}
		d.values[f] = v
	}
	for _, tag := range form["blessings"] {
		for _, t := range strings.Split(tag, ",") {
			d.ToggleBlessing(strings.TrimSpace(t), true)
		}
	}
	return d
}

func isController(field string) bool {
	return field == "profession" || field == "howDidYouHear" || field == "joinDepartment"
}

// applies reports whether a dependent field is shown for the current
// controlling values.
func (d *IntakeDraft) applies(field string) bool {
	switch field {
	case "schoolLevel", "schoolDepartment":
		return d.values["profession"] == "student"
	case "officeAddress":
		return d.values["profession"] == "working-class"
	case "invitedBy":
		h := d.values["howDidYouHear"]
		return h == "friend" || h == "evangelism"
	case "selectedDepartment":
		return d.values["joinDepartment"] == "yes"
	}
	return true
}
