package sheets

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/wordsanctuary/guestbook/internal/models"
)

// canonicalFields lists every field the service understands, in camelCase.
var canonicalFields = []string{
	"id", "fullName", "email", "phoneNumber", "whatsappNumber", "profession",
	"schoolLevel", "schoolDepartment", "gender", "maritalStatus", "howDidYouHear",
	"invitedBy", "houseAddress", "officeAddress", "birthday", "bestReachMethod",
	"joinChurch", "joinDepartment", "selectedDepartment", "blessings",
	"submissionDate", "status",
	"serviceDay", "ministerName", "lifeClassTeacher", "joinedChurch", "department",
	"hodInCharge", "ministerComment", "completedDate",
}

// sheetAliases covers header spellings that do not flatten to a canonical name.
var sheetAliases = map[string]string{
	"departmentassigned": "department",
	"ministercomments":   "ministerComment",
	"guestid":            "id",
	"name":               "fullName",
	"phone":              "phoneNumber",
	"whatsapp":           "whatsappNumber",
}

// aliases maps a flattened key to its canonical field name.
var aliases = func() map[string]string {
	m := make(map[string]string, len(canonicalFields)+len(sheetAliases))
	for _, f := range canonicalFields {
		m[flatten(f)] = f
	}
	for k, v := range sheetAliases {
		m[k] = v
	}
	return m
}()

// flatten lowercases a key and drops whitespace, underscores and hyphens:
// "Phone Number", "phone_number" and "phoneNumber" all become "phonenumber".
func flatten(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range strings.ToLower(key) {
		switch r {
		case ' ', '\t', '\n', '\r', '_', '-':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CanonicalName returns the canonical field for any accepted spelling.
func CanonicalName(key string) (string, bool) {
	name, ok := aliases[flatten(key)]
	return name, ok
}

// Canonicalize turns one raw Store object into a Guest. Keys are resolved
// through the alias table once; unknown keys are kept in Extra verbatim. When
// two spellings of the same field are present the non-empty camelCase one wins.
func Canonicalize(raw map[string]any) models.Guest {
	var g models.Guest
	for key, v := range raw {
		value := stringify(v)
		name, ok := CanonicalName(key)
		if !ok {
			g.Set(key, value)
			continue
		}
		if value == "" || (key != name && g.Get(name) != "") {
			continue
		}
		g.Set(name, value)
	}
	return g
}

// stringify renders a JSON scalar the way the sheet displays it. Numbers come
// in as json.Number so long ids keep every digit.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, p := range x {
			if s := stringify(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
