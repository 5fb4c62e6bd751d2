package forms

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Option is one selectable value.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Catalog lists every predefined choice the forms offer.
type Catalog struct {
	Professions     []Option `yaml:"professions" json:"professions"`
	Genders         []Option `yaml:"genders" json:"genders"`
	MaritalStatuses []Option `yaml:"maritalStatuses" json:"maritalStatuses"`
	ReferralSources []Option `yaml:"referralSources" json:"referralSources"`
	ReachMethods    []Option `yaml:"reachMethods" json:"reachMethods"`
	Departments     []Option `yaml:"departments" json:"departments"`
	ServiceDays     []Option `yaml:"serviceDays" json:"serviceDays"`
	Blessings       []string `yaml:"blessings" json:"blessings"`
}

var (
	catalogOnce sync.Once
	catalog     *Catalog
	catalogErr  error
)

// LoadCatalog parses the embedded catalog once.
func LoadCatalog() (*Catalog, error) {
	catalogOnce.Do(func() {
		catalog, catalogErr = ParseCatalog(catalogYAML)
	})
	return catalog, catalogErr
}

// MustCatalog is LoadCatalog for callers that cannot continue without it.
func MustCatalog() *Catalog {
	c, err := LoadCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// ParseCatalog decodes a catalog document.
func ParseCatalog(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Departments) == 0 || len(c.Blessings) == 0 {
		return nil, fmt.Errorf("parse catalog: departments and blessings are required")
	}
	return &c, nil
}

// blessingRank returns the position of a tag in the predefined order, or -1.
func (c *Catalog) blessingRank(tag string) int {
	for i, b := range c.Blessings {
		if b == tag {
			return i
		}
	}
	return -1
}
