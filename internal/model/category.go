package model

import (
	"os"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Category is a canonical crime category collapsed from the feed's
// fine-grained offense descriptions.
type Category string

// CategoryMapping is the on-disk shape of the collapse table.
type CategoryMapping struct {
	// Collapse maps a fine-grained offense description to its canonical
	// category. Must be total over the known vocabulary.
	Collapse map[string]Category `yaml:"collapse"`
	// Violent marks canonical categories carrying the violent label.
	Violent []Category `yaml:"violent"`
}

// CategoryRegistry resolves offense descriptions to canonical categories and
// the violent/non-violent label. Descriptions outside the known vocabulary
// pass through as their own singleton category and are collected for manual
// addition to the table.
type CategoryRegistry struct {
	collapse map[string]Category
	violent  map[Category]bool

	mu      sync.Mutex
	unknown map[string]int
}

// NewCategoryRegistry builds a registry from a mapping table, validating
// that violent labels reference categories the collapse table can produce.
func NewCategoryRegistry(m CategoryMapping) (*CategoryRegistry, error) {
	if len(m.Collapse) == 0 {
		return nil, eris.New("category: empty collapse table")
	}
	produced := make(map[Category]bool, len(m.Collapse))
	for _, c := range m.Collapse {
		produced[c] = true
	}
	violent := make(map[Category]bool, len(m.Violent))
	for _, c := range m.Violent {
		if !produced[c] {
			return nil, eris.Errorf("category: violent label %q not produced by collapse table", c)
		}
		violent[c] = true
	}
	return &CategoryRegistry{
		collapse: m.Collapse,
		violent:  violent,
		unknown:  make(map[string]int),
	}, nil
}

// LoadCategoryMapping reads a mapping table from a YAML file.
func LoadCategoryMapping(path string) (CategoryMapping, error) {
	var m CategoryMapping
	data, err := os.ReadFile(path)
	if err != nil {
		return m, eris.Wrapf(err, "category: read %s", path)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, eris.Wrapf(err, "category: parse %s", path)
	}
	return m, nil
}

// Collapse resolves a description. known reports whether the description was
// in the vocabulary; when false the description itself is returned as a
// singleton category and recorded in the unknown set.
func (r *CategoryRegistry) Collapse(desc string) (cat Category, violent bool, known bool) {
	if c, ok := r.collapse[desc]; ok {
		return c, r.violent[c], true
	}
	r.mu.Lock()
	r.unknown[desc]++
	r.mu.Unlock()
	return Category(desc), false, false
}

// Unknown returns the descriptions seen outside the vocabulary, sorted, with
// occurrence counts.
func (r *CategoryRegistry) Unknown() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.unknown))
	for k, v := range r.unknown {
		out[k] = v
	}
	return out
}

// UnknownDescriptions returns just the sorted unknown descriptions.
func (r *CategoryRegistry) UnknownDescriptions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.unknown))
	for k := range r.unknown {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultCategoryMapping is the compiled-in collapse table for the municipal
// feed's offense vocabulary, used when no mapping file is configured.
func DefaultCategoryMapping() CategoryMapping {
	return CategoryMapping{
		Collapse: map[string]Category{
			"THEFT":                             "THEFT",
			"MOTOR VEHICLE THEFT":               "THEFT",
			"ROBBERY":                           "ROBBERY",
			"BURGLARY":                          "BURGLARY",
			"BATTERY":                           "BATTERY",
			"ASSAULT":                           "ASSAULT",
			"HOMICIDE":                          "HOMICIDE",
			"CRIM SEXUAL ASSAULT":               "SEX_OFFENSE",
			"CRIMINAL SEXUAL ASSAULT":           "SEX_OFFENSE",
			"SEX OFFENSE":                       "SEX_OFFENSE",
			"NARCOTICS":                         "NARCOTICS",
			"OTHER NARCOTIC VIOLATION":          "NARCOTICS",
			"CRIMINAL DAMAGE":                   "DAMAGE",
			"CRIMINAL TRESPASS":                 "TRESPASS",
			"WEAPONS VIOLATION":                 "WEAPONS",
			"CONCEALED CARRY LICENSE VIOLATION": "WEAPONS",
			"DECEPTIVE PRACTICE":                "FRAUD",
			"PUBLIC PEACE VIOLATION":            "PUBLIC_ORDER",
			"INTERFERENCE WITH PUBLIC OFFICER":  "PUBLIC_ORDER",
			"OBSCENITY":                         "PUBLIC_ORDER",
			"PUBLIC INDECENCY":                  "PUBLIC_ORDER",
			"GAMBLING":                          "PUBLIC_ORDER",
			"LIQUOR LAW VIOLATION":              "PUBLIC_ORDER",
			"PROSTITUTION":                      "PUBLIC_ORDER",
			"ARSON":                             "ARSON",
			"KIDNAPPING":                        "KIDNAPPING",
			"OFFENSE INVOLVING CHILDREN":        "OFFENSE_CHILDREN",
			"INTIMIDATION":                      "INTIMIDATION",
			"STALKING":                          "STALKING",
			"HUMAN TRAFFICKING":                 "TRAFFICKING",
			"OTHER OFFENSE":                     "OTHER",
			"NON-CRIMINAL":                      "OTHER",
		},
		Violent: []Category{
			"ROBBERY", "BATTERY", "ASSAULT", "HOMICIDE", "SEX_OFFENSE",
			"WEAPONS", "KIDNAPPING", "INTIMIDATION", "STALKING",
			"TRAFFICKING", "OFFENSE_CHILDREN",
		},
	}
}
