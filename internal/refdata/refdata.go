// Package refdata holds the static country reference table used by the
// booking wizard: dial codes, cities and nationalities per country.
package refdata

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"
)

//go:embed countries.yaml
var embeddedCountries []byte

// Country is one entry of the reference table
type Country struct {
	Code        string   `yaml:"code" json:"code"`
	Name        string   `yaml:"name" json:"name"`
	DialCode    string   `yaml:"dial_code" json:"dial_code"`
	Nationality string   `yaml:"nationality" json:"nationality"`
	Cities      []string `yaml:"cities" json:"cities"`
}

// Nationality is a selectable passenger nationality
type Nationality struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type document struct {
	Countries []Country `yaml:"countries"`
}

// Catalog is an immutable lookup from country code to dial code and cities
type Catalog struct {
	countries []Country
	byCode    map[string]Country
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog built from the embedded table
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embeddedCountries)
		if err != nil {
			panic(fmt.Sprintf("refdata: embedded countries table is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// LoadFile reads a catalog from a YAML file. An empty path yields Default().
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference data: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse reference data: %w", err)
	}
	if len(doc.Countries) == 0 {
		return nil, fmt.Errorf("reference data has no countries")
	}

	c := &Catalog{byCode: make(map[string]Country, len(doc.Countries))}
	for _, country := range doc.Countries {
		code := strings.ToUpper(strings.TrimSpace(country.Code))
		if code == "" {
			return nil, fmt.Errorf("country %q has no code", country.Name)
		}
		if _, dup := c.byCode[code]; dup {
			return nil, fmt.Errorf("duplicate country code %s", code)
		}
		if country.DialCode == "" {
			return nil, fmt.Errorf("country %s has no dial code", code)
		}
		country.Code = code
		country.Cities = append([]string(nil), country.Cities...)
		c.byCode[code] = country
		c.countries = append(c.countries, country)
	}
	sort.SliceStable(c.countries, func(i, j int) bool {
		return c.countries[i].Name < c.countries[j].Name
	})
	return c, nil
}

// Country looks up a country by ISO code
func (c *Catalog) Country(code string) (Country, bool) {
	country, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Country{}, false
	}
	country.Cities = append([]string(nil), country.Cities...)
	return country, true
}

// Countries lists all countries ordered by name
func (c *Catalog) Countries() []Country {
	out := make([]Country, len(c.countries))
	for i, country := range c.countries {
		country.Cities = append([]string(nil), country.Cities...)
		out[i] = country
	}
	return out
}

// Cities lists the selectable cities of a country
func (c *Catalog) Cities(code string) ([]string, bool) {
	country, ok := c.Country(code)
	if !ok {
		return nil, false
	}
	return country.Cities, true
}

// HasCity reports whether city is one of the country's cities, ignoring case
func (c *Catalog) HasCity(code, city string) bool {
	country, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return false
	}
	city = strings.TrimSpace(city)
	for _, known := range country.Cities {
		if strings.EqualFold(known, city) {
			return true
		}
	}
	return false
}

// CanonicalCity returns the catalog spelling of city
func (c *Catalog) CanonicalCity(code, city string) string {
	country, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return city
	}
	for _, known := range country.Cities {
		if strings.EqualFold(known, strings.TrimSpace(city)) {
			return known
		}
	}
	return city
}

// Nationalities lists the closed set of passenger nationalities
func (c *Catalog) Nationalities() []Nationality {
	out := make([]Nationality, 0, len(c.countries))
	for _, country := range c.countries {
		if country.Nationality == "" {
			continue
		}
		out = append(out, Nationality{Code: country.Code, Name: country.Nationality})
	}
	return out
}

// IsNationality reports whether v names a known nationality, by code or name
func (c *Catalog) IsNationality(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	if country, ok := c.byCode[strings.ToUpper(v)]; ok && country.Nationality != "" {
		return true
	}
	for _, country := range c.countries {
		if strings.EqualFold(country.Nationality, v) {
			return true
		}
	}
	return false
}
