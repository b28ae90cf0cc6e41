// Package region maps raw region labels to the canonical names of Spain's
// autonomous communities and cities.
package region

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"fjacquet/ine-csv/internal/etlerror"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var embeddedTable []byte

// Region is one entry of the fixed enumeration.
type Region struct {
	Code     string   `yaml:"code"`
	Name     string   `yaml:"name"`
	Variants []string `yaml:"variants"`
}

type table struct {
	National []string `yaml:"national"`
	Regions  []Region `yaml:"regions"`
}

// Normalizer resolves raw labels against a static mapping table.
// It is read-only after construction and safe for concurrent use.
type Normalizer struct {
	regions  []Region
	exact    map[string]string
	folded   map[string]string
	national map[string]bool
}

// Default returns a Normalizer over the embedded table.
func Default() (*Normalizer, error) {
	return Load(embeddedTable)
}

// LoadFile builds a Normalizer from a YAML table on disk.
func LoadFile(path string) (*Normalizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading region table: %w", err)
	}
	return Load(data)
}

// Load builds a Normalizer from YAML. It fails if two canonical names claim
// the same variant, since every variant must map to exactly one region.
func Load(data []byte) (*Normalizer, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("error parsing region table: %w", err)
	}
	if len(t.Regions) == 0 {
		return nil, fmt.Errorf("region table has no regions")
	}

	n := &Normalizer{
		regions:  t.Regions,
		exact:    make(map[string]string),
		folded:   make(map[string]string),
		national: make(map[string]bool, len(t.National)),
	}

	for _, r := range t.Regions {
		if strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("region with code %q has no name", r.Code)
		}
		names := append([]string{r.Name}, r.Variants...)
		for _, v := range names {
			if err := n.add(v, r.Name); err != nil {
				return nil, err
			}
		}
	}

	for _, v := range t.National {
		key := Fold(v)
		if _, clash := n.folded[key]; clash {
			return nil, fmt.Errorf("national aggregate %q is also a region variant", v)
		}
		n.national[key] = true
	}

	sort.SliceStable(n.regions, func(i, j int) bool { return n.regions[i].Code < n.regions[j].Code })
	return n, nil
}

func (n *Normalizer) add(variant, canonical string) error {
	key := Fold(variant)
	if key == "" {
		return fmt.Errorf("empty variant for region %q", canonical)
	}
	if existing, ok := n.folded[key]; ok && existing != canonical {
		return fmt.Errorf("variant %q maps to both %q and %q", variant, existing, canonical)
	}
	n.folded[key] = canonical
	n.exact[variant] = canonical
	return nil
}

// Normalize returns the canonical name for raw, or an UnknownRegionError.
func (n *Normalizer) Normalize(raw string) (string, error) {
	if canonical, ok := n.exact[raw]; ok {
		return canonical, nil
	}
	if canonical, ok := n.folded[Fold(raw)]; ok {
		return canonical, nil
	}
	return "", &etlerror.UnknownRegionError{Names: []string{raw}}
}

// IsNationalAggregate reports whether raw names the national total rather
// than a region. Callers filter those rows before normalizing.
func (n *Normalizer) IsNationalAggregate(raw string) bool {
	return n.national[Fold(raw)]
}

// Canonical returns the enumeration ordered by INE community code.
func (n *Normalizer) Canonical() []Region {
	out := make([]Region, len(n.regions))
	copy(out, n.regions)
	return out
}

var dashes = strings.NewReplacer("–", "-", "—", "-", "‐", "-", "‑", "-", "−", "-")

// Fold reduces a label to its lookup key: lower case, no diacritics, one
// dash style with no spaces around it, single spaces.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	stripped = strings.ToLower(dashes.Replace(stripped))
	stripped = strings.Join(strings.Fields(stripped), " ")
	return strings.ReplaceAll(strings.ReplaceAll(stripped, " -", "-"), "- ", "-")
}
