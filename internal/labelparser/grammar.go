// Package labelparser extracts categorical attributes from INE series labels
// using per-dataset grammars expressed as data.
package labelparser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"fjacquet/ine-csv/internal/models"

	"gopkg.in/yaml.v3"
)

// Skip marks a segment that carries no attribute.
const Skip = "_"

// DefaultDelimiter separates label segments in most INE tables.
const DefaultDelimiter = ". "

// TransformSnakeLower lower-cases a value and replaces spaces with underscores.
const TransformSnakeLower = "snake_lower"

// Field describes one positional segment of a label.
type Field struct {
	Name        string            `yaml:"name"`
	StripPrefix string            `yaml:"strip_prefix,omitempty"`
	Transform   string            `yaml:"transform,omitempty"`
	Values      map[string]string `yaml:"values,omitempty"`
}

// UnmarshalYAML accepts either a bare field name or a full mapping.
func (f *Field) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		f.Name = node.Value
		return nil
	}
	type plain Field
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*f = Field(p)
	return nil
}

// Grammar is the declarative shape of a dataset's labels.
type Grammar struct {
	Delimiter  string  `yaml:"delimiter"`
	Fields     []Field `yaml:"fields"`
	AllowExtra bool    `yaml:"allow_extra"`
	// Greedy names the field that absorbs surplus segments, for values that
	// themselves contain the delimiter ("Asturias, Principado de").
	Greedy string `yaml:"greedy"`
	// Alternatives are tried in order when the label does not fit this
	// grammar. Each must produce the same attribute names.
	Alternatives []Grammar `yaml:"alternatives,omitempty"`
}

// Names returns the attribute names the grammar produces, in order.
func (g Grammar) Names() []string {
	names := make([]string, 0, len(g.Fields))
	for _, f := range g.Fields {
		if f.Name != Skip {
			names = append(names, f.Name)
		}
	}
	return names
}

type compiledField struct {
	Field
	strip *regexp.Regexp
}

// Parser applies a compiled Grammar and its alternatives. It is safe for
// concurrent use.
type Parser struct {
	variants []*variant
}

type variant struct {
	delimiter  string
	fields     []compiledField
	allowExtra bool
	greedy     int
}

// Compile validates the grammar and its alternatives and prepares them for
// parsing.
func Compile(g Grammar) (*Parser, error) {
	first, err := compileVariant(g)
	if err != nil {
		return nil, err
	}
	p := &Parser{variants: []*variant{first}}

	want := nameSet(g.Names())
	for i, alt := range g.Alternatives {
		if len(alt.Alternatives) > 0 {
			return nil, fmt.Errorf("alternative %d: alternatives cannot be nested", i+1)
		}
		v, err := compileVariant(alt)
		if err != nil {
			return nil, fmt.Errorf("alternative %d: %w", i+1, err)
		}
		if got := nameSet(alt.Names()); got != want {
			return nil, fmt.Errorf("alternative %d: produces [%s], want [%s]", i+1, got, want)
		}
		p.variants = append(p.variants, v)
	}
	return p, nil
}

func nameSet(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func compileVariant(g Grammar) (*variant, error) {
	if len(g.Fields) == 0 {
		return nil, fmt.Errorf("grammar has no fields")
	}

	p := &variant{
		delimiter:  g.Delimiter,
		allowExtra: g.AllowExtra,
		greedy:     -1,
	}
	if p.delimiter == "" {
		p.delimiter = DefaultDelimiter
	}

	seen := make(map[string]bool)
	for i, f := range g.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field %d has no name", i)
		}
		if f.Name != Skip {
			if seen[f.Name] {
				return nil, fmt.Errorf("field %q declared twice", f.Name)
			}
			seen[f.Name] = true
		}
		if f.Transform != "" && f.Transform != TransformSnakeLower {
			return nil, fmt.Errorf("field %q: unknown transform %q", f.Name, f.Transform)
		}

		cf := compiledField{Field: f}
		if f.StripPrefix != "" {
			re, err := regexp.Compile("^(?:" + f.StripPrefix + ")")
			if err != nil {
				return nil, fmt.Errorf("field %q: invalid strip_prefix: %w", f.Name, err)
			}
			cf.strip = re
		}
		if g.Greedy != "" && f.Name == g.Greedy {
			p.greedy = i
		}
		p.fields = append(p.fields, cf)
	}

	if g.Greedy != "" && p.greedy < 0 {
		return nil, fmt.Errorf("greedy field %q is not declared", g.Greedy)
	}
	return p, nil
}

// MustCompile is like Compile but panics on an invalid grammar.
func MustCompile(g Grammar) *Parser {
	p, err := Compile(g)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse extracts attributes from label with the first grammar that fits.
// It returns false and nil attributes when none does.
func (p *Parser) Parse(label string) (models.Attributes, bool) {
	cleaned := clean(label)
	for _, v := range p.variants {
		if attrs, ok := v.parse(cleaned); ok {
			return attrs, true
		}
	}
	return nil, false
}

func (p *variant) parse(label string) (models.Attributes, bool) {
	parts := strings.Split(label, p.delimiter)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	segments, ok := p.align(parts)
	if !ok {
		return nil, false
	}

	attrs := make(models.Attributes, len(p.fields))
	for i, f := range p.fields {
		if f.Name == Skip {
			continue
		}
		value := f.apply(segments[i])
		if value == "" {
			return nil, false
		}
		attrs[f.Name] = value
	}
	return attrs, true
}

// align maps label segments onto fields, one segment per field except for
// the greedy field, which takes whatever is left over.
func (p *variant) align(parts []string) ([]string, bool) {
	n := len(p.fields)
	switch {
	case len(parts) < n:
		return nil, false
	case len(parts) == n:
		return parts, true
	case p.greedy >= 0:
		extra := len(parts) - n
		out := make([]string, 0, n)
		out = append(out, parts[:p.greedy]...)
		out = append(out, strings.Join(parts[p.greedy:p.greedy+extra+1], p.delimiter))
		return append(out, parts[p.greedy+extra+1:]...), true
	case p.allowExtra:
		return parts[:n], true
	default:
		return nil, false
	}
}

func (f compiledField) apply(value string) string {
	if f.strip != nil {
		value = strings.TrimSpace(f.strip.ReplaceAllString(value, ""))
	}
	if mapped, ok := f.Values[value]; ok {
		return mapped
	}
	if f.Transform == TransformSnakeLower {
		value = strings.ReplaceAll(strings.ToLower(value), " ", "_")
	}
	return value
}

func clean(label string) string {
	s := strings.TrimSpace(label)
	s = strings.Trim(s, `"'`)
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".")
	return strings.TrimSpace(s)
}
