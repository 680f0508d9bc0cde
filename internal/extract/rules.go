package extract

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/upi-extractor/constants"
	"github.com/joseph-ayodele/upi-extractor/internal/common"
)

//go:embed rules/*.yaml
var embeddedRules embed.FS

//go:embed schema.json
var tableSchemaJSON []byte

// Rule is one pattern for one field. Pattern is matched against the whole prepared text,
// unless NextLine is set: then Pattern must match a label line and NextLine is applied to
// the next non-empty line. A rule with Value emits that constant instead of a capture.
type Rule struct {
	Name       string  `yaml:"name" json:"name"`
	Field      string  `yaml:"field" json:"field"`
	Pattern    string  `yaml:"pattern" json:"pattern"`
	NextLine   string  `yaml:"next_line,omitempty" json:"next_line,omitempty"`
	Transform  string  `yaml:"transform,omitempty" json:"transform,omitempty"`
	Value      string  `yaml:"value,omitempty" json:"value,omitempty"`
	Priority   int     `yaml:"priority" json:"priority"`
	Confidence float64 `yaml:"confidence" json:"confidence"`

	re      *regexp.Regexp
	valueRe *regexp.Regexp
	xform   transformFunc
	order   int
}

// Table is the ordered rule list for one source type.
type Table struct {
	SourceType constants.SourceType `yaml:"source_type" json:"source_type"`
	Rules      []Rule               `yaml:"rules" json:"rules"`
}

var tableSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(tableSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// ParseTable decodes a YAML rule table, validates it against the table schema and compiles its patterns.
func ParseTable(name string, data []byte) (Table, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Table{}, rulesError(name, "decode yaml", err)
	}
	if err := validateDoc(doc); err != nil {
		return Table{}, rulesError(name, "schema", err)
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, rulesError(name, "decode table", err)
	}
	if err := t.compile(); err != nil {
		return Table{}, rulesError(name, "compile", err)
	}
	return t, nil
}

// validateDoc round-trips the YAML document through JSON so the validator sees plain JSON types.
func validateDoc(doc any) error {
	schema, err := tableSchema()
	if err != nil {
		return err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("table does not match schema: %w", err)
	}
	return nil
}

func (t *Table) compile() error {
	seen := map[string]bool{}
	for i := range t.Rules {
		r := &t.Rules[i]
		if seen[r.Name] {
			return fmt.Errorf("duplicate rule name %q", r.Name)
		}
		seen[r.Name] = true
		r.order = i

		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("rule %s: pattern: %w", r.Name, err)
		}
		r.re = re

		capturing := re
		if r.NextLine != "" {
			vre, err := regexp.Compile(r.NextLine)
			if err != nil {
				return fmt.Errorf("rule %s: next_line: %w", r.Name, err)
			}
			r.valueRe = vre
			capturing = vre
		}
		if r.Value == "" && capturing.NumSubexp() < 1 {
			return fmt.Errorf("rule %s: pattern needs a capture group or a value", r.Name)
		}

		xf, ok := transforms[r.Transform]
		if !ok {
			return fmt.Errorf("rule %s: unknown transform %q", r.Name, r.Transform)
		}
		r.xform = xf
	}
	return nil
}

// DefaultTables returns the rule tables compiled into the binary.
func DefaultTables() ([]Table, error) {
	entries, err := embeddedRules.ReadDir("rules")
	if err != nil {
		return nil, common.NewAppError(common.CodeRules, "read embedded rules", err)
	}
	var tables []Table
	for _, e := range entries {
		data, err := embeddedRules.ReadFile("rules/" + e.Name())
		if err != nil {
			return nil, common.NewAppError(common.CodeRules, "read embedded rules", err)
		}
		t, err := ParseTable(e.Name(), data)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// LoadRuleDir reads *.yaml / *.yml tables from dir. A table replaces the built-in table
// of the same source type; source types without a file keep the built-in rules.
func LoadRuleDir(dir string) ([]Table, error) {
	tables, err := DefaultTables()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return tables, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, common.NewAppError(common.CodeRules, "read rules dir "+dir, err)
	}
	byType := map[constants.SourceType]Table{}
	for _, t := range tables {
		byType[t.SourceType] = t
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, common.NewAppError(common.CodeRules, "read "+path, err)
		}
		t, err := ParseTable(path, data)
		if err != nil {
			return nil, err
		}
		byType[t.SourceType] = t
	}

	out := make([]Table, 0, len(byType))
	for _, st := range constants.SourceTypes() {
		if t, ok := byType[st]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// byPriority groups a field's rules into priority levels, keeping table order inside a level.
func byPriority(rules []*Rule) [][]*Rule {
	sorted := append([]*Rule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	var levels [][]*Rule
	for i, r := range sorted {
		if i == 0 || r.Priority != sorted[i-1].Priority {
			levels = append(levels, nil)
		}
		levels[len(levels)-1] = append(levels[len(levels)-1], r)
	}
	return levels
}

func rulesError(name, what string, err error) error {
	return common.NewAppError(common.CodeRules, fmt.Sprintf("%s: %s", name, what), err)
}
