package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"tutorial-scraper/models"

	"gopkg.in/yaml.v3"
)

//go:embed tools.yaml
var defaultCatalog []byte

var (
	ErrUnknownTool   = errors.New("unknown tool")
	ErrNoSearchTerms = errors.New("no search terms")
)

// Catalog maps automation tools to search terms and holds the filter rules
type Catalog struct {
	Tools                []Tool                         `yaml:"tools"`
	DifficultyCategories map[models.Difficulty][]string `yaml:"difficulty_categories"`
	Filters              Filters                        `yaml:"filters"`
}

// Tool is one automation product and its search categories
type Tool struct {
	Key        string     `yaml:"key"`
	Name       string     `yaml:"name"`
	Color      string     `yaml:"color"`
	Categories []Category `yaml:"categories"`
}

// Category is an ordered list of search terms
type Category struct {
	Name  string   `yaml:"name"`
	Terms []string `yaml:"terms"`
}

// Filters configures the difficulty acceptance gate
type Filters struct {
	AdvancedContexts []string                         `yaml:"advanced_contexts"`
	SpamKeywords     []string                         `yaml:"spam_keywords"`
	MinTitleLength   int                              `yaml:"min_title_length"`
	Levels           map[models.Difficulty]FilterRule `yaml:"levels"`
}

// FilterRule is the acceptance rule for one difficulty
type FilterRule struct {
	MinDuration int      `yaml:"min_duration"`
	MaxDuration int      `yaml:"max_duration"`
	MinViews    int64    `yaml:"min_views"`
	Keywords    []string `yaml:"keywords"`
	Exclude     []string `yaml:"exclude"`
}

// LoadCatalog reads the catalog at path, or the embedded one when path is empty
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tools config: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse tools config: %w", err)
	}
	if len(c.Tools) == 0 {
		return nil, errors.New("tools config defines no tools")
	}

	seen := make(map[string]bool)
	for i := range c.Tools {
		t := &c.Tools[i]
		t.Key = strings.ToLower(strings.TrimSpace(t.Key))
		if t.Key == "" {
			return nil, fmt.Errorf("tool #%d has no key", i+1)
		}
		if seen[t.Key] {
			return nil, fmt.Errorf("tool %q defined twice", t.Key)
		}
		seen[t.Key] = true
	}

	for d := range c.DifficultyCategories {
		if !d.Valid() {
			return nil, fmt.Errorf("difficulty_categories: unknown difficulty %q", d)
		}
	}
	for d, rule := range c.Filters.Levels {
		if !d.Valid() {
			return nil, fmt.Errorf("filters: unknown difficulty %q", d)
		}
		if rule.MaxDuration < rule.MinDuration {
			return nil, fmt.Errorf("filters: %s duration range %d-%d is inverted", d, rule.MinDuration, rule.MaxDuration)
		}
	}
	return &c, nil
}

// Tool looks up a tool by key, case-insensitively
func (c *Catalog) Tool(key string) (*Tool, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for i := range c.Tools {
		if c.Tools[i].Key == key {
			return &c.Tools[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTool, key)
}

// ToolKeys lists the configured tools in file order
func (c *Catalog) ToolKeys() []string {
	keys := make([]string, 0, len(c.Tools))
	for _, t := range c.Tools {
		keys = append(keys, t.Key)
	}
	return keys
}

// Terms returns the tool's search terms in catalog order, restricted to the
// given categories when any are named. Unknown categories are ignored and
// repeated terms are kept once.
func (c *Catalog) Terms(tool string, categories ...string) ([]string, error) {
	t, err := c.Tool(tool)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(categories))
	for _, name := range categories {
		wanted[strings.TrimSpace(name)] = true
	}

	seen := make(map[string]bool)
	var terms []string
	for _, cat := range t.Categories {
		if len(wanted) > 0 && !wanted[cat.Name] {
			continue
		}
		for _, term := range cat.Terms {
			term = strings.TrimSpace(term)
			key := strings.ToLower(term)
			if term == "" || seen[key] {
				continue
			}
			seen[key] = true
			terms = append(terms, term)
		}
	}
	return terms, nil
}

// TermsForDifficulty returns the terms of the categories mapped to d
func (c *Catalog) TermsForDifficulty(tool string, d models.Difficulty) ([]string, error) {
	cats := c.DifficultyCategories[d.Storage()]
	if len(cats) == 0 {
		if _, err := c.Tool(tool); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return c.Terms(tool, cats...)
}
