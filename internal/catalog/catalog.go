// Package catalog holds the static product content: email providers,
// integration tools, the onboarding quiz, connection steps and display
// metadata. The content is embedded YAML decoded once at startup.
package catalog

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Provider is an email provider choice.
type Provider struct {
	ID      string `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	Popular bool   `yaml:"popular" json:"popular"`
}

// Field is one credential input of an integration tool.
type Field struct {
	Key         string `yaml:"key" json:"key"`
	Label       string `yaml:"label" json:"label"`
	Placeholder string `yaml:"placeholder" json:"placeholder"`
	Secret      bool   `yaml:"secret" json:"secret"`
}

// Integration is a tool the inbox can be connected to.
type Integration struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Features    []string `yaml:"features" json:"features"`
	// MissingMessage is shown when any required field is empty.
	MissingMessage string   `yaml:"missing_message" json:"missing_message"`
	Fields         []Field  `yaml:"fields" json:"fields"`
	Instructions   []string `yaml:"instructions" json:"instructions"`
	DocsURL        string   `yaml:"docs_url" json:"docs_url"`
}

// TaskTool is a task-management tool offered after provider login.
type TaskTool struct {
	ID            string `yaml:"id" json:"id"`
	Name          string `yaml:"name" json:"name"`
	DefaultAPIURL string `yaml:"default_api_url" json:"default_api_url"`
}

// Question is one onboarding quiz question.
type Question struct {
	Text    string   `yaml:"text" json:"text"`
	Options []string `yaml:"options" json:"options"`
}

// Product is a tile on the products page.
type Product struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	New         bool   `yaml:"new" json:"new"`
	Available   bool   `yaml:"available" json:"available"`
}

// Agent is a showcased agent on the products page.
type Agent struct {
	Name   string `yaml:"name" json:"name"`
	Status string `yaml:"status" json:"status"`
}

// Feature is a classifier feature card.
type Feature struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}

// PriorityStyle is the display label and color of a priority level.
type PriorityStyle struct {
	Level int    `yaml:"level" json:"level"`
	Label string `yaml:"label" json:"label"`
	Color string `yaml:"color" json:"color"`
}

// CategoryStyle is the display color of a category.
type CategoryStyle struct {
	ID    string `yaml:"id" json:"id"`
	Color string `yaml:"color" json:"color"`
}

// Catalog is the full static content.
type Catalog struct {
	Product         string          `yaml:"product" json:"product"`
	Providers       []Provider      `yaml:"providers" json:"providers"`
	Integrations    []Integration   `yaml:"integrations" json:"integrations"`
	TaskTools       []TaskTool      `yaml:"task_tools" json:"task_tools"`
	Questions       []Question      `yaml:"questions" json:"questions"`
	ConnectionSteps []string        `yaml:"connection_steps" json:"connection_steps"`
	Products        []Product       `yaml:"products" json:"products"`
	Agents          []Agent         `yaml:"agents" json:"agents"`
	Features        []Feature       `yaml:"features" json:"features"`
	Priorities      []PriorityStyle `yaml:"priorities" json:"priorities"`
	Categories      []CategoryStyle `yaml:"categories" json:"categories"`
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog. It panics if the embedded YAML is
// invalid, which tests guard against.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Parse(catalogYAML)
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultCat
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("no providers")
	}
	if len(c.TaskTools) == 0 {
		return fmt.Errorf("no task tools")
	}
	for _, in := range c.Integrations {
		if len(in.Fields) == 0 {
			return fmt.Errorf("integration %s has no credential fields", in.ID)
		}
		if in.MissingMessage == "" {
			return fmt.Errorf("integration %s has no missing-field message", in.ID)
		}
	}
	for i, q := range c.Questions {
		if len(q.Options) == 0 {
			return fmt.Errorf("question %d has no options", i+1)
		}
	}
	return nil
}

// Provider looks up a provider by ID.
func (c *Catalog) Provider(id string) (Provider, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

// ProviderOrDefault looks up a provider, falling back to the first one
// (gmail) for unknown or empty IDs.
func (c *Catalog) ProviderOrDefault(id string) Provider {
	if p, ok := c.Provider(id); ok {
		return p
	}
	return c.Providers[0]
}

// Integration looks up an integration tool by ID.
func (c *Catalog) Integration(id string) (Integration, bool) {
	for _, in := range c.Integrations {
		if in.ID == id {
			return in, true
		}
	}
	return Integration{}, false
}

// TaskTool looks up a task tool by ID.
func (c *Catalog) TaskTool(id string) (TaskTool, bool) {
	for _, t := range c.TaskTools {
		if t.ID == id {
			return t, true
		}
	}
	return TaskTool{}, false
}

// TaskToolOrDefault looks up a task tool, falling back to the first one
// (jira) for unknown or empty IDs.
func (c *Catalog) TaskToolOrDefault(id string) TaskTool {
	if t, ok := c.TaskTool(id); ok {
		return t
	}
	return c.TaskTools[0]
}

// Steps renders the connection progress messages for a provider and count.
// Unknown providers render with the default provider's name.
func (c *Catalog) Steps(providerID string, count int) []string {
	r := strings.NewReplacer(
		"{provider}", c.ProviderOrDefault(providerID).Name,
		"{count}", strconv.Itoa(count),
	)
	steps := make([]string, len(c.ConnectionSteps))
	for i, s := range c.ConnectionSteps {
		steps[i] = r.Replace(s)
	}
	return steps
}

// PriorityStyle returns the display style of a level.
func (c *Catalog) PriorityStyle(level int) (PriorityStyle, bool) {
	for _, p := range c.Priorities {
		if p.Level == level {
			return p, true
		}
	}
	return PriorityStyle{}, false
}

// CategoryColor returns the display color of a category, or "" if unknown.
func (c *Catalog) CategoryColor(id string) string {
	for _, cs := range c.Categories {
		if cs.ID == id {
			return cs.Color
		}
	}
	return ""
}
