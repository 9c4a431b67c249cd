package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the static curriculum a deployment offers: grade → subject → topics.
// Order is kept as declared so selection lists render the way the board lists them.
type Catalog struct {
	Board              string            `yaml:"board" json:"board"`
	DailyLimit         int               `yaml:"daily_limit" json:"-"`
	DifficultyGuidance map[string]string `yaml:"difficulty_guidance" json:"-"`
	Grades             []Grade           `yaml:"grades" json:"grades"`
}

type Grade struct {
	Name     string    `yaml:"name" json:"name"`
	Subjects []Subject `yaml:"subjects" json:"subjects"`
}

type Subject struct {
	Name   string   `yaml:"name" json:"name"`
	Topics []string `yaml:"topics" json:"topics"`
}

// Load reads a YAML catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Grades) == 0 {
		return fmt.Errorf("catalog has no grades")
	}
	seenGrades := map[string]bool{}
	for _, g := range c.Grades {
		if strings.TrimSpace(g.Name) == "" {
			return fmt.Errorf("catalog grade with empty name")
		}
		if seenGrades[g.Name] {
			return fmt.Errorf("duplicate grade %q", g.Name)
		}
		seenGrades[g.Name] = true

		if len(g.Subjects) == 0 {
			return fmt.Errorf("grade %q has no subjects", g.Name)
		}
		seenSubjects := map[string]bool{}
		for _, s := range g.Subjects {
			if strings.TrimSpace(s.Name) == "" {
				return fmt.Errorf("grade %q has a subject with empty name", g.Name)
			}
			if seenSubjects[s.Name] {
				return fmt.Errorf("grade %q lists subject %q twice", g.Name, s.Name)
			}
			seenSubjects[s.Name] = true
			if len(s.Topics) == 0 {
				return fmt.Errorf("grade %q subject %q has no topics", g.Name, s.Name)
			}
		}
	}
	if c.DailyLimit < 0 {
		return fmt.Errorf("daily_limit must not be negative")
	}
	return nil
}

func (c *Catalog) GradeNames() []string {
	names := make([]string, len(c.Grades))
	for i, g := range c.Grades {
		names[i] = g.Name
	}
	return names
}

func (c *Catalog) grade(name string) (*Grade, bool) {
	for i := range c.Grades {
		if c.Grades[i].Name == name {
			return &c.Grades[i], true
		}
	}
	return nil, false
}

func (c *Catalog) HasGrade(name string) bool {
	_, ok := c.grade(name)
	return ok
}

func (c *Catalog) Subjects(grade string) ([]string, bool) {
	g, ok := c.grade(grade)
	if !ok {
		return nil, false
	}
	names := make([]string, len(g.Subjects))
	for i, s := range g.Subjects {
		names[i] = s.Name
	}
	return names, true
}

// Topics lists the topics of a grade's subject. An empty subject resolves to
// the grade's only subject when there is exactly one.
func (c *Catalog) Topics(grade, subject string) ([]string, bool) {
	g, ok := c.grade(grade)
	if !ok {
		return nil, false
	}
	if subject == "" {
		if len(g.Subjects) != 1 {
			return nil, false
		}
		return g.Subjects[0].Topics, true
	}
	for _, s := range g.Subjects {
		if s.Name == subject {
			return s.Topics, true
		}
	}
	return nil, false
}

func (c *Catalog) HasSubject(grade, subject string) bool {
	subjects, ok := c.Subjects(grade)
	if !ok {
		return false
	}
	for _, s := range subjects {
		if s == subject {
			return true
		}
	}
	return false
}

func (c *Catalog) HasTopic(grade, subject, topic string) bool {
	topics, ok := c.Topics(grade, subject)
	if !ok {
		return false
	}
	for _, t := range topics {
		if t == topic {
			return true
		}
	}
	return false
}

// SingleSubject reports whether every grade offers exactly one subject. Such
// deployments leave the subject out of selections and prompts.
func (c *Catalog) SingleSubject() bool {
	for _, g := range c.Grades {
		if len(g.Subjects) != 1 {
			return false
		}
	}
	return true
}
