// Package planner builds the ordered list of enrichment questions asked about
// a lead's company.
package planner

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-enricher/internal/model"
)

// Template is one question with {company} and {domain} placeholders.
type Template struct {
	Key  string `yaml:"key" json:"key"`
	Text string `yaml:"text" json:"text"`
}

// Planner renders a fixed template list for a company.
type Planner struct {
	templates []Template
}

// New returns a planner over the default questions.
func New() *Planner {
	return &Planner{templates: DefaultTemplates}
}

// NewFromTemplates returns a planner over the given questions.
func NewFromTemplates(templates []Template) (*Planner, error) {
	if len(templates) == 0 {
		return nil, eris.New("planner: at least one question is required")
	}
	for i, t := range templates {
		if strings.TrimSpace(t.Text) == "" {
			return nil, eris.Errorf("planner: question %d has no text", i+1)
		}
	}
	return &Planner{templates: templates}, nil
}

// Load returns the default planner when path is empty, otherwise a planner
// over the questions in the YAML file at path. The file has a top-level
// "questions" list of {key, text} entries.
func Load(path string) (*Planner, error) {
	if path == "" {
		return New(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "planner: read questions %s", path)
	}

	var file struct {
		Questions []Template `yaml:"questions"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "planner: parse questions %s", path)
	}
	return NewFromTemplates(file.Questions)
}

// Len returns the number of questions every plan contains.
func (p *Planner) Len() int {
	return len(p.templates)
}

// Plan renders the questions for a company, in order.
func (p *Planner) Plan(company, domain string) []string {
	r := strings.NewReplacer("{company}", company, "{domain}", domain)
	out := make([]string, len(p.templates))
	for i, t := range p.templates {
		out[i] = r.Replace(t.Text)
	}
	return out
}

// PlanFor derives the lead from email and renders its questions.
func (p *Planner) PlanFor(email string) (model.Lead, []string, error) {
	lead, err := model.ParseLead(email)
	if err != nil {
		return model.Lead{}, nil, eris.Wrap(err, "planner: parse lead")
	}
	return lead, p.Plan(lead.Company, lead.Domain), nil
}

// Plan renders the default questions for a company.
func Plan(company, domain string) []string {
	return New().Plan(company, domain)
}
