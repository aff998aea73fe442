// Package prompt turns project card data into completion requests.
package prompt

import (
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/Zachkp/portfolio-ai/internal/gemini"
)

var ErrEmptyProject = errors.New("project details are empty")

// Input is what a project card contributes to a prompt.
type Input struct {
	Title    string
	Details  string
	Question string
}

// Template pairs a prompt body with an optional system instruction and an
// optional response schema.
type Template struct {
	Name   string
	System string
	Schema *gemini.Schema

	body           *template.Template
	requireDetails bool
}

func New(name, system, body string, schema *gemini.Schema) (*Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s template: %w", name, err)
	}
	return &Template{Name: name, System: system, Schema: schema, body: tmpl}, nil
}

func must(t *Template, err error) *Template {
	if err != nil {
		panic(err)
	}
	return t
}

// Build renders the body and returns a request ready for the completion client.
func (t *Template) Build(in Input) (gemini.Request, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Details = strings.TrimSpace(in.Details)
	in.Question = strings.TrimSpace(in.Question)
	if t.requireDetails && in.Details == "" {
		return gemini.Request{}, ErrEmptyProject
	}

	var sb strings.Builder
	if err := t.body.Execute(&sb, in); err != nil {
		return gemini.Request{}, fmt.Errorf("rendering %s prompt: %w", t.Name, err)
	}
	return gemini.Request{
		Prompt: strings.TrimSpace(sb.String()),
		System: t.System,
		Schema: t.Schema,
	}, nil
}

const caseStudyIntro = `You are a tech recruitment analyst. Create a detailed case study based on the following project information.`

const caseStudyHTMLBody = caseStudyIntro + `
Format the response in clean HTML using the 'prose' class conventions. Use <h4> for titles and <p> for text.
Structure the case study into three distinct sections:
1. The Challenge: Describe the core business problem or objective.
2. My Solution: Detail the technical solution that was implemented and my specific contributions.
3. The Outcome: Explain the final result and its quantifiable impact.
Here is the project data:
---
{{if .Title}}{{.Title}}
{{end}}{{.Details}}
---`

const caseStudyJSONBody = caseStudyIntro + `
Answer with plain prose in each field, without HTML or markdown.
- challenge: the core business problem or objective.
- solution: the technical solution that was implemented and my specific contributions.
- outcome: the final result and its quantifiable impact.
Here is the project data:
---
{{if .Title}}{{.Title}}
{{end}}{{.Details}}
---`

const chatBody = "Project: {{.Title}}\nDetails: {{.Details}}\nQuestion: {{.Question}}"

// DefaultSystem is the chat persona used when none is configured.
const DefaultSystem = "You are a helpful AI assistant and an expert on the projects in this portfolio. Explain the project clearly and concisely."

// CaseStudySchema is the structured shape requested by CaseStudyJSON.
var CaseStudySchema = &gemini.Schema{
	Type: "OBJECT",
	Properties: map[string]*gemini.Schema{
		"challenge": {Type: "STRING"},
		"solution":  {Type: "STRING"},
		"outcome":   {Type: "STRING"},
	},
	Required: []string{"challenge", "solution", "outcome"},
}

var (
	CaseStudy     = requireDetails(must(New("case-study", "", caseStudyHTMLBody, nil)))
	CaseStudyJSON = requireDetails(must(New("case-study-json", "", caseStudyJSONBody, CaseStudySchema)))
)

// ProjectChat answers a visitor question about one project under the given persona.
func ProjectChat(system string) *Template {
	if strings.TrimSpace(system) == "" {
		system = DefaultSystem
	}
	return must(New("project-chat", system, chatBody, nil))
}

func requireDetails(t *Template) *Template {
	t.requireDetails = true
	return t
}
