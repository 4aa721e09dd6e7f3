package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"alfredoptarigan/cv-analysis-tool/internal/models"
)

var errEmptyAnalysis = errors.New("analysis is empty")

const agentResponseSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "__dict__": {
        "type": ["object", "null"],
        "properties": {
          "chat_name": {"type": "string"},
          "chat_response": {
            "type": ["object", "null"],
            "properties": {
              "chat_message": {
                "type": ["object", "null"],
                "properties": {
                  "__dict__": {
                    "type": ["object", "null"],
                    "properties": {"content": {"type": "string"}}
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

var compiledAgentSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("agent_response.json", strings.NewReader(agentResponseSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("agent_response.json")
})

// ParseAgentResponse decodes the stored analysis into typed sections. The
// schema is owned by the remote service, so a payload that was encoded
// twice is unwrapped once and the result is validated before use.
func ParseAgentResponse(analysis string) ([]models.AgentSection, error) {
	raw := strings.TrimSpace(analysis)
	if raw == "" {
		return nil, errEmptyAnalysis
	}

	var inner string
	if json.Unmarshal([]byte(raw), &inner) == nil {
		raw = strings.TrimSpace(inner)
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("unexpected analysis format: %w", err)
	}

	schema, err := compiledAgentSchema()
	if err != nil {
		return nil, fmt.Errorf("compile agent response schema: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("analysis does not match schema: %w", err)
	}

	var sections []models.AgentSection
	if err := json.Unmarshal([]byte(raw), &sections); err != nil {
		return nil, fmt.Errorf("unexpected analysis format: %w", err)
	}
	return sections, nil
}

func isDisplayedSection(name string) bool {
	return name == models.SectionSummary || name == models.SectionApplicantLookup
}

// RenderResult keeps only the summary and applicant lookup sections.
func RenderResult(index int, result models.AnalysisResult) models.RenderedResult {
	rendered := models.RenderedResult{
		Index:     index,
		CVName:    result.CVName,
		ThreadID:  result.ThreadID,
		MessageID: result.MessageID,
		Sections:  []models.RenderedSection{},
	}

	sections, err := ParseAgentResponse(result.Analysis)
	if err != nil {
		rendered.ParseError = err.Error()
		return rendered
	}

	for _, section := range sections {
		if !isDisplayedSection(section.Name()) {
			continue
		}
		content, ok := section.Content()
		if !ok {
			continue
		}
		rendered.Sections = append(rendered.Sections, models.RenderedSection{
			Name:    section.Name(),
			Content: content,
		})
	}

	return rendered
}

func RenderResults(results []models.AnalysisResult) []models.RenderedResult {
	out := make([]models.RenderedResult, 0, len(results))
	for i, r := range results {
		out = append(out, RenderResult(i, r))
	}
	return out
}

// ExampleAnalysis is shown before the first upload.
const ExampleAnalysis = `### Example CV Analysis Result

#### Evaluation Report

### Overall Summary:
John Smith's qualifications and extensive experience in software development make him a strong candidate for positions related to web development. His demonstrated expertise in Python, JavaScript, and React highlights his suitability for roles requiring these technical skills.

### Detailed Evaluation:

#### Technical Skills
John has strong experience with Python, JavaScript, and React, which are key requirements for the role.

#### Experience
John has 7 years of experience in software development, exceeding the minimum requirement of 3 years.

#### Education
John holds a Bachelor's degree in Computer Science from the University of Technology.

### Scoring:

| Criteria | Score (1-5) | Comment |
|---------------------------|-------------|---------|
| Technical Skills | 5 | Strong experience in all required technologies. |
| Experience | 5 | Exceeds required years of experience and has leadership experience. |
| Education | 5 | Holds relevant degree in Computer Science. |

### Recommendation:
John Smith is highly suitable for the position with a strong technical background, relevant experience, and appropriate education.
`
