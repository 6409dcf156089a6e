package analyze

import (
	"bytes"
	"fmt"
	"text/template"
)

// SystemPrompt instructs the model to return the three-field verdict.
const SystemPrompt = "You are a Product Manager. Analyze this Reddit post. " +
	"Return strict JSON with keys: is_opportunity (boolean), pain_point_summary (string), proposed_solution (string)"

const userPromptTemplate = `Title: {{.Title}}

Body: {{.Body}}`

var userTmpl = template.Must(template.New("analyze").Parse(userPromptTemplate))

// BuildUserPrompt renders the post text sent as the user turn.
func BuildUserPrompt(title, body string) (string, error) {
	var buf bytes.Buffer
	data := struct{ Title, Body string }{title, body}
	if err := userTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt template: %w", err)
	}
	return buf.String(), nil
}
