// Package template renders workflow-provided strings (email subjects) with
// the lead variables available to outreach emails.
package template

import (
	"fmt"
	"strings"
	"text/template"
)

// Render executes a text/template string against the variable map. Missing
// keys are an error rather than rendering "<no value>" into an email.
func Render(templateStr string, variables map[string]string) (string, error) {
	tmpl, err := template.New("render").Option("missingkey=error").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %q: %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, variables)
	if err != nil {
		return "", fmt.Errorf("failed to render template %q: %w", templateStr, err)
	}

	return buf.String(), nil
}
