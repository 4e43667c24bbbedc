package util

import (
	"strings"
	"text/template"
)

var templateFuncs = template.FuncMap{
	"default": func(def, val any) any {
		if val == nil || val == "" {
			return def
		}
		return val
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"join":  func(sep string, items []string) string { return strings.Join(items, sep) },
	"trim":  strings.TrimSpace,
}

// RenderTemplate renders text with text/template over state. Text without
// template markers is returned unchanged. Referencing a key missing from
// state is an error so typos in prompt overrides surface early.
func RenderTemplate(text string, state map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New("prompt").Option("missingkey=error").Funcs(templateFuncs).Parse(text)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, state); err != nil {
		return "", err
	}
	return b.String(), nil
}
