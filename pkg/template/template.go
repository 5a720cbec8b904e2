// Package template renders notification subjects and bodies.
package template

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// ErrUnknownKind is returned when no template is registered for a notification kind.
var ErrUnknownKind = errors.New("no template for notification kind")

// Definition holds the subject and body templates of one notification kind.
type Definition struct {
	Subject string
	Body    string
}

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}

// Set maps notification kinds to their templates.
type Set map[string]Definition

// Default returns the built-in English templates.
func Default() Set {
	return Set{
		"approval_requested": {
			Subject: "Approval requested for document {{ .document_id }}",
			Body: "Your approval is requested on step {{ .step_number }} of document {{ .document_id }}." +
				"{{ with .deadline }}\nPlease decide before {{ date . }}.{{ end }}",
		},
		"approval_decision": {
			Subject: "Document {{ .document_id }} was {{ lower .decision }}",
			Body: "{{ .approver_id }} {{ lower .decision }} step {{ .step_number }} of document {{ .document_id }}." +
				"{{ with .comments }}\nComments: {{ . }}{{ end }}",
		},
		"approval_reminder": {
			Subject: "Reminder: document {{ .document_id }} awaits your approval",
			Body: "Step {{ .step_number }} of document {{ .document_id }} is still waiting for your decision." +
				"{{ with .deadline }}\nDeadline: {{ date . }}.{{ end }}",
		},
		"approval_escalated": {
			Subject: "Escalation: document {{ .document_id }} needs your approval",
			Body: "Step {{ .step_number }} of document {{ .document_id }} was escalated to you " +
				"because {{ .original_user_id }} did not respond in time.",
		},
	}
}

// RenderMessage renders the subject and body registered for kind.
func (s Set) RenderMessage(kind string, data map[string]any) (Message, error) {
	definition, ok := s[kind]
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	subject, err := Render(definition.Subject, data)
	if err != nil {
		return Message{}, err
	}

	body, err := Render(definition.Body, data)
	if err != nil {
		return Message{}, err
	}

	return Message{Subject: subject, Body: body}, nil
}

// Render executes a text template against data. Missing keys render empty.
func Render(templateStr string, data any) (string, error) {
	tmpl, err := template.
		New("notification").
		Option("missingkey=zero").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"lower": func(v any) string {
				return strings.ToLower(fmt.Sprint(v))
			},
			"date": formatDate,
		}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return strings.TrimSpace(strings.ReplaceAll(buf.String(), "<no value>", "")), nil
}

// formatDate accepts the shapes a deadline takes before and after a JSON round trip.
func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC1123)
	case *time.Time:
		if t == nil {
			return ""
		}

		return t.UTC().Format(time.RFC1123)
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return t
		}

		return parsed.UTC().Format(time.RFC1123)
	default:
		return fmt.Sprint(v)
	}
}
