package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type reportSubmittedEmailData struct {
	baseEmailData
	QuestionTitle string
	Reason        string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderReportSubmitted(questionTitle, reason, reviewURL string) (string, string, error) {
	content, err := renderEmailTemplate("report_submitted.html", reportSubmittedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Question reported",
			Heading:  "A question needs review",
			CTALabel: "Open question",
			CTAURL:   reviewURL,
		},
		QuestionTitle: questionTitle,
		Reason:        reason,
	})
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf(subjectReportSubmittedFmt, questionTitle), content, nil
}
