package service

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h1 style="color: #2563eb;">{{.AppName}}</h1>
<h2>{{.Heading}}</h2>
<p>Dear <strong>{{.StudentName}}</strong>,</p>
<p>{{.Intro}}</p>
<table>
<tr><td><strong>Date:</strong></td><td>{{.Date}}</td></tr>
<tr><td><strong>Time:</strong></td><td>{{.Time}}</td></tr>
<tr><td><strong>Type:</strong></td><td>{{.Type}}</td></tr>
<tr><td><strong>Mode:</strong></td><td>{{.Mode}}</td></tr>
</table>
{{if .CustomMessage}}<p><strong>Note from your counsellor:</strong> {{.CustomMessage}}</p>{{end}}
<ul>
<li>Please arrive 10 minutes before your scheduled time</li>
<li>If you need to reschedule, contact us at least 24 hours in advance</li>
</ul>
<p style="color: #6b7280;">This email was sent from {{.AppName}} - Counseling &amp; Wellness Center</p>
</div>`))

var followUpTemplate = template.Must(template.New("follow_up").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h1 style="color: #2563eb;">{{.AppName}}</h1>
<h2>Follow-up Message</h2>
<p>Dear <strong>{{.StudentName}}</strong>,</p>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}<p>If you have any questions or concerns, please reach out to us.</p>
<p style="color: #6b7280;">This email was sent from {{.AppName}} - Counseling &amp; Wellness Center</p>
</div>`))

type appointmentEmailView struct {
	AppName       string
	Heading       string
	Intro         string
	StudentName   string
	Date          string
	Time          string
	Type          string
	Mode          string
	CustomMessage string
}

type followUpEmailView struct {
	AppName     string
	StudentName string
	Paragraphs  []string
}

func renderTemplate(tmpl *template.Template, view interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func appointmentEmailText(view appointmentEmailView) string {
	var b strings.Builder
	b.WriteString("Dear " + view.StudentName + ",\n\n")
	b.WriteString(view.Intro + "\n\n")
	b.WriteString("Date: " + view.Date + "\n")
	b.WriteString("Time: " + view.Time + "\n")
	b.WriteString("Type: " + view.Type + "\n")
	b.WriteString("Mode: " + view.Mode + "\n")
	if view.CustomMessage != "" {
		b.WriteString("\nNote from your counsellor: " + view.CustomMessage + "\n")
	}
	b.WriteString("\n" + view.AppName + " - Counseling & Wellness Center\n")
	return b.String()
}

func followUpEmailText(view followUpEmailView) string {
	return "Dear " + view.StudentName + ",\n\n" +
		strings.Join(view.Paragraphs, "\n\n") +
		"\n\n" + view.AppName + " - Counseling & Wellness Center\n"
}

func formatEmailDate(t time.Time) string {
	return t.UTC().Format("Monday, 2 January 2006")
}

func splitParagraphs(message string) []string {
	lines := strings.Split(message, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}
