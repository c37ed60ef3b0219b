package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// BookingNotice carries what both booking emails need.
type BookingNotice struct {
	AppointmentID   string
	BookingRef      string
	PatientName     string
	PatientEmail    string
	DoctorName      string
	DoctorEmail     string
	Speciality      string
	Reason          string
	ScheduledAt     time.Time
	MeetingID       string
	MeetingURL      string
	MeetingPassword string
}

const patientTemplate = `<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#1f2933">
<h2>Your appointment is booked</h2>
<p>Hi {{.PatientName}},</p>
<p>Your {{.Speciality}} consultation with Dr. {{.DoctorName}} is scheduled for <strong>{{when .ScheduledAt}}</strong>.</p>
<table cellpadding="4">
<tr><td>Meeting ID</td><td>{{.MeetingID}}</td></tr>
<tr><td>Passcode</td><td>{{.MeetingPassword}}</td></tr>
<tr><td>Booking reference</td><td>{{.BookingRef}}</td></tr>
</table>
<p><a href="{{.MeetingURL}}">Join the video consultation</a></p>
<p>Please join a few minutes early. Reply to this email if you need to reschedule.</p>
</body></html>`

const doctorTemplate = `<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#1f2933">
<h2>New appointment</h2>
<p>Dr. {{.DoctorName}},</p>
<p>{{.PatientName}} ({{.PatientEmail}}) booked a {{.Speciality}} consultation for <strong>{{when .ScheduledAt}}</strong>.</p>
{{if .Reason}}<p>Reason for visit: {{.Reason}}</p>{{end}}
<table cellpadding="4">
<tr><td>Meeting ID</td><td>{{.MeetingID}}</td></tr>
<tr><td>Passcode</td><td>{{.MeetingPassword}}</td></tr>
</table>
<p><a href="{{.MeetingURL}}">Start the meeting</a></p>
</body></html>`

const otpTemplate = `<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#1f2933">
<p>Hi {{.Name}},</p>
<p>Your password reset code is <strong style="font-size:20px">{{.Code}}</strong>.</p>
<p>It expires at {{when .ExpiresAt}}. If you did not ask for a reset you can ignore this email.</p>
</body></html>`

var templates = template.Must(template.New("notify").
	Option("missingkey=error").
	Funcs(template.FuncMap{
		"when": func(t time.Time) string { return t.Format("Monday, January 2, 2006 at 3:04 PM MST") },
	}).
	Parse(`{{define "patient"}}` + patientTemplate + `{{end}}` +
		`{{define "doctor"}}` + doctorTemplate + `{{end}}` +
		`{{define "otp"}}` + otpTemplate + `{{end}}`))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", name, err)
	}
	return buf.String(), nil
}

// RenderPatientConfirmation builds the patient-facing confirmation email.
func RenderPatientConfirmation(n BookingNotice) (EmailMessage, error) {
	html, err := render("patient", n)
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{
		To:      n.PatientEmail,
		ToName:  n.PatientName,
		Subject: fmt.Sprintf("Appointment confirmed with Dr. %s", n.DoctorName),
		Body: fmt.Sprintf("Your appointment with Dr. %s is on %s. Join: %s (meeting %s, passcode %s)",
			n.DoctorName, n.ScheduledAt.Format(time.RFC1123), n.MeetingURL, n.MeetingID, n.MeetingPassword),
		HTML: html,
	}, nil
}

// RenderDoctorNotification builds the doctor-facing notification email.
func RenderDoctorNotification(n BookingNotice) (EmailMessage, error) {
	html, err := render("doctor", n)
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{
		To:      n.DoctorEmail,
		ToName:  n.DoctorName,
		Subject: fmt.Sprintf("New appointment: %s on %s", n.PatientName, n.ScheduledAt.Format("Jan 2 3:04 PM")),
		Body: fmt.Sprintf("%s booked %s. Join: %s (meeting %s, passcode %s)",
			n.PatientName, n.ScheduledAt.Format(time.RFC1123), n.MeetingURL, n.MeetingID, n.MeetingPassword),
		HTML: html,
	}, nil
}

// RenderPasswordReset builds the OTP email.
func RenderPasswordReset(to, name, code string, expiresAt time.Time) (EmailMessage, error) {
	html, err := render("otp", struct {
		Name      string
		Code      string
		ExpiresAt time.Time
	}{name, code, expiresAt})
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{
		To:      to,
		ToName:  name,
		Subject: "Your password reset code",
		Body:    fmt.Sprintf("Your password reset code is %s. It expires at %s.", code, expiresAt.Format(time.RFC1123)),
		HTML:    html,
	}, nil
}
