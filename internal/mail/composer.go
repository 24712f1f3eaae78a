// Package mail renders the transactional messages written to the outbound
// mail queue.  Every message exists in English and German.
package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/iliyamo/studio-booking/internal/model"
)

// Kinds of messages.
const (
	KindPurchase     = "purchase"
	KindBooking      = "booking"
	KindCancellation = "cancellation"
	KindReselect     = "reselect"
)

// Data is the template input.  Not every kind uses every field.
type Data struct {
	Name     string
	Course   string
	PackSize int
	Balance  int
	Credited int
	Dates    []time.Time
	Studio   string
	LeadDays int
}

var subjects = map[string]map[string]string{
	KindPurchase:     {"en": "Your pack purchase for %s", "de": "Dein Kartenkauf für %s"},
	KindBooking:      {"en": "Booking confirmed: %s", "de": "Buchung bestätigt: %s"},
	KindCancellation: {"en": "Booking cancelled: %s", "de": "Buchung storniert: %s"},
	KindReselect:     {"en": "Please choose new dates for %s", "de": "Bitte wähle neue Termine für %s"},
}

const layouts = `
{{define "purchase_en"}}<p>Hi {{.Name}},</p>
<p>thank you for buying a {{.PackSize}}-session pack for <strong>{{.Course}}</strong>.</p>
<p>Your balance for this course is now <strong>{{.Balance}}</strong> credits.</p>
<p>{{.Studio}}</p>{{end}}
{{define "purchase_de"}}<p>Hallo {{.Name}},</p>
<p>danke für deinen Kauf einer {{.PackSize}}er-Karte für <strong>{{.Course}}</strong>.</p>
<p>Dein Guthaben für diesen Kurs beträgt jetzt <strong>{{.Balance}}</strong> Einheiten.</p>
<p>{{.Studio}}</p>{{end}}
{{define "booking_en"}}<p>Hi {{.Name}},</p>
<p>you are booked for <strong>{{.Course}}</strong> on:</p>
<ul>{{range .Dates}}<li>{{date_en .}}</li>{{end}}</ul>
<p>Cancellations are possible up to {{.LeadDays}} days before a session.</p>
<p>{{.Studio}}</p>{{end}}
{{define "booking_de"}}<p>Hallo {{.Name}},</p>
<p>du bist für <strong>{{.Course}}</strong> an folgenden Terminen angemeldet:</p>
<ul>{{range .Dates}}<li>{{date_de .}}</li>{{end}}</ul>
<p>Stornierungen sind bis {{.LeadDays}} Tage vor dem Termin möglich.</p>
<p>{{.Studio}}</p>{{end}}
{{define "cancellation_en"}}<p>Hi {{.Name}},</p>
<p>your booking for <strong>{{.Course}}</strong> on {{range .Dates}}{{date_en .}}{{end}} was cancelled.</p>
<p>One credit was returned; your balance is now <strong>{{.Balance}}</strong>.</p>
<p>{{.Studio}}</p>{{end}}
{{define "cancellation_de"}}<p>Hallo {{.Name}},</p>
<p>deine Buchung für <strong>{{.Course}}</strong> am {{range .Dates}}{{date_de .}}{{end}} wurde storniert.</p>
<p>Eine Einheit wurde gutgeschrieben; dein Guthaben beträgt jetzt <strong>{{.Balance}}</strong>.</p>
<p>{{.Studio}}</p>{{end}}
{{define "reselect_en"}}<p>Hi {{.Name}},</p>
<p>your payment for <strong>{{.Course}}</strong> went through, but the dates you picked filled up in the meantime.</p>
<p>We added {{.Credited}} credits to your account (balance <strong>{{.Balance}}</strong>). Please choose new dates.</p>
<p>{{.Studio}}</p>{{end}}
{{define "reselect_de"}}<p>Hallo {{.Name}},</p>
<p>deine Zahlung für <strong>{{.Course}}</strong> ist eingegangen, aber die gewählten Termine sind inzwischen ausgebucht.</p>
<p>Wir haben dir {{.Credited}} Einheiten gutgeschrieben (Guthaben <strong>{{.Balance}}</strong>). Bitte wähle neue Termine.</p>
<p>{{.Studio}}</p>{{end}}
`

var germanWeekdays = [...]string{"So", "Mo", "Di", "Mi", "Do", "Fr", "Sa"}

// Composer renders queued mail documents.
type Composer struct {
	studio   string
	leadDays int
	tmpl     *template.Template
}

// NewComposer parses the built-in templates.  studio signs every message and
// leadDays is quoted in booking confirmations.
func NewComposer(studio string, leadDays int) *Composer {
	funcs := template.FuncMap{
		"date_en": func(t time.Time) string { return t.Format("Mon, 2 January 2006") },
		"date_de": func(t time.Time) string {
			return fmt.Sprintf("%s, %s", germanWeekdays[t.Weekday()], t.Format("02.01.2006"))
		},
	}
	return &Composer{
		studio:   studio,
		leadDays: leadDays,
		tmpl:     template.Must(template.New("mail").Funcs(funcs).Parse(layouts)),
	}
}

// Lang maps any requested language to a supported one.
func Lang(lang string) string {
	if lang == "de" {
		return "de"
	}
	return "en"
}

// Compose renders kind for recipient to.
func (c *Composer) Compose(kind, lang, to string, d Data) (*model.MailMessage, error) {
	lang = Lang(lang)
	subj, ok := subjects[kind]
	if !ok {
		return nil, fmt.Errorf("mail: unknown kind %q", kind)
	}
	if d.Studio == "" {
		d.Studio = c.studio
	}
	if d.LeadDays == 0 {
		d.LeadDays = c.leadDays
	}
	var buf bytes.Buffer
	if err := c.tmpl.ExecuteTemplate(&buf, kind+"_"+lang, d); err != nil {
		return nil, fmt.Errorf("mail: render %s: %w", kind, err)
	}
	return &model.MailMessage{
		To:      to,
		Subject: fmt.Sprintf(subj[lang], d.Course),
		HTML:    buf.String(),
	}, nil
}
