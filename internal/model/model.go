// Package model defines the Gophish configuration records that are backed up
// and restored: sending profiles, mail templates and landing pages.
package model

// Kind identifies one of the three entity collections.
type Kind string

const (
	KindSendingProfile Kind = "sending_profile"
	KindTemplate       Kind = "template"
	KindPage           Kind = "page"
)

// Kinds lists every entity kind in processing order.
var Kinds = []Kind{KindSendingProfile, KindTemplate, KindPage}

// DisplayName returns the human-readable name used in notices.
func (k Kind) DisplayName() string {
	switch k {
	case KindSendingProfile:
		return "Sending profile"
	case KindTemplate:
		return "Template"
	case KindPage:
		return "Page"
	default:
		return string(k)
	}
}

// Entity is implemented by every record kind. Name is the natural key the
// remote service uses to detect duplicates.
type Entity interface {
	GetID() int64
	GetName() string
}

// Header is a custom SMTP header attached to a sending profile.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SendingProfile is an SMTP configuration used to deliver campaign mail.
type SendingProfile struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	InterfaceType    string   `json:"interface_type"`
	FromAddress      string   `json:"from_address"`
	Host             string   `json:"host"`
	Username         string   `json:"username,omitempty"`
	Password         string   `json:"password,omitempty"`
	IgnoreCertErrors bool     `json:"ignore_cert_errors"`
	Headers          []Header `json:"headers,omitempty"`
	ModifiedDate     string   `json:"modified_date,omitempty"`
}

func (p SendingProfile) GetID() int64    { return p.ID }
func (p SendingProfile) GetName() string { return p.Name }

// Attachment is a file sent along with a template. Content holds the
// base64-encoded payload exactly as the service returns it.
type Attachment struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Template is a campaign mail template.
type Template struct {
	ID             int64        `json:"id"`
	Name           string       `json:"name"`
	Subject        string       `json:"subject"`
	EnvelopeSender string       `json:"envelope_sender,omitempty"`
	HTML           string       `json:"html,omitempty"`
	Text           string       `json:"text,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	ModifiedDate   string       `json:"modified_date,omitempty"`
}

func (t Template) GetID() int64    { return t.ID }
func (t Template) GetName() string { return t.Name }

// Page is a landing page served to campaign targets.
type Page struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	HTML               string `json:"html,omitempty"`
	CaptureCredentials bool   `json:"capture_credentials"`
	CapturePasswords   bool   `json:"capture_passwords"`
	RedirectURL        string `json:"redirect_url"`
	ModifiedDate       string `json:"modified_date,omitempty"`
}

func (p Page) GetID() int64    { return p.ID }
func (p Page) GetName() string { return p.Name }
