package notify

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/openhrm/escalation-engine/pkg/workflow"
)

// MessageParams carries the fields rendered into reminder and escalation
// mails.
type MessageParams struct {
	InstanceID   string
	Tier         int
	SLAHours     float64
	ElapsedHours float64
	URL          string
	BrandingName string
}

var (
	warningTemplate    = template.New("slaWarning")
	escalationTemplate = template.New("escalation")
	overdueTemplate    = template.New("overdue")

	//go:embed templates/sla_warning.html
	warningTemplateRaw string
	//go:embed templates/escalation.html
	escalationTemplateRaw string
	//go:embed templates/overdue.html
	overdueTemplateRaw string
)

func init() {
	if _, err := warningTemplate.Parse(warningTemplateRaw); err != nil {
		panic(err)
	}
	if _, err := escalationTemplate.Parse(escalationTemplateRaw); err != nil {
		panic(err)
	}
	if _, err := overdueTemplate.Parse(overdueTemplateRaw); err != nil {
		panic(err)
	}
}

func render(t *template.Template, p MessageParams) (string, error) {
	b := bytes.Buffer{}
	err := t.Execute(&b, p)
	return b.String(), err
}

// Compose renders the subject and body for a reminder of the given kind.
func Compose(kind workflow.ReminderKind, p MessageParams) (subject, body string, err error) {
	switch kind {
	case workflow.KindSLAWarning:
		subject = fmt.Sprintf("Approval deadline approaching for request %s", p.InstanceID)
		body, err = render(warningTemplate, p)
	case workflow.KindEscalation:
		subject = fmt.Sprintf("Approval request %s escalated to you", p.InstanceID)
		body, err = render(escalationTemplate, p)
	case workflow.KindOverdue:
		subject = fmt.Sprintf("Approval request %s is overdue", p.InstanceID)
		body, err = render(overdueTemplate, p)
	default:
		err = fmt.Errorf("no template for reminder kind %q", kind)
	}
	return subject, body, err
}
