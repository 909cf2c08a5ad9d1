package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Reason identifies what a notification reports.
type Reason string

const (
	ReasonWorkflowCreated      Reason = "WorkflowCreated"
	ReasonWorkflowCreateFailed Reason = "WorkflowCreateFailed"
	ReasonWorkflowUpdated      Reason = "WorkflowUpdated"
	ReasonWorkflowUpdateFailed Reason = "WorkflowUpdateFailed"
	ReasonWorkflowDeleted      Reason = "WorkflowDeleted"
	ReasonTeardownIncomplete   Reason = "TeardownIncomplete"
	ReasonComponentHealthy     Reason = "ComponentHealthy"
	ReasonComponentTimedOut    Reason = "ComponentTimedOut"
	ReasonComponentFailed      Reason = "ComponentFailed"
)

// Data is the input of a notification template.
type Data struct {
	StoreID      string
	TransitionID string
	Method       string
	Components   []string
	Component    string
	Instance     string
	Attempts     int
	Error        string
}

// MessageTemplateEngine provides message generation for notifications.
type MessageTemplateEngine struct {
	templates map[Reason]*template.Template
}

// NewMessageTemplateEngine creates a new message template engine with default templates.
func NewMessageTemplateEngine() *MessageTemplateEngine {
	engine := &MessageTemplateEngine{
		templates: make(map[Reason]*template.Template),
	}
	engine.loadDefaultTemplates()
	return engine
}

// loadDefaultTemplates initializes the default message templates for all reasons.
func (e *MessageTemplateEngine) loadDefaultTemplates() {
	// Workflow transitions
	e.mustAdd(ReasonWorkflowCreated, `Workflow {{.StoreID}} deployed ({{.Method}}: {{join ", " .Components}})`)
	e.mustAdd(ReasonWorkflowCreateFailed, `Workflow {{.StoreID}} deployment failed{{if .Components}} for {{join ", " .Components}}{{end}}{{if .Error}}: {{.Error}}{{end}}`)
	e.mustAdd(ReasonWorkflowUpdated, `Workflow {{.StoreID}} updated ({{.Method}}: {{join ", " .Components}})`)
	e.mustAdd(ReasonWorkflowUpdateFailed, `Workflow {{.StoreID}} update failed{{if .Components}} for {{join ", " .Components}}{{end}}{{if .Error}}: {{.Error}}{{end}}`)
	e.mustAdd(ReasonWorkflowDeleted, `Workflow {{.StoreID}} torn down`)
	e.mustAdd(ReasonTeardownIncomplete, `Workflow {{.StoreID}} torn down, but {{join ", " .Components}} could not be removed{{if .Error}}: {{.Error}}{{end}}`)

	// Component lifecycle
	e.mustAdd(ReasonComponentHealthy, `{{.Component}} is healthy{{if ne .Instance .Component}} as {{.Instance}}{{end}} for workflow {{.StoreID}}`)
	e.mustAdd(ReasonComponentTimedOut, `{{.Component}} did not become healthy after {{.Attempts}} {{if eq .Attempts 1}}attempt{{else}}attempts{{end}} for workflow {{.StoreID}}`)
	e.mustAdd(ReasonComponentFailed, `{{.Component}} failed for workflow {{.StoreID}}{{if .Error}}: {{.Error | trunc 200}}{{end}}`)
}

func (e *MessageTemplateEngine) mustAdd(reason Reason, text string) {
	e.templates[reason] = template.Must(template.New(string(reason)).Funcs(sprig.TxtFuncMap()).Parse(text))
}

// SetTemplate overrides the template of a reason.
func (e *MessageTemplateEngine) SetTemplate(reason Reason, text string) error {
	tmpl, err := template.New(string(reason)).Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return fmt.Errorf("invalid template for %s: %w", reason, err)
	}
	e.templates[reason] = tmpl
	return nil
}

// Render generates a message for the given reason and data.
func (e *MessageTemplateEngine) Render(reason Reason, data Data) string {
	tmpl, exists := e.templates[reason]
	if !exists {
		// Fallback for unknown reasons
		return fmt.Sprintf("%s for workflow %s", reason, data.StoreID)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("%s for workflow %s", reason, data.StoreID)
	}
	return buf.String()
}
