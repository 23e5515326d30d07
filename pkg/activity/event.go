package activity

import "strings"

// EventType is the DOM event name that produced an Event.
type EventType string

const (
	EventFocusIn EventType = "focusin"
	EventInput   EventType = "input"
	EventChange  EventType = "change"
	EventKeyDown EventType = "keydown"
	EventClick   EventType = "click"
)

// editing reports whether the event type signals typing into or entering a field.
func (t EventType) editing() bool {
	switch t {
	case EventFocusIn, EventInput, EventChange, EventKeyDown:
		return true
	}
	return false
}

// Element describes the event target as reported by the page.
type Element struct {
	Tag             string            `json:"tag"`
	Type            string            `json:"type,omitempty"`
	ID              string            `json:"id,omitempty"`
	Name            string            `json:"name,omitempty"`
	Classes         []string          `json:"classes,omitempty"`
	Label           string            `json:"label,omitempty"`
	Title           string            `json:"title,omitempty"`
	AriaLabel       string            `json:"aria_label,omitempty"`
	Action          string            `json:"action,omitempty"`
	ContentEditable bool              `json:"contenteditable,omitempty"`
	Data            map[string]string `json:"data,omitempty"`
}

// Event is one user interaction.
type Event struct {
	Type   EventType `json:"type"`
	Target Element   `json:"target"`
}

// nonEditableInputs are input types that never hold an edit in progress.
var nonEditableInputs = map[string]bool{
	"hidden": true,
	"submit": true,
	"button": true,
	"reset":  true,
	"image":  true,
}

// isFormField reports whether e accepts typed or selected input.
func (e Element) isFormField() bool {
	switch strings.ToLower(e.Tag) {
	case "textarea", "select":
		return true
	case "input":
		return !nonEditableInputs[strings.ToLower(e.Type)]
	}
	return e.ContentEditable
}

// acceptsMarkedInput reports whether an element carrying an editor marker
// can take typed input. Marked cells and wrappers count; buttons, links and
// hidden, submit, button, reset or image inputs never do.
func (e Element) acceptsMarkedInput() bool {
	switch strings.ToLower(e.Tag) {
	case "button", "a":
		return false
	case "input":
		return !nonEditableInputs[strings.ToLower(e.Type)]
	}
	return true
}

// isControl reports whether e is something a user clicks to act.
func (e Element) isControl() bool {
	switch strings.ToLower(e.Tag) {
	case "button", "a":
		return true
	case "input":
		return nonEditableInputs[strings.ToLower(e.Type)] && strings.ToLower(e.Type) != "hidden"
	}
	return e.Action != ""
}

func (e Element) hasClass(name string) bool {
	for _, c := range e.Classes {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// words returns every descriptive token on the element: label text,
// title, aria-label, data-action, id, name and classes.
func (e Element) words() []string {
	var out []string
	for _, s := range []string{e.Label, e.Title, e.AriaLabel, e.Action, e.ID, e.Name} {
		out = append(out, tokenize(s)...)
	}
	for _, c := range e.Classes {
		out = append(out, tokenize(c)...)
	}
	return out
}

// tokenize splits on non-alphanumerics and lower-to-upper case boundaries,
// so "addRow", "add-row" and "Add row" all yield "add", "row".
func tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	var prevLower bool

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}

	for _, r := range s {
		isLower := r >= 'a' && r <= 'z'
		isUpper := r >= 'A' && r <= 'Z'
		isDigit := r >= '0' && r <= '9'
		switch {
		case isUpper && prevLower:
			flush()
			cur.WriteRune(r)
		case isLower || isUpper || isDigit || r > 127:
			cur.WriteRune(r)
		default:
			flush()
		}
		prevLower = isLower
	}
	flush()
	return tokens
}
