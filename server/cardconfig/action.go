package cardconfig

import "strings"

// ActionKind is the kind of action run for a gesture.
type ActionKind string

// Action kinds
const (
	ActionNone        ActionKind = "none"
	ActionMoreInfo    ActionKind = "more-info"
	ActionNavigate    ActionKind = "navigate"
	ActionURL         ActionKind = "url"
	ActionCallService ActionKind = "call-service"
)

// Action describes what happens when an incident is tapped, double tapped or held.
type Action struct {
	Action         ActionKind     `json:"action,omitempty" yaml:"action,omitempty" jsonschema:"enum=none,enum=more-info,enum=navigate,enum=url,enum=call-service,default=more-info"`
	NavigationPath string         `json:"navigation_path,omitempty" yaml:"navigation_path,omitempty"`
	URLPath        string         `json:"url_path,omitempty" yaml:"url_path,omitempty"`
	Service        string         `json:"service,omitempty" yaml:"service,omitempty" jsonschema:"description=domain.service"`
	ServiceData    map[string]any `json:"service_data,omitempty" yaml:"service_data,omitempty"`
}

// ServiceParts splits Service into its domain and service name. The boolean result is false
// when Service is not of the form "domain.service".
func (a Action) ServiceParts() (domain, service string, ok bool) {
	domain, service, ok = strings.Cut(strings.TrimSpace(a.Service), ".")
	if !ok || domain == "" || service == "" {
		return "", "", false
	}
	return domain, service, true
}

// normalizeAction returns a copy of a with a known kind. Unset and unknown kinds become
// more-info; "open-url" is accepted as a synonym for url.
func normalizeAction(a *Action) *Action {
	out := a.clone()
	if out == nil {
		out = &Action{}
	}

	switch kind := ActionKind(strings.ToLower(strings.TrimSpace(string(out.Action)))); kind {
	case ActionNone, ActionMoreInfo, ActionNavigate, ActionURL, ActionCallService:
		out.Action = kind
	case "open-url":
		out.Action = ActionURL
	default:
		out.Action = ActionMoreInfo
	}

	return out
}
