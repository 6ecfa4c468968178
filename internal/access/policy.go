// Package access evaluates template access-control tables and builds the
// per-document links an enquiry response may expose.
package access

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Action is one permitted operation on a document.
type Action string

const (
	ActionView     Action = "VIEW"
	ActionDownload Action = "DOWNLOAD"
	ActionDelete   Action = "DELETE"
)

// RequestorType classifies the caller, taken from the X-Requestor-Type header.
type RequestorType string

const (
	RequestorCustomer RequestorType = "CUSTOMER"
	RequestorAgent    RequestorType = "AGENT"
	RequestorSystem   RequestorType = "SYSTEM"
)

// ParseRequestorType normalizes the header value. Unknown or empty values are
// treated as the least-privileged CUSTOMER type.
func ParseRequestorType(s string) RequestorType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AGENT":
		return RequestorAgent
	case "SYSTEM":
		return RequestorSystem
	default:
		return RequestorCustomer
	}
}

// Role returns the access-control role a requestor type maps to.
func (r RequestorType) Role() string {
	return string(r)
}

// Policy is a template's parsed access-control table: role to permitted
// actions. Read-only after parsing.
type Policy struct {
	actions map[string][]Action
}

type rawPolicyEntry struct {
	Role    string   `json:"role"`
	Actions []string `json:"actions"`
}

// defaultPolicy applies when a template declares no access control, or
// declares it malformed. Customers and systems get the full enquiry surface,
// agents are read-only.
func defaultPolicy() *Policy {
	return &Policy{actions: map[string][]Action{
		RequestorCustomer.Role(): {ActionView, ActionDownload},
		RequestorAgent.Role():    {ActionView},
		RequestorSystem.Role():   {ActionView, ActionDownload},
	}}
}

// ParsePolicy decodes a template's accessControl JSON. Absent configuration
// yields the defaults; malformed configuration yields the defaults with a
// warning, never an error, so a bad table cannot hide documents entirely.
func ParsePolicy(data []byte, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	if len(data) == 0 || string(data) == "null" {
		return defaultPolicy()
	}

	var entries []rawPolicyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Warn("falling back to default access policy: malformed accessControl config", "error", err)
		return defaultPolicy()
	}
	if len(entries) == 0 {
		return defaultPolicy()
	}

	p := &Policy{actions: make(map[string][]Action, len(entries))}
	for _, entry := range entries {
		role := strings.ToUpper(strings.TrimSpace(entry.Role))
		if role == "" {
			continue
		}
		actions := make([]Action, 0, len(entry.Actions))
		for _, a := range entry.Actions {
			actions = append(actions, Action(strings.ToUpper(strings.TrimSpace(a))))
		}
		p.actions[role] = actions
	}
	if len(p.actions) == 0 {
		logger.Warn("falling back to default access policy: accessControl config declares no roles")
		return defaultPolicy()
	}
	return p
}

// Can reports whether the requestor may perform the action. A role absent
// from the table has no permissions.
func (p *Policy) Can(requestor RequestorType, action Action) bool {
	for _, a := range p.actions[requestor.Role()] {
		if a == action {
			return true
		}
	}
	return false
}

// AllowedActions returns the requestor's permitted actions.
func (p *Policy) AllowedActions(requestor RequestorType) []Action {
	return p.actions[requestor.Role()]
}
