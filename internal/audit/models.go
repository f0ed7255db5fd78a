package audit

import (
	"time"

	"github.com/mssola/useragent"

	id "clavis/pkg/domain"
)

// Action names the audited operation.
type Action string

const (
	ActionUserCreated    Action = "user_created"
	ActionUserUpdated    Action = "user_updated"
	ActionUserDeleted    Action = "user_deleted"
	ActionUserLogin      Action = "user_login"
	ActionTokenRefreshed Action = "token_refreshed"
	ActionUserLogout     Action = "user_logout"
)

// Event is one audit record. Success events carry the acting user; failures
// may leave UserID zero when no account was resolved.
type Event struct {
	Action    Action            `json:"action"`
	UserID    id.UserID         `json:"user_id,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Success   bool              `json:"success"`
	Timestamp time.Time         `json:"timestamp"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// ClientFields derives coarse client descriptors from a User-Agent header for
// audit context. Raw user agents stay out of events to keep them compact.
func ClientFields(rawUA, ip string) map[string]string {
	fields := map[string]string{}
	if ip != "" {
		fields["ip"] = ip
	}
	if rawUA != "" {
		ua := useragent.New(rawUA)
		name, version := ua.Browser()
		if name != "" {
			fields["browser"] = name
			if version != "" {
				fields["browser_version"] = version
			}
		}
		if os := ua.OS(); os != "" {
			fields["os"] = os
		}
		if ua.Bot() {
			fields["bot"] = "true"
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
