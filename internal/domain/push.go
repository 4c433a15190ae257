package domain

// Push dispatch outcome reasons. A user with no registered device is a normal
// state, not an error, so dispatch returns a result value instead of failing.
const (
	PushReasonNoTokens      = "no_tokens"
	PushReasonNoValidTokens = "no_valid_tokens"
	PushReasonAPIError      = "api_error"
)

// PushResult summarizes one dispatch attempt.
type PushResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
	Sent    int    `json:"sent,omitempty"`
}
