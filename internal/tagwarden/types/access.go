package types

import "time"

// AccessCheckRequest is what a scanner posts when a card is presented.
type AccessCheckRequest struct {
	Scanner string `json:"scanner" validate:"required"`
	Token   string `json:"token" validate:"required"`
}

type AccessInfo struct {
	Granted    bool   `json:"granted"`
	Until      string `json:"until,omitempty"`
	DenyReason string `json:"denyReason,omitempty"`
}

type AccessData struct {
	Token   string `json:"token"`
	User    string `json:"user,omitempty"`
	Scanner string `json:"scanner"`
}

// AccessCheckResponse is the body for every access check reply. Data is set
// when the request was understood and a decision was recorded; Error is set
// otherwise.
type AccessCheckResponse struct {
	Access    AccessInfo  `json:"access"`
	Data      *AccessData `json:"data,omitempty"`
	Code      string      `json:"code,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// Outcome is the terminal state of the decision chain.
type Outcome string

const (
	OutcomeGranted         Outcome = "GRANTED"
	OutcomeScannerNotFound Outcome = "SCANNER_NOT_FOUND"
	OutcomeScannerDisabled Outcome = "SCANNER_DISABLED"
	OutcomeTokenNotFound   Outcome = "TOKEN_NOT_FOUND"
	OutcomeTokenDisabled   Outcome = "TOKEN_DISABLED"
	OutcomeUserNotFound    Outcome = "USER_NOT_FOUND"
	OutcomeUserDisabled    Outcome = "USER_DISABLED"
	OutcomeNoAccess        Outcome = "NO_ACCESS"
	OutcomeAccessDisabled  Outcome = "ACCESS_DISABLED"
	OutcomeAccessExpired   Outcome = "ACCESS_EXPIRED"
)

var denyReasons = map[Outcome]string{
	OutcomeScannerNotFound: "scanner not found",
	OutcomeScannerDisabled: "scanner disabled",
	OutcomeTokenNotFound:   "token not found",
	OutcomeTokenDisabled:   "token disabled",
	OutcomeUserNotFound:    "user not found",
	OutcomeUserDisabled:    "user disabled",
	OutcomeNoAccess:        "no access",
	OutcomeAccessDisabled:  "access disabled",
	OutcomeAccessExpired:   "access expired",
}

// DenyReason is the audit-log tag for a denial, empty for OutcomeGranted.
func (o Outcome) DenyReason() string {
	return denyReasons[o]
}

// Logged reports whether a decision with this outcome writes an audit entry.
// An unknown scanner has nothing to attach the entry to.
func (o Outcome) Logged() bool {
	return o != OutcomeScannerNotFound
}

// Decision is the result of one run of the decision chain.
type Decision struct {
	Granted    bool
	Outcome    Outcome
	DenyReason string
	Until      *time.Time // grant expiry, set only on a granted decision with a finite grant

	ScannerID string
	TokenUID  string // normalised uid as looked up
	TokenID   string // empty when the uid did not resolve
	UserID    string
	UserEmail string

	DecidedAt time.Time
}
