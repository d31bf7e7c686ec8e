package transfer

// Status is a transfer's position in the state machine. The zero value is
// StatusPreparing. Ordering is significant: a record may only move to a
// status with a higher ordinal (skipping the approval pair when the token
// needs no allowance), or to StatusFailed from any non-terminal status.
type Status int

const (
	StatusPreparing Status = iota
	StatusCreatingTxs
	StatusSigningApprove
	StatusConfirmingApprove
	StatusSigningTransfer
	StatusConfirmingTransfer
	StatusConfirmedTransfer
	StatusDelivered
	StatusFailed
)

var statusNames = map[Status]string{
	StatusPreparing:          "preparing",
	StatusCreatingTxs:        "creating-txs",
	StatusSigningApprove:     "signing-approve",
	StatusConfirmingApprove:  "confirming-approve",
	StatusSigningTransfer:    "signing-transfer",
	StatusConfirmingTransfer: "confirming-transfer",
	StatusConfirmedTransfer:  "confirmed-transfer",
	StatusDelivered:          "delivered",
	StatusFailed:             "failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

// canTransition reports whether a record at s may move to next.
func (s Status) canTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	if next == StatusDelivered {
		return s == StatusConfirmedTransfer
	}
	return next > s && next < StatusDelivered
}

// failureMessages maps the status a transfer failed in to the human-readable
// message shown for generic failures. The raw error is logged, never shown.
var failureMessages = map[Status]string{
	StatusPreparing:          "Error while preparing the transfer",
	StatusCreatingTxs:        "Error while creating the transactions",
	StatusSigningApprove:     "Error while signing the approval transaction",
	StatusConfirmingApprove:  "Error while confirming the approval transaction",
	StatusSigningTransfer:    "Error while signing the transfer transaction",
	StatusConfirmingTransfer: "Error while confirming the transfer transaction",
}

// FailureMessage returns the user-facing message for a generic failure at
// the given status.
func FailureMessage(at Status) string {
	if msg, ok := failureMessages[at]; ok {
		return msg
	}
	return "Unable to complete the transfer"
}
