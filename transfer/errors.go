package transfer

import (
	"errors"
	"fmt"
	"strings"
)

// Classifiable failure causes. The orchestrator maps these to distinct
// user-facing behavior; anything unmatched is a generic failure and gets the
// per-status message table.
var (
	// ErrNoTokenConnection means the bridge declares no counterpart token on
	// the destination chain; the route has no bridge path.
	ErrNoTokenConnection = errors.New("no token connection to destination")

	// ErrInsufficientCollateral means the destination side cannot release
	// the requested amount. Raised pre-flight, before any transaction is
	// created, so an on-chain revert never has to explain it.
	ErrInsufficientCollateral = errors.New("insufficient collateral on destination")

	// ErrChainMismatch means the wallet is connected to the wrong network
	// at send time.
	ErrChainMismatch = errors.New("wallet connected to wrong network")

	// ErrUnsupportedRoute means a required endpoint could not be resolved
	// by the backend that was supposed to serve it.
	ErrUnsupportedRoute = errors.New("unsupported route")
)

// rejectionPhrases are the wallet-rejection markers matched against errors.
// Wallets phrase denial differently, so both the error message and its
// verbose form are scanned case-insensitively.
var rejectionPhrases = []string{
	"user rejected",
	"user denied",
	"rejected by user",
	"request rejected",
	"user cancelled",
	"user canceled",
	"denied transaction signature",
}

// IsUserRejection reports whether the error is the user declining a wallet
// signing prompt. Such a failure is bookkept as StatusFailed but is silent
// to the user.
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	haystacks := []string{
		strings.ToLower(err.Error()),
		strings.ToLower(fmt.Sprintf("%+v", err)),
	}
	for _, haystack := range haystacks {
		for _, phrase := range rejectionPhrases {
			if strings.Contains(haystack, phrase) {
				return true
			}
		}
	}
	return false
}
