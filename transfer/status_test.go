package transfer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/zeebo/assert"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPreparing, StatusCreatingTxs, true},
		{StatusCreatingTxs, StatusSigningApprove, true},
		// approvals are optional; skipping the pair is a forward move
		{StatusCreatingTxs, StatusSigningTransfer, true},
		{StatusSigningApprove, StatusConfirmingApprove, true},
		{StatusConfirmingApprove, StatusSigningTransfer, true},
		{StatusSigningTransfer, StatusConfirmingTransfer, true},
		{StatusConfirmingTransfer, StatusConfirmedTransfer, true},
		{StatusConfirmedTransfer, StatusDelivered, true},

		// failure is reachable from every non-terminal status
		{StatusPreparing, StatusFailed, true},
		{StatusConfirmedTransfer, StatusFailed, true},

		// never backwards
		{StatusSigningTransfer, StatusCreatingTxs, false},
		{StatusConfirmedTransfer, StatusSigningTransfer, false},
		// delivered only from confirmed
		{StatusSigningTransfer, StatusDelivered, false},
		{StatusPreparing, StatusDelivered, false},
		// terminal states accept nothing
		{StatusDelivered, StatusFailed, false},
		{StatusFailed, StatusDelivered, false},
		{StatusFailed, StatusFailed, false},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s->%s", tc.from, tc.to), func(t *testing.T) {
			assert.Equal(t, tc.ok, tc.from.canTransition(tc.to))
		})
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusPreparing.Terminal())
	assert.False(t, StatusConfirmedTransfer.Terminal())
}

func TestFailureMessage(t *testing.T) {
	assert.Equal(t, "Error while creating the transactions", FailureMessage(StatusCreatingTxs))
	assert.Equal(t, "Error while signing the approval transaction", FailureMessage(StatusSigningApprove))
	// statuses without a dedicated message fall back to the generic one
	assert.Equal(t, "Unable to complete the transfer", FailureMessage(StatusConfirmedTransfer))
}

func TestIsUserRejection(t *testing.T) {
	assert.True(t, IsUserRejection(errors.New("User rejected the request")))
	assert.True(t, IsUserRejection(errors.New("MetaMask Tx Signature: User denied transaction signature.")))
	assert.True(t, IsUserRejection(fmt.Errorf("send failed: %w", errors.New("request rejected"))))
	assert.True(t, IsUserRejection(errors.New("USER CANCELLED")))

	assert.False(t, IsUserRejection(nil))
	assert.False(t, IsUserRejection(errors.New("insufficient funds")))
	assert.False(t, IsUserRejection(errors.New("connection refused")))
}
