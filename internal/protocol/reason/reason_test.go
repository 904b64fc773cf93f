package reason_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"walletlink/internal/protocol/reason"
)

func TestCodes(t *testing.T) {
	cases := []struct {
		c    reason.Coded
		code int
	}{
		{reason.InvalidMethod, 1001},
		{reason.InvalidSessionSettlementRequest, 1005},
		{reason.UnauthorizedChain, 3005},
		{reason.UserRejected, 5000},
		{reason.UserRejectedEvents, 5003},
		{reason.UnsupportedChains, 5100},
		{reason.UnsupportedNamespaceKey, 5104},
		{reason.UserDisconnected, 6000},
		{reason.SessionSettlementFailed, 7000},
		{reason.NoSessionForTopic, 7001},
		{reason.SessionRequestExpired, 8000},
		{reason.MethodUnsupported, 10001},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.c.Reason().Code, "%T(%v)", tc.c, tc.c)
		assert.NotEmpty(t, tc.c.Reason().Message)
	}
}

func TestCodesAreUnique(t *testing.T) {
	seen := map[int]bool{}
	for _, r := range reason.All() {
		assert.False(t, seen[r.Code], "duplicate code %d", r.Code)
		seen[r.Code] = true
	}
	assert.True(t, reason.Known(5104))
	assert.False(t, reason.Known(4242))
}

func TestWithMessage(t *testing.T) {
	r := reason.UnsupportedChains.Reason().WithMessage("eip155: chains not approved")
	assert.Equal(t, 5100, r.Code)
	assert.Equal(t, "eip155: chains not approved", r.Message)
	assert.Equal(t, "Unsupported chains.", reason.UnsupportedChains.Reason().Message)
}

func TestUndefinedPanics(t *testing.T) {
	assert.Panics(t, func() { _ = reason.Session(99).Reason() })
}
