package backend_test

import (
	"encoding/json"
	"testing"

	"github.com/forma-dev/bridge-core/backend"
	"github.com/zeebo/assert"
)

func TestDecodeExecutionResult(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		kind backend.TrackingKind
		id   string
	}{
		{
			name: "nested steps",
			raw:  `{"steps":[{"items":[{"txHashes":[{"txHash":"0xabc","chainId":984122}]}]}]}`,
			kind: backend.TrackingSteps,
			id:   "0xabc",
		},
		{
			name: "nested request id without hashes",
			raw:  `{"steps":[{"items":[{"requestId":"req-42"}]}]}`,
			kind: backend.TrackingSteps,
			id:   "req-42",
		},
		{
			name: "first hash wins across steps",
			raw:  `{"steps":[{"items":[{"txHashes":[]}]},{"items":[{"txHashes":[{"txHash":"0xsecond"}]}]}]}`,
			kind: backend.TrackingSteps,
			id:   "0xsecond",
		},
		{
			name: "flat tx hash",
			raw:  `{"txHash":"0xflat","status":"submitted"}`,
			kind: backend.TrackingFlat,
			id:   "0xflat",
		},
		{
			name: "flat request id",
			raw:  `{"requestId":"req-7"}`,
			kind: backend.TrackingFlat,
			id:   "req-7",
		},
		{
			name: "tx hash preferred over id",
			raw:  `{"txHash":"0xhash","id":"ignored"}`,
			kind: backend.TrackingFlat,
			id:   "0xhash",
		},
		{
			name: "empty object",
			raw:  `{}`,
			kind: backend.TrackingUnknown,
		},
		{
			name: "unrecognized shape",
			raw:  `{"outcome":"done"}`,
			kind: backend.TrackingUnknown,
		},
		{
			name: "empty payload",
			raw:  ``,
			kind: backend.TrackingUnknown,
		},
		{
			name: "not json at all",
			raw:  `definitely not json`,
			kind: backend.TrackingUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := backend.DecodeExecutionResult(json.RawMessage(tc.raw))
			assert.Equal(t, tc.kind, outcome.Kind)
			assert.Equal(t, tc.id, outcome.TrackingID)
		})
	}
}
