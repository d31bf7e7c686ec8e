package backend

import "encoding/json"

// TrackingKind tags which shape the aggregator's execution result took.
type TrackingKind string

const (
	// TrackingSteps means the id came from a nested steps array.
	TrackingSteps TrackingKind = "steps"
	// TrackingFlat means the id came from a top-level hash/id field.
	TrackingFlat TrackingKind = "flat"
	// TrackingUnknown means no recognizable id was found. Not a failure:
	// the transfer still confirms, it just cannot be tracked afterwards.
	TrackingUnknown TrackingKind = "unknown"
)

// ExecutionOutcome is the decoded form of an aggregator execution result.
type ExecutionOutcome struct {
	Kind       TrackingKind
	TrackingID string
}

// stepsResult is the nested shape: steps -> items -> txHashes.
type stepsResult struct {
	Steps []struct {
		Items []struct {
			TxHashes []struct {
				TxHash string `json:"txHash"`
			} `json:"txHashes"`
			RequestID string `json:"requestId"`
		} `json:"items"`
	} `json:"steps"`
}

// flatResult is the flat shape: a top-level hash or id field.
type flatResult struct {
	TxHash    string `json:"txHash"`
	Hash      string `json:"hash"`
	ID        string `json:"id"`
	RequestID string `json:"requestId"`
}

// DecodeExecutionResult extracts a tracking id from whatever shape the
// aggregator's execute call returned. Each known shape is probed in order and
// the first id found wins; anything unrecognizable decodes to
// TrackingUnknown rather than an error.
func DecodeExecutionResult(raw json.RawMessage) ExecutionOutcome {
	if len(raw) == 0 {
		return ExecutionOutcome{Kind: TrackingUnknown}
	}

	var nested stepsResult
	if err := json.Unmarshal(raw, &nested); err == nil {
		for _, step := range nested.Steps {
			for _, item := range step.Items {
				for _, h := range item.TxHashes {
					if h.TxHash != "" {
						return ExecutionOutcome{Kind: TrackingSteps, TrackingID: h.TxHash}
					}
				}
				if item.RequestID != "" {
					return ExecutionOutcome{Kind: TrackingSteps, TrackingID: item.RequestID}
				}
			}
		}
	}

	var flat flatResult
	if err := json.Unmarshal(raw, &flat); err == nil {
		for _, candidate := range []string{flat.TxHash, flat.Hash, flat.RequestID, flat.ID} {
			if candidate != "" {
				return ExecutionOutcome{Kind: TrackingFlat, TrackingID: candidate}
			}
		}
	}

	return ExecutionOutcome{Kind: TrackingUnknown}
}
