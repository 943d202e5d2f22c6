package cart

import (
	"encoding/json"
	"fmt"
)

// stateVersion is bumped whenever the persisted shape changes incompatibly.
const stateVersion = 1

type envelope struct {
	Version int             `json:"version"`
	State   persistedFields `json:"state"`
}

type persistedFields struct {
	Items            []LineItem        `json:"items"`
	AppliedDiscounts []AppliedDiscount `json:"appliedDiscounts"`
	TaxSettings      *TaxSettings      `json:"taxSettings"`
}

func encodeState(s State) ([]byte, error) {
	return json.Marshal(envelope{
		Version: stateVersion,
		State: persistedFields{
			Items:            s.Items,
			AppliedDiscounts: s.AppliedDiscounts,
			TaxSettings:      s.TaxSettings,
		},
	})
}

func decodeState(data []byte) (State, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return emptyState(), fmt.Errorf("decode cart state: %w", err)
	}
	if env.Version > stateVersion {
		return emptyState(), fmt.Errorf("unsupported cart state version %d", env.Version)
	}

	state := emptyState()
	for _, item := range env.State.Items {
		if item.ProductID == "" || item.VariantID == "" || item.Quantity < 1 {
			continue
		}
		state.Items = append(state.Items, item)
	}
	if env.State.AppliedDiscounts != nil {
		state.AppliedDiscounts = env.State.AppliedDiscounts
	}
	state.TaxSettings = env.State.TaxSettings
	return state, nil
}
