package api

import (
	"time"

	"github.com/pushchain/easystake/stakingClient/staking"
)

// QueryResponse represents the standard query response format
type QueryResponse struct {
	Data      interface{} `json:"data"`
	ChainName string      `json:"chain_name"`
	Served    time.Time   `json:"served"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ActionRequest starts a staking action. Amount is in token units.
type ActionRequest struct {
	Action     string   `json:"action"`
	Amount     string   `json:"amount,omitempty"`
	Validators []string `json:"validators,omitempty"`
}

// ValidatorsRequest replaces the validators picked by hand.
type ValidatorsRequest struct {
	Validators []string `json:"validators"`
}

// ActionResponse reports the action in progress.
type ActionResponse struct {
	Action          staking.Action `json:"action"`
	AmountToConfirm string         `json:"amount_to_confirm"`
	Human           string         `json:"amount_human"`
}
