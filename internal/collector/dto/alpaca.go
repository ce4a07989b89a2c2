package dto

import "encoding/json"

// AlpacaMessage is one element of the arrays pushed by the market data stream. Control
// messages ("success", "error", "subscription") and trades ("t") share the envelope.
type AlpacaMessage struct {
	Type      string      `json:"T"`
	Msg       string      `json:"msg,omitempty"`
	Code      int         `json:"code,omitempty"`
	Symbol    string      `json:"S,omitempty"`
	Price     json.Number `json:"p,omitempty"`
	Size      json.Number `json:"s,omitempty"`
	Timestamp string      `json:"t,omitempty"`
}

type AlpacaAuthRequest struct {
	Action string `json:"action"`
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

type AlpacaSubscribeRequest struct {
	Action string   `json:"action"`
	Trades []string `json:"trades"`
}
