package models

import "time"

// ActionKind names a coordinated chain write.
type ActionKind string

const (
	ActionJoin ActionKind = "join"
	ActionBet  ActionKind = "bet"
)

// ActionState is the lifecycle of one coordinated write.
type ActionState string

const (
	StateIdle                 ActionState = "idle"
	StatePreconditionCheck    ActionState = "precondition_check"
	StateSubmitting           ActionState = "submitting"
	StateAwaitingConfirmation ActionState = "awaiting_confirmation"
	StateSucceeded            ActionState = "succeeded"
	StateFailed               ActionState = "failed"
)

// InFlight reports whether a new submission must wait.
func (s ActionState) InFlight() bool {
	return s == StatePreconditionCheck || s == StateSubmitting || s == StateAwaitingConfirmation
}

// BetSelection is the target/type/amount a bet flow carries until it succeeds.
type BetSelection struct {
	Participant string `json:"participant"`
	BetType     string `json:"betType"`
	Amount      string `json:"amount"`
}

// ActionStatus is what the client polls to render feedback.
type ActionStatus struct {
	Kind      ActionKind    `json:"kind"`
	State     ActionState   `json:"state"`
	Seq       uint64        `json:"seq"`
	TxHash    string        `json:"txHash,omitempty"`
	Message   string        `json:"message,omitempty"`
	Error     string        `json:"error,omitempty"`
	Selection *BetSelection `json:"selection,omitempty"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

type ActionsResponse struct {
	Join ActionStatus `json:"join"`
	Bet  ActionStatus `json:"bet"`
}

// BetRequest places a bet. BetType accepts "0"/"1" or the display label and
// defaults to "0". Missing fields are precondition failures, not bad requests.
type BetRequest struct {
	Participant string `json:"participant" example:"0x71C7656EC7ab88b098defB751B7401B5f6d8976F"`
	BetType     string `json:"betType" binding:"omitempty,max=16" example:"0"`
	Amount      string `json:"amount" binding:"max=40" example:"0.5"`
}

type LabelsResponse struct {
	Bettor   string            `json:"bettor"`
	UserBets map[string]string `json:"userBets"`
}
