package models

import "strings"

// SignalState is the resolution state of one identity provider.
type SignalState string

const (
	SignalPending SignalState = "pending"
	SignalAbsent  SignalState = "absent"
	SignalPresent SignalState = "present"
)

// Signal is what an identity provider reports: still resolving, resolved to
// nothing, or resolved to an identity.
type Signal struct {
	State    SignalState `json:"state" binding:"omitempty,oneof=pending absent present" example:"present"`
	Identity string      `json:"identity,omitempty" example:"0x71C7656EC7ab88b098defB751B7401B5f6d8976F"`
}

func Pending() Signal { return Signal{State: SignalPending} }
func Absent() Signal  { return Signal{State: SignalAbsent} }

func Present(identity string) Signal {
	return Signal{State: SignalPresent, Identity: identity}
}

func (s Signal) IsPending() bool { return s.State == SignalPending }
func (s Signal) IsAbsent() bool  { return s.State == SignalAbsent }

func (s Signal) IsPresent() bool {
	return s.State == SignalPresent && s.Identity != ""
}

// SocialIdentity is the OAuth side of a user.
type SocialIdentity struct {
	Provider        string `json:"provider" example:"twitter"`
	ID              string `json:"id" example:"1456789"`
	Username        string `json:"username" example:"monad_fan"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

// Key identifies the identity across providers.
func (s SocialIdentity) Key() string {
	return s.Provider + ":" + s.ID
}

// Session is derived on every evaluation and never persisted.
type Session struct {
	WalletAddress  *string         `json:"wallet_address,omitempty"`
	SocialIdentity *SocialIdentity `json:"social_identity,omitempty"`
	Authorized     bool            `json:"authorized"`
}

// Wallet returns the lower-cased wallet address or "".
func (s Session) Wallet() string {
	if s.WalletAddress == nil {
		return ""
	}
	return strings.ToLower(*s.WalletAddress)
}

// Outcome labels a gate decision for logs and metrics.
type Outcome string

const (
	OutcomePending    Outcome = "pending"
	OutcomeAuthorized Outcome = "authorized"
	OutcomeDenied     Outcome = "denied"
)

// Decision is the gate's answer for one evaluation.
type Decision struct {
	Authorized        bool    `json:"authorized"`
	RedirectTarget    string  `json:"redirect_target,omitempty" example:"/home"`
	Outcome           Outcome `json:"outcome"`
	ProvisionalWallet bool    `json:"provisional_wallet"`
	Session           Session `json:"session"`

	// MirrorWallet is set when the caller must write the wallet cookie.
	MirrorWallet string `json:"-"`
}

// MountResponse is returned when a page load registers itself.
type MountResponse struct {
	MountID  string `json:"mount_id" example:"5b3c1b0e-3f0e-4d7a-9a4f-6c1f6e0e2a11"`
	DeviceID string `json:"device_id"`
}

// EvaluateRequest carries the client-reported provider states.
type EvaluateRequest struct {
	Wallet      Signal `json:"wallet"`
	Social      Signal `json:"social"`
	CurrentPath string `json:"current_path" example:"/"`
}

// SocialSessionRequest is posted by the OAuth bridge after a sign-in.
type SocialSessionRequest struct {
	Provider        string `json:"provider" binding:"required,oneof=twitter telegram" example:"twitter"`
	ID              string `json:"id" binding:"required" example:"1456789"`
	Username        string `json:"username" binding:"required" example:"monad_fan"`
	ProfileImageURL string `json:"profile_image_url" binding:"omitempty,url"`
}

// SocialSessionResponse hands the opaque token back to the bridge.
type SocialSessionResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in" example:"2592000"`
}
