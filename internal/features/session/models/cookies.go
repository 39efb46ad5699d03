package models

// Cookie and header names shared by the gate handlers and the route guard.
const (
	CookieWallet        = "walletAddress"
	CookieSocialSession = "social_session"

	HeaderSocialSession = "X-Social-Session"
	HeaderInitData      = "init_data"
	HeaderBridgeSecret  = "X-Bridge-Secret"

	ContextKeySocial = "social_identity"
)
