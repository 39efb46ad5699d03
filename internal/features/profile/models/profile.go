package models

import "time"

// User is a row of the users table: one wallet and its linked social identity.
type User struct {
	ID              int64     `json:"id" example:"1"`
	WalletAddress   string    `json:"walletAddress" example:"0x71c7656ec7ab88b098defb751b7401b5f6d8976f"`
	TwitterID       *string   `json:"twitterId,omitempty" example:"1456789"`
	TwitterUsername *string   `json:"twitterUsername,omitempty" example:"monad_fan"`
	Username        *string   `json:"username,omitempty"`
	ProfileImageURL *string   `json:"profileImageUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Profile is what the arena view needs about a wallet.
type Profile struct {
	WalletAddress   string `json:"walletAddress"`
	SocialUsername  string `json:"socialUsername"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// ToProfile picks the social username, preferring the Twitter handle.
func (u *User) ToProfile() Profile {
	p := Profile{WalletAddress: u.WalletAddress}
	switch {
	case u.TwitterUsername != nil && *u.TwitterUsername != "":
		p.SocialUsername = *u.TwitterUsername
	case u.Username != nil:
		p.SocialUsername = *u.Username
	}
	if u.ProfileImageURL != nil {
		p.ProfileImageURL = *u.ProfileImageURL
	}
	return p
}

// ConnectTwitterRequest links a social identity to a wallet
// @Description Wallet <-> social link. Omitted social fields are taken from the caller's session.
type ConnectTwitterRequest struct {
	WalletAddress   string `json:"walletAddress" binding:"required,eth_addr" example:"0x71C7656EC7ab88b098defB751B7401B5f6d8976F"`
	TwitterID       string `json:"twitterId" example:"1456789"`
	TwitterUsername string `json:"twitterUsername" binding:"omitempty,max=16" example:"monad_fan"`
	ProfileImageURL string `json:"profileImageUrl" binding:"omitempty,url,max=2048"`
}

type ConnectTwitterResponse struct {
	Success bool  `json:"success"`
	Data    *User `json:"data"`
}

// UserListItem is one entry of GET /api/user/get-users
type UserListItem struct {
	ID              int64   `json:"id"`
	WalletAddress   string  `json:"walletAddress"`
	TwitterUsername *string `json:"twitterUsername"`
	Username        *string `json:"username,omitempty"`
	ProfileImageURL *string `json:"profileImageUrl"`
}

// ParticipantStat is a mirrored participant joined with its profile.
type ParticipantStat struct {
	Address         string    `json:"address"`
	TwitterUsername *string   `json:"twitterUsername"`
	ProfileImage    *string   `json:"profileImage"`
	IsEliminated    bool      `json:"isEliminated"`
	JoinedAt        time.Time `json:"joinedAt"`
}

type ParticipantStatsResponse struct {
	Success      bool              `json:"success"`
	Participants []ParticipantStat `json:"participants"`
}
