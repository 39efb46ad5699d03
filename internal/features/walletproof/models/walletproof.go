package models

import "time"

// PayloadResponse is the one-time challenge a wallet must sign
// @Description One-time challenge for wallet ownership proof
type PayloadResponse struct {
	Payload   string    `json:"payload" example:"3f1c2d..."`                                      // Случайная строка
	Message   string    `json:"message" example:"monad-deathmatch.app wants you to prove..."` // Текст для personal_sign
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifyRequest carries the signed challenge
// @Description Signed challenge for wallet ownership proof
type VerifyRequest struct {
	Address   string `json:"address" binding:"required,eth_addr" example:"0x71C7656EC7ab88b098defB751B7401B5f6d8976F"` // Адрес кошелька
	Payload   string `json:"payload" binding:"required" example:"3f1c2d..."`                                          // Выданный payload
	Signature string `json:"signature" binding:"required" example:"0x5b1f...1c"`                                      // Подпись personal_sign в hex
}

// VerifyResponse represents a response for the verification request
// @Description Response for wallet ownership proof
type VerifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ProofRecord is stored once a device proved it controls a wallet.
type ProofRecord struct {
	DeviceID   string    `json:"device_id"`
	Address    string    `json:"address"`
	VerifiedAt time.Time `json:"verified_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Challenge is an issued payload waiting for its signature.
type Challenge struct {
	DeviceID string    `json:"device_id"`
	Payload  string    `json:"payload"`
	IssuedAt time.Time `json:"issued_at"`
}
