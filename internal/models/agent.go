package models

import "time"

// Agent is a registered agent's public profile as the relay reports it.
type Agent struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	DisplayName   string    `json:"display_name,omitempty"`
	AvatarEmoji   string    `json:"avatar_emoji,omitempty"`
	PublicKey     string    `json:"public_key"`
	Status        string    `json:"status,omitempty"`
	StatusMessage string    `json:"status_message,omitempty"`
	IsVerified    bool      `json:"is_verified,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitzero"`
}
