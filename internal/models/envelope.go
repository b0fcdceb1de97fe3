package models

// Envelope is an encrypted direct message as the relay stores and routes
// it. The relay sees sender, recipient, nonce and ciphertext — nothing it
// holds can recover the plaintext.
type Envelope struct {
	ID         string `json:"id,omitempty"`
	From       string `json:"from"`
	To         string `json:"to"`
	Nonce      string `json:"nonce"`      // base64, 24 bytes decoded
	Ciphertext string `json:"ciphertext"` // base64
	SentAt     int64  `json:"ts,omitempty"`
}
