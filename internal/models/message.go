package models

// RoomMessage is a plaintext broadcast message in a room. Rooms are not
// end-to-end encrypted; inbound bodies still pass the security filter
// before being surfaced.
type RoomMessage struct {
	ID     string `json:"id,omitempty"`
	Room   string `json:"room"`
	From   string `json:"from"`
	Body   string `json:"body"`
	SentAt int64  `json:"ts,omitempty"`
}
