package models

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession groups the messages of one conversation.
type ChatSession struct {
	// ID is the session identifier (UUID, client- or server-assigned).
	ID string `json:"id" gorm:"column:id;primaryKey"`
	// WalletAddress is the owning wallet.
	WalletAddress string `json:"wallet_address" gorm:"column:wallet_address;index;not null"`
	// Title is the display title shown in the session list.
	Title string `json:"title" gorm:"column:title"`
	// CreatedAt is the unix timestamp when the session was created.
	CreatedAt int64 `json:"created_at" gorm:"column:created_at"`
	// UpdatedAt is the unix timestamp of the last activity, used for list ordering.
	UpdatedAt int64 `json:"updated_at" gorm:"column:updated_at;index"`
}

// ChatMessage is one turn of a conversation. Ordering within a session is
// creation-time ascending.
type ChatMessage struct {
	// ID is the unique identifier for the message.
	ID string `json:"id" gorm:"column:id;primaryKey"`
	// SessionID is the owning session.
	SessionID string `json:"session_id" gorm:"column:session_id;index;not null"`
	// WalletAddress is the owning wallet.
	WalletAddress string `json:"wallet_address" gorm:"column:wallet_address;index;not null"`
	// Role is user or assistant.
	Role string `json:"role" gorm:"column:role;not null"`
	// Content is the message text.
	Content string `json:"content" gorm:"column:content;not null"`
	// RewardSignature is the reward transfer signature, set only on
	// user-authored messages for which disbursement succeeded.
	RewardSignature string `json:"reward_signature,omitempty" gorm:"column:reward_signature"`
	// CreatedAt is the unix timestamp used as the ordering key.
	CreatedAt int64 `json:"created_at" gorm:"column:created_at;index"`
}

// ChatTurn is one entry of the conversation history sent to the LLM provider.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
