package user

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	// role tags: admin, manager, delivery_crew; empty means plain customer
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RegisterRequest payload for account creation.
// swagger:model RegisterRequest
type RegisterRequest struct {
	Username string `json:"username" example:"mario"`
	Email    string `json:"email"    example:"mario@example.com"`
	Password string `json:"password" example:"hunter22"`
}

// PromoteRequest payload for granting a role tag.
// swagger:model PromoteRequest
type PromoteRequest struct {
	// manager or delivery_crew
	Role string `json:"role" example:"delivery_crew"`
}
