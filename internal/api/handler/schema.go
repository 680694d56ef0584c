package handler

import (
	"time"

	"github.com/abhichhetri09/ravintola/internal/core/domain"
	"github.com/abhichhetri09/ravintola/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error" example:"user not found"`
}

type messageResponse struct {
	Message string `json:"message" example:"signed out"`
}

type signInRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

type signInResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Role      string       `json:"role" example:"customer"`
	IsAdmin   bool         `json:"is_admin"`
	User      *domain.User `json:"user"`
}

type dashboardResponse struct {
	User           *domain.User `json:"user"`
	MealsUntilFree int          `json:"meals_until_free" example:"3"`
	CardProgress   int          `json:"card_progress" example:"3"`
	CardSize       int          `json:"card_size" example:"6"`
}

type voucherResponse struct {
	Payload      string    `json:"payload"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	CurrentMeals int       `json:"current_meals"`
}

type transactionsResponse struct {
	Transactions []domain.Transaction `json:"transactions"`
}

type scanRequest struct {
	Payload        string `json:"payload"         validate:"required,max=4096"`
	RestaurantName string `json:"restaurant_name" validate:"omitempty,max=120"`
}

type scanResponse struct {
	Status         domain.ScanStatus    `json:"status" example:"redeemed"`
	Message        string               `json:"message" example:"Meal added successfully!"`
	UID            string               `json:"uid,omitempty"`
	Meals          int                  `json:"meals,omitempty"`
	MealsUntilFree int                  `json:"meals_until_free,omitempty"`
	FreeMealEarned bool                 `json:"free_meal_earned,omitempty"`
	Transactions   []domain.Transaction `json:"transactions,omitempty"`
}

// streamCommand is a control frame on the scanner stream.
type streamCommand struct {
	Command string `json:"command" validate:"required,oneof=pause resume"`
}

// streamEvent is pushed to the scanner stream: a scan result or the loop state.
type streamEvent struct {
	Type   string        `json:"type"`
	Result *scanResponse `json:"result,omitempty"`
	Paused bool          `json:"paused"`
}

func toScanResponse(r *ports.ScanResult) scanResponse {
	return scanResponse{
		Status:         r.Status,
		Message:        r.Message,
		UID:            r.UID,
		Meals:          r.Meals,
		MealsUntilFree: r.MealsUntilFree,
		FreeMealEarned: r.FreeMealEarned,
		Transactions:   r.Transactions,
	}
}

func failedScan() scanResponse {
	return scanResponse{Status: domain.ScanFailed, Message: domain.ScanFailed.Message()}
}
