package models

import "time"

// Admin is the authenticated administrator returned by GET /admin/me.
type Admin struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginRequest is the body of POST /admin/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginResponse carries the bearer token issued by the backend.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
}

// Trend is a week-over-week change in percent.
type Trend struct {
	Value      float64 `json:"value"`
	IsPositive bool    `json:"isPositive"`
}

// Trends groups the dashboard trend values.
type Trends struct {
	Total     Trend `json:"total"`
	Open      Trend `json:"open"`
	Resolved  Trend `json:"resolved"`
	Documents Trend `json:"documents"`
}

// Stats is the dashboard counter payload of GET /tickets/stats.
type Stats struct {
	Total     int     `json:"total"`
	Open      int     `json:"open"`
	Resolved  int     `json:"resolved"`
	Documents int     `json:"documents"`
	Trends    *Trends `json:"trends,omitempty"`
}

// ActivityType drives how an activity entry is highlighted.
type ActivityType string

const (
	ActivityInfo    ActivityType = "info"
	ActivitySuccess ActivityType = "success"
	ActivityDefault ActivityType = "default"
)

// Activity is one entry of the admin activity feed.
type Activity struct {
	Action    string       `json:"action"`
	Type      ActivityType `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Entity    string       `json:"entity,omitempty"`
	EntityID  string       `json:"entityId,omitempty"`
}
