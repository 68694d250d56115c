// Package store holds the remote persistence service's data model and its
// backends (memory, SQLite, Postgres). The engine only reaches it over HTTP.
package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("player not found")
	ErrInvalidUsername = errors.New("username is required")
)

type Player struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Balance      int64     `json:"balance"`
	DonatBalance int64     `json:"donat_balance"`
	Status       string    `json:"status"`
	IsAdmin      bool      `json:"is_admin"`
	TotalClicks  int64     `json:"total_clicks"`
	TotalVisits  int64     `json:"total_visits"`
	LastVisit    time.Time `json:"last_visit"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type BusinessRow struct {
	BusinessType int   `json:"business_type"`
	Count        int64 `json:"count"`
}

type CarRow struct {
	CarType int   `json:"car_type"`
	Count   int64 `json:"count"`
}

// Record is a player together with its ownership rows.
type Record struct {
	Player     Player        `json:"player"`
	Businesses []BusinessRow `json:"businesses"`
	Cars       []CarRow      `json:"cars"`
}

// Update merges into a stored player. Nil fields are left untouched; an
// ownership count <= 0 removes the row.
type Update struct {
	Username     string        `json:"username"`
	Balance      *int64        `json:"balance,omitempty"`
	DonatBalance *int64        `json:"donat_balance,omitempty"`
	Status       *string       `json:"status,omitempty"`
	IsAdmin      *bool         `json:"is_admin,omitempty"`
	TotalClicks  *int64        `json:"total_clicks,omitempty"`
	Businesses   map[int]int64 `json:"businesses,omitempty"`
	Cars         map[int]int64 `json:"cars,omitempty"`
}

// DefaultStatus is the tier name a freshly registered player carries.
const DefaultStatus = "Bum"

type Store interface {
	// Register creates the player when absent and returns the stored row.
	Register(ctx context.Context, username string) (Player, error)
	// Visit loads a player with ownership rows and records the visit.
	Visit(ctx context.Context, username string) (Record, error)
	// Roster lists up to limit players by balance, richest first.
	Roster(ctx context.Context, limit int) ([]Player, error)
	Update(ctx context.Context, in Update) (Player, error)
}

func normalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrInvalidUsername
	}
	return username, nil
}

func Int64(v int64) *int64 { return &v }

func String(v string) *string { return &v }

func Bool(v bool) *bool { return &v }
