// Package models defines the server-side domain records.
package models

import "time"

// User is a directory record. Records are never physically deleted;
// deactivation flips IsActive instead.
type User struct {
	ID           string
	UserName     string
	Email        string
	FullName     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
