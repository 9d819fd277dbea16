// internal/domain/models/status.go
package models

// Record status values for persons and organizations.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)
