package utils

import "github.com/google/uuid"

// GenerateID returns a random UUID string for use as a row id.
func GenerateID() string {
	return uuid.NewString()
}
