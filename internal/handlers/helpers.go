package handlers

import (
	"strings"

	"github.com/google/uuid"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// allowedMimeTypes is the static allow-list for document uploads.
var allowedMimeTypes = map[string]bool{
	"image/jpeg":         true,
	"image/png":          true,
	"image/gif":          true,
	"image/webp":         true,
	"image/svg+xml":      true,
	"application/pdf":    true,
	"application/zip":    true,
	"text/plain":         true,
	"text/csv":           true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

func isAllowedMimeType(contentType string) bool {
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return allowedMimeTypes[strings.TrimSpace(strings.ToLower(contentType))]
}

func validRoles(roles []string) bool {
	for _, role := range roles {
		if role != "user" && role != "admin" {
			return false
		}
	}
	return true
}
