package utils

import (
	"time"
)

// Token time constants
const (
	// AccessTokenTTL is the default time-to-live for access tokens (30 minutes)
	AccessTokenTTL = 30 * time.Minute

	// AccessTokenTTLSeconds is the default access token lifetime in seconds
	AccessTokenTTLSeconds = 1800
)

// Profile picture constants
const (
	// MaxProfilePictureBytes caps uploaded profile pictures (5 MiB)
	MaxProfilePictureBytes = 5 * 1024 * 1024

	// ProfilePicturePreviewSize is the bounding box for thumbnail previews
	ProfilePicturePreviewSize = 256
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Pagination bounds for admin listings
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)
