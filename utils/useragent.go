package utils

import (
	"strings"

	ua "github.com/mileusna/useragent"
)

// ParseUserAgent extracts client, OS and device class for request logs
func ParseUserAgent(userAgent string) (client, os, device string) {
	if userAgent == "" {
		return "unknown", "unknown", "unknown"
	}

	parsedUA := ua.Parse(userAgent)

	client = parsedUA.Name
	if client == "" {
		client = "unknown"
	}

	os = parsedUA.OS
	if os == "" {
		os = "unknown"
	}

	switch {
	case parsedUA.Bot:
		device = "bot"
	case parsedUA.Mobile:
		device = "mobile"
	case parsedUA.Tablet:
		device = "tablet"
	default:
		device = "desktop"
	}

	return strings.TrimSpace(client), strings.TrimSpace(os), device
}
