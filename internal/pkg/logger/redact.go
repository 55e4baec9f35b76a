package logger

import "strings"

// RedactKey returns a safe representation of an API key for logging:
// the last four characters prefixed with "...". Workspace API keys are
// tenant credentials and must never appear in full in any log line.
func RedactKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "..." + key[len(key)-4:]
}

// redactValue redacts values for field names that look like credentials.
func redactValue(key, val string) string {
	k := strings.ToLower(key)
	if strings.Contains(k, "api_key") || strings.Contains(k, "apikey") ||
		strings.Contains(k, "credential") || strings.Contains(k, "token") ||
		strings.Contains(k, "workspace") {
		return RedactKey(val)
	}
	return val
}
