package operations

import (
	"fmt"
	"regexp"
	"strings"
)

// bindFailurePattern extracts the host port from docker's
// "Bind for 0.0.0.0:3000 failed" error text.
var bindFailurePattern = regexp.MustCompile(`Bind for [^\s:]+:(\d+) failed`)

// TranslateError turns a raw agent/docker error into a message a
// dashboard user can act on. It is total: unknown errors pass through
// unchanged, and the result is never empty for non-empty input.
// Rules are ordered; the first match wins.
func TranslateError(raw string) string {
	switch {
	case strings.Contains(raw, "port is already allocated") || bindFailurePattern.MatchString(raw):
		port := "unknown"
		if m := bindFailurePattern.FindStringSubmatch(raw); len(m) == 2 {
			port = m[1]
		}
		return fmt.Sprintf("Port %s is already in use. Please stop any other applications using this port.", port)

	case strings.Contains(raw, "Dockerfile: no such file"):
		return "No Dockerfile found. Please ensure your project has a valid Dockerfile."

	case strings.Contains(raw, "docker-compose") && strings.Contains(raw, "not found"):
		return "Docker Compose is not installed. Please install Docker Desktop."

	case strings.Contains(raw, "connection refused"):
		return "Docker daemon is not running. Please start Docker Desktop."

	case strings.Contains(raw, "permission denied"):
		return "Permission denied. Docker may require elevated privileges."

	case strings.Contains(raw, "out of memory") || strings.Contains(raw, "OOM"):
		return "Container ran out of memory. Consider increasing memory limits."

	case strings.Contains(raw, "network") && strings.Contains(raw, "not found"):
		return "Docker network not found. Try running 'docker network create' or restart Docker."

	default:
		return raw
	}
}
