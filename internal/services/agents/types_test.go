package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestAgentRequestBaseURL(t *testing.T) {
	t.Run("Should build plain HTTP URL", func(t *testing.T) {
		req := TestAgentRequest{Host: "vps1.example.com", Port: 8088}
		assert.Equal(t, "http://vps1.example.com:8088", req.baseURL())
	})

	t.Run("Should build HTTPS URL when TLS is enabled", func(t *testing.T) {
		req := TestAgentRequest{Host: "vps1.example.com", Port: 443, UseTLS: true}
		assert.Equal(t, "https://vps1.example.com:443", req.baseURL())
	})
}
