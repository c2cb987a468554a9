package mcp

import (
	"fmt"
	"strings"
)

type TransportType string

const (
	TransportHTTP  TransportType = "http"
	TransportSSE   TransportType = "sse"
	TransportStdio TransportType = "stdio"
)

// Server names used by the tasker.
const (
	ServerMemory = "memory"
	ServerMisc   = "misc"
)

// ServerConfig describes how to reach one MCP server.
type ServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// GetTransport picks SSE for URLs ending in /sse and streamable HTTP for
// every other URL.
func (c *ServerConfig) GetTransport() (TransportType, error) {
	if c.URL != "" {
		if strings.HasSuffix(strings.TrimRight(c.URL, "/"), "/sse") {
			return TransportSSE, nil
		}
		return TransportHTTP, nil
	}
	if c.Command != "" {
		return TransportStdio, nil
	}
	return "", fmt.Errorf("invalid config: neither url nor command provided")
}
