package network

import "time"

// Config holds trigger server configuration
type Config struct {
	// Address to bind, ":0" picks a free port
	Address string

	// Path of the websocket endpoint
	Path string

	// Timing
	ReadTimeout  time.Duration // Idle limit per peer, 0 = none
	WriteTimeout time.Duration

	// Limits
	MaxMessageSize int64
	SendQueueSize  int
	MaxPeers       int
}

// DefaultConfig returns local-network defaults
func DefaultConfig() *Config {
	return &Config{
		Address:        ":7777",
		Path:           "/ws",
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   5 * time.Second,
		MaxMessageSize: 4096,
		SendQueueSize:  64,
		MaxPeers:       16,
	}
}

// normalize fills zero fields from defaults
func (c *Config) normalize() *Config {
	def := DefaultConfig()
	out := *c
	if out.Path == "" {
		out.Path = def.Path
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = def.WriteTimeout
	}
	if out.MaxMessageSize <= 0 {
		out.MaxMessageSize = def.MaxMessageSize
	}
	if out.SendQueueSize <= 0 {
		out.SendQueueSize = def.SendQueueSize
	}
	if out.MaxPeers <= 0 {
		out.MaxPeers = def.MaxPeers
	}
	return &out
}
