package config

import "time"

// Server defaults
const (
	DefaultPort        = "8080"
	DefaultStorage     = "badger"
	DefaultDataDir     = "./data/airsense"
	DefaultSQLitePath  = "./data/airsense.db"
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 10 * time.Second
	ShutdownTimeout    = 30 * time.Second
)

// Realtime buffer
const (
	// MaxRealtimeEntries bounds the in-memory recent-activity buffer.
	MaxRealtimeEntries = 100

	// BroadcastInterval matches the dashboard poll cadence.
	BroadcastInterval = 5 * time.Second
)

// Request timeouts
const (
	IngestTimeout = 5 * time.Second
	QueryTimeout  = 10 * time.Second
	StatsTimeout  = 5 * time.Second
)

// Retention of raw readings. Hourly aggregates are kept forever.
const (
	DefaultRetentionDays = 90
	RetentionInterval    = 24 * time.Hour
	BadgerGCInterval     = 10 * time.Minute
)

// Export defaults and limits
const (
	DefaultExportWindow = 24 * time.Hour
	MaxExportWindow     = 30 * 24 * time.Hour
)

// Sunrise/sunset lookups
const (
	SunLookupTimeout = 10 * time.Second
)

// WebSocket configuration
const (
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSBroadcastBuffer = 256
	WSChannelBuffer   = 10
	WSWriteDeadline   = 10 * time.Second
	WSReadDeadline    = 60 * time.Second
	WSPingInterval    = 30 * time.Second
)
