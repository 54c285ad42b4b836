package internal

import "time"

type Config struct {
	// BadgerFilepath is the store location; empty runs the store purely
	// in memory (live transport, no offline cache).
	BadgerFilepath  string        `env:"BADGER_FILEPATH"`
	RoomCode        string        `env:"ROOM_CODE"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	MonitorInterval time.Duration `env:"MONITOR_INTERVAL,default=1s"`
	HealthInterval  time.Duration `env:"HEALTH_INTERVAL,default=30s"`
}
