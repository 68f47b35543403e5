package main

import "time"

type Config struct {
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	SearchIndexPath   string        `env:"SEARCH_INDEX_PATH,required=true"`
	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	TypingQuiet       time.Duration `env:"TYPING_QUIET,default=3s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	IndexBufferSize   int           `env:"INDEX_BUFFER_SIZE,default=1024"`
	Host              string        `env:"HOST,default=localhost"`
	Port              int           `env:"PORT,default=8080"`
}
