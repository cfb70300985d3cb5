package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env before configuration is read so CHATWIDGET_* values in it apply
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		// The logger does not exist yet
		log.Printf("failed to load .env: %v", err)
	}
}
