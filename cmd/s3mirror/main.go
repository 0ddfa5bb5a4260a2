package main

import (
	"os"

	"s3mirror/internal/logger"

	// Explicitly import backend implementations to ensure their init() functions run and they register themselves
	_ "s3mirror/pkg/storage/aws"
)

func main() {
	log := logger.NewLogger(false)

	app, err := newApp(log)
	if err != nil {
		log.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	Execute(app)
}
