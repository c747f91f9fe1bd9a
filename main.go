package main

import (
	"os"

	"scheduling-engine/core/logger"
	"scheduling-engine/core/server"
)

func main() {
	if err := server.Run(); err != nil {
		logger.Error("Main:Run:Error", "error", err)
		os.Exit(1)
	}
}
