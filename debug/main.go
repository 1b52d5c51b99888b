package main

import (
	"os"

	"github.com/emrgen/intake/internal/server"
)

func main() {
	httpPort := os.Getenv("INTAKE_HTTP_PORT")
	if httpPort == "" {
		httpPort = "8040"
	}

	err := server.Start(httpPort)
	if err != nil {
		return
	}
}
