package main

import (
	"log"

	"tours_backend/startup"
	"tours_backend/startup/config"
)

func main() {
	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	server := startup.NewServer(cfg)
	server.Start()
}
