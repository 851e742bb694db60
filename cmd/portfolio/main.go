package main

import (
	"context"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/service"
)

type options struct {
	ConfigPath string `env:"CONFIG_PATH" envDefault:"config.yml"`
}

func main() {
	var opts options
	if err := env.Parse(&opts); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read environment: %v\n", err)
		os.Exit(1)
	}

	mainCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configPath := opts.ConfigPath
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Config %s not found, using defaults and environment\n", configPath)
		configPath = ""
	}

	svc, err := service.NewService(mainCtx, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create service: %v\n", err)
		os.Exit(1)
	}

	if err := svc.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Service stopped with error: %v\n", err)
		os.Exit(1)
	}
}
