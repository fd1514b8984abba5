package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Facilitator-Network/agent-cli-backend/pkg/app"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/app/relay"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var runner app.Runner = relay.NewServer(cfg)
	if err := runner.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Bridge relay exited: %v\n", err)
		os.Exit(1)
	}
}
