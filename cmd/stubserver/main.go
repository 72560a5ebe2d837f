package main

import (
	"context"
	"flag"
	"log"

	"github.com/verdantops/esgportal/pkg/config"
	"github.com/verdantops/esgportal/pkg/lifecycle"
	"github.com/verdantops/esgportal/pkg/stubserver"
)

func main() {
	log.Printf("Starting ESG stub services...")

	configPath := flag.String("config", "/etc/esgportal/stub.json", "Path to config file")
	flag.Parse()

	var cfg config.StubConfig
	if err := config.LoadAndValidate(*configPath, &cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	server, err := stubserver.NewServer(&cfg)
	if err != nil {
		log.Fatalf("Failed to create stub server: %v", err)
	}

	opts := &lifecycle.ServerOptions{
		ServiceName: "esg-stub-services",
		Service:     server,
	}

	if err := lifecycle.RunServer(context.Background(), opts); err != nil {
		log.Fatalf("Stub services failed: %v", err)
	}
}
