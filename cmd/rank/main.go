package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/sustainasite/sustainasite-backend/internal/siting"
	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
)

func main() {
	var (
		address  = flag.String("address", "", "address or place name to search around")
		radius   = flag.Float64("radius", 50, "search radius in km")
		siteType = flag.String("type", "hybrid", "site type: solar, wind or hybrid")
		config   = flag.String("config", "", "pipeline options YAML (defaults to $SITING_OPTIONS)")
		overlays = flag.Bool("overlays", false, "include GeoJSON overlays in the output")
	)
	flag.Parse()

	if *address == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load(".env.local")
	cfg := provider.LoadFromEnv()
	// the CLI never records runs
	cfg.RecordRuns = false
	if *config != "" {
		cfg.OptionsPath = *config
	}

	opts, err := provider.LoadOptions(cfg.OptionsPath)
	if err != nil {
		log.Fatal(err)
	}

	p, err := siting.Build(cfg, opts)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := p.Run(ctx, siting.Request{Address: *address, RadiusKM: *radius, SiteType: *siteType}, nil)
	if err != nil {
		log.Fatal(err)
	}
	if !*overlays {
		res.Overlays = siting.Overlays{}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatal(err)
	}
}
