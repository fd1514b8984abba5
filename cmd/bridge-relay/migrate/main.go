package main

import (
	"context"
	"flag"
	"log"

	"github.com/uptrace/bun/migrate"

	"github.com/Facilitator-Network/agent-cli-backend/pkg/config"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/migrations/archivedb"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/pgutil"
	mghelper "github.com/Facilitator-Network/agent-cli-backend/pkg/pgutil/migrations"
)

func main() {
	cfgPath := flag.String("config", "config.example.yaml", "Path to configuration file")
	flag.Usage = mghelper.Usage
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("error reading configuration file: %s", err.Error())
	}

	db, err := pgutil.ConnectDB(context.Background(), &cfg.Archive.Database, nil)
	if err != nil {
		log.Fatalf("error connecting to database: %s", err.Error())
	}
	defer db.Close()

	log.Printf("Running migrations for bridge archive database (%s)...\n", cfg.Archive.Database.Database)

	migrator := migrate.NewMigrator(db, archivedb.Migrations)
	if err := mghelper.RunMigrations(migrator, flag.Args()...); err != nil {
		mghelper.Exitf(err.Error())
	}
}
