// cmd/seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/unclebandit/crm-backend/internal/config"
	"github.com/unclebandit/crm-backend/internal/db"
)

var seedFiles = []string{
	"schema.sql",
	"customers.sql",
}

func main() {
	dir := flag.String("dir", "seed", "directory holding the seed SQL files")
	flag.Parse()

	if err := run(*dir); err != nil {
		slog.Error("seeding failed", "err", err)
		os.Exit(1)
	}
	fmt.Println("Database seeding completed successfully!")
}

func run(dir string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	config.NewLogger(cfg.Log)

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, name := range seedFiles {
		file := filepath.Join(dir, name)
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		if _, err := conn.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute %s: %w", file, err)
		}
		fmt.Printf("Seeded: %s\n", file)
	}
	return nil
}
