package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/maimweb/backend/internal/repository"
	"github.com/maimweb/backend/internal/service"
	"github.com/maimweb/backend/internal/upstream"
)

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		upstreamURL = flag.String("upstream-url", os.Getenv("UPSTREAM_BASE_URL"), "Configuration service base URL")
		pageSize    = flag.Int("page-size", service.DefaultReconcilePageSize, "Upstream page size")
		timeout     = flag.Duration("timeout", time.Minute, "Overall timeout")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if *upstreamURL == "" {
		fmt.Fprintln(os.Stderr, "UPSTREAM_BASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	client := upstream.New(upstream.Config{BaseURL: *upstreamURL}, nil, logger)

	report, err := service.NewReconciler(repo, client, *pageSize, logger).Run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "reconcile:", err)
		os.Exit(1)
	}

	switch *format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			fmt.Fprintln(os.Stderr, "encode output:", err)
			os.Exit(1)
		}
	default:
		fmt.Printf("upstream_tenants=%d\n", report.Upstream)
		fmt.Printf("local_tenants=%d\n", report.Local)
		for _, id := range report.UpstreamOnly {
			fmt.Printf("upstream_only=%s\n", id)
		}
		for _, id := range report.LocalOnly {
			fmt.Printf("local_only=%s\n", id)
		}
	}

	if !report.Consistent() {
		os.Exit(2)
	}
}
