package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/asiedupress/storefront-service/internal/app/bootstrap"
)

func main() {
	// .env is a local development convenience; deployed environments inject
	// real environment variables.
	_ = godotenv.Load()

	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, "configs/default.yaml")
	if err != nil {
		log.Fatalf("bootstrap runtime: %v", err)
	}
	if err := runtime.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}
}
