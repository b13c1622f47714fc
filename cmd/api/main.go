package main

import (
	"context"
	"log"

	"github.com/Apurer/uniform-orders-api/internal/app/api"
)

func main() {
	if err := api.Run(context.Background()); err != nil {
		log.Fatalf("uniform orders API: %v", err)
	}
}
