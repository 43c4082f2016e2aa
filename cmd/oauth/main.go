//go:generate swag init -g internal/oauth/http/router.go -d ../../ -o ../../api/oauth --packageName oauth --parseDependency

package main

import (
	"log"

	"github.com/saltoplay/platform/internal/oauth/app"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
