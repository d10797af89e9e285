package main

import (
	"nivaas/config"
	"nivaas/di"
	"nivaas/shared/logger"
)

func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	http := di.InitializeService()
	http.Serve()
}
