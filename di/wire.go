//go:build wireinject
// +build wireinject

package di

import (
	"time"

	"github.com/google/wire"
	goRedis "github.com/redis/go-redis/v9"

	"nivaas/config"
	"nivaas/infras/kafka"
	"nivaas/infras/otel"
	"nivaas/infras/paytm"
	"nivaas/infras/postgres"
	"nivaas/infras/redis"
	"nivaas/infras/whatsapp"
	approvalService "nivaas/internal/domains/approval/service"
	bookingRepository "nivaas/internal/domains/booking/repository"
	bookingService "nivaas/internal/domains/booking/service"
	paymentService "nivaas/internal/domains/payment/service"
	"nivaas/internal/events"
	bookingHandler "nivaas/internal/handlers/booking"
	paymentHandler "nivaas/internal/handlers/payment"
	whatsappHandler "nivaas/internal/handlers/whatsapp"
	"nivaas/shared/cache"
	"nivaas/shared/dedup"
	"nivaas/transport/http"
	"nivaas/transport/http/middleware"
	"nivaas/transport/http/router"
)

var configurations = wire.NewSet(
	config.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	kafka.New,
	whatsapp.New,
	paytm.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
	provideDedupRegistry,
)

func provideDedupRegistry(cfg *config.Config, client *goRedis.Client) dedup.Registry {
	return dedup.NewRedisRegistry(client, time.Duration(cfg.Webhook.DedupTTLSeconds)*time.Second)
}

var bookingDomain = wire.NewSet(
	bookingRepository.New,
	bookingService.New,
)

var paymentDomain = wire.NewSet(
	paymentService.New,
)

var approvalDomain = wire.NewSet(
	approvalService.New,
)

var domains = wire.NewSet(
	events.NewPublisher,
	bookingDomain,
	paymentDomain,
	approvalDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	bookingHandler.New,
	paymentHandler.New,
	whatsappHandler.New,
	router.New,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}
