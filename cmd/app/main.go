package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/suchimauz/docplanner-slots-gateway/internal/adapters/in/http"
	"github.com/suchimauz/docplanner-slots-gateway/internal/adapters/in/rabbitmq"
	"github.com/suchimauz/docplanner-slots-gateway/internal/adapters/out/cache"
	"github.com/suchimauz/docplanner-slots-gateway/internal/adapters/out/logger"
	rabbitmqpublisher "github.com/suchimauz/docplanner-slots-gateway/internal/adapters/out/rabbitmq"
	"github.com/suchimauz/docplanner-slots-gateway/internal/adapters/out/slotapi"
	"github.com/suchimauz/docplanner-slots-gateway/internal/config"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/out"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/retry"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/services"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	mainLogger := logger.NewZerologLogger(logger.Options{
		Level:    cfg.App.LogLevel,
		Timezone: cfg.App.Timezone,
		Pretty:   cfg.IsLocal(),
	})
	log := mainLogger.WithModule("Main")

	// Идентификатор инстанса для событий инвалидации
	instanceID := uuid.NewString()

	log.Info("app.starting", out.LogFields{
		"version":         cfg.App.Version,
		"env":             cfg.App.Env,
		"timezone":        cfg.App.Timezone,
		"instanceId":      instanceID,
		"cacheBackend":    cfg.Cache.Backend,
		"slotApiMock":     cfg.SlotAPI.Mock,
		"rabbitmqEnabled": cfg.RabbitMq.Enabled,
	})

	if cfg.IsNotLocal() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var slotAPI out.SlotAPIPort
	if cfg.SlotAPI.Mock {
		slotAPI = slotapi.NewMockSlotAPIAdapter(mainLogger.WithModule("MockSlotAPIAdapter"))
	} else {
		slotAPI = slotapi.NewSlotAPIAdapter(cfg, mainLogger.WithModule("SlotAPIAdapter"))
	}

	var cacheAdapter out.AvailabilityCachePort
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		redisCache, err := cache.NewRedisCacheAdapter(ctx, cfg, mainLogger.WithModule("RedisCacheAdapter"))
		if err != nil {
			log.Error("app.cache.init_failed", out.LogFields{
				"error": err.Error(),
			})
			os.Exit(1)
		}
		defer redisCache.Close()
		cacheAdapter = redisCache
	default:
		cacheAdapter = cache.NewMemoryCacheAdapter(cfg, mainLogger.WithModule("MemoryCacheAdapter"))
	}

	executor := retry.NewExecutor(cfg.Retry.Count, cfg.Retry.InitialDelaySeconds, mainLogger.WithModule("Retry"))
	slotService := services.NewSlotService(slotAPI, cacheAdapter, executor, cfg.Cache.TTL, mainLogger)

	// Настройка RabbitMQ только если он включен
	if cfg.RabbitMq.Enabled {
		publisher, err := rabbitmqpublisher.NewEventPublisher(cfg, instanceID, mainLogger.WithModule("RabbitMQPublisher"))
		if err != nil {
			log.Error("app.rabbitmq.publisher_failed", out.LogFields{
				"error": err.Error(),
			})
			os.Exit(1)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error("app.rabbitmq.publisher_close_failed", out.LogFields{
					"error": err.Error(),
				})
			}
		}()
		slotService.SetEventPublisher(publisher, instanceID)

		listener, err := rabbitmq.NewInvalidationListener(slotService, cfg, instanceID, mainLogger.WithModule("RabbitMQListener"))
		if err != nil {
			log.Error("app.rabbitmq.init_failed", out.LogFields{
				"error": err.Error(),
			})
			os.Exit(1)
		}
		if err := listener.Start(ctx); err != nil {
			log.Error("app.rabbitmq.start_failed", out.LogFields{
				"error": err.Error(),
			})
			os.Exit(1)
		}
		defer func() {
			if err := listener.Stop(); err != nil {
				log.Error("app.rabbitmq.stop_failed", out.LogFields{
					"error": err.Error(),
				})
			}
		}()
	}

	auth, err := http.NewAuthenticator(cfg)
	if err != nil {
		log.Error("app.auth.init_failed", out.LogFields{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	server := &nethttp.Server{
		Addr:    cfg.HTTP.Host + ":" + cfg.HTTP.Port,
		Handler: http.NewRouter(cfg, slotService, auth, mainLogger.WithModule("Http")),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("app.http.starting", out.LogFields{
			"host": cfg.HTTP.Host,
			"port": cfg.HTTP.Port,
		})

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Error("app.http.failed", out.LogFields{
				"error": err.Error(),
			})
			sigChan <- syscall.SIGTERM
		}
	}()

	sig := <-sigChan
	log.Info("app.shutdown.initiated", out.LogFields{
		"signal": sig.String(),
	})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("app.http.shutdown_failed", out.LogFields{
			"error": err.Error(),
		})
	}
	cancel()

	log.Info("app.shutdown.completed", nil)
}
