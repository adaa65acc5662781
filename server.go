package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"messenger/api/handlers"
	"messenger/api/middleware"
	"messenger/api/routes"
	"messenger/config"
	"messenger/db"
	"messenger/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	err := config.LoadConfig(configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	log.Println("Starting server...")

	if err := db.ConnectDB(); err != nil {
		panic("Failed to connect to the database: " + err.Error())
	}

	if err := services.InitRedis(); err != nil {
		panic("Failed to connect to Redis: " + err.Error())
	}
	defer services.CloseRedis()

	ctx := context.Background()

	services.InitQueueService()
	services.QueueServiceInstance.StartWorkers(ctx)

	if err := services.InitRabbitMQ(); err != nil {
		log.Println("RabbitMQ unavailable, push notifications disabled:", err)
	} else {
		defer services.CloseRabbitMQ()
		if err := services.StartNotificationConsumer(ctx, "messenger_push"); err != nil {
			log.Println("Failed to start notification consumer:", err)
		}
	}

	mediaDir := config.AppConfig.Media.Dir
	if mediaDir == "" {
		mediaDir = "./media"
	}
	mediaBaseURL := config.AppConfig.Media.BaseURL
	if mediaBaseURL == "" {
		mediaBaseURL = "/media"
	}
	storage, err := services.NewLocalStorage(mediaDir, mediaBaseURL)
	if err != nil {
		panic("Failed to init media storage: " + err.Error())
	}

	feed := services.NewRedisChangeFeed(services.RedisClient)
	handlers.Init(feed, storage)

	router := gin.Default()
	router.Use(middleware.PrometheusMiddleware("messenger"))

	routes.PublicApi(router)
	routes.MessengerApi(router, handlers.AuthSvc)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.Static("/media", mediaDir)

	addr := ":8080"
	if config.AppConfig.Backend.Port != 0 {
		addr = fmt.Sprintf("%s:%d", config.AppConfig.Backend.Host, config.AppConfig.Backend.Port)
	}
	if err := router.Run(addr); err != nil {
		panic(err)
	}
}
