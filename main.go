package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	config "github.com/phillip/club-manager-go/config"
	routes "github.com/phillip/club-manager-go/routes"
	store "github.com/phillip/club-manager-go/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := config.Load()

	ctx := context.Background()
	if err := cfg.InitMongo(ctx); err != nil {
		log.Fatalf("mongo init: %v", err)
	}
	defer func() {
		if err := cfg.CloseMongo(ctx); err != nil {
			log.Printf("mongo disconnect: %v", err)
		}
	}()

	st := store.NewMongoStore(cfg.MongoClient, cfg.DBName)
	idxCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := st.EnsureIndexes(idxCtx); err != nil {
		cancel()
		log.Fatalf("ensure indexes: %v", err)
	}
	cancel()

	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		corsCfg.AllowOrigins = strings.Split(origins, ",")
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "If-None-Match")
	r.Use(cors.New(corsCfg))

	routes.SetupRoutes(r, cfg)

	log.Printf("listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
