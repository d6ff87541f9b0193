package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Config carries everything the handlers need: the Mongo handle, the
// database name, and the signing secrets. It is constructed once in main and
// injected into every handler and service; nothing here is package-level
// state.
type Config struct {
	MongoClient      *mongo.Client
	DBName           string
	Port             string
	JWTSecret        string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
}

// Load reads configuration from the environment. Call godotenv.Load first
// if a .env file should be honoured.
func Load() *Config {
	cfg := &Config{
		DBName:           getEnv("MONGO_DB_NAME", "club_manager"),
		Port:             getEnv("PORT", "8080"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTRefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
	}
	if cfg.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET is not set")
	}
	return cfg
}

// InitMongo connects and pings the MongoDB deployment. Transactions require
// a replica set; MONGO_URI should point at one.
func (c *Config) InitMongo(ctx context.Context) error {
	uri := getEnv("MONGO_URI", "mongodb://localhost:27017")

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}

	c.MongoClient = client
	log.Println("Connected to MongoDB")
	return nil
}

// CloseMongo disconnects the client. Safe to call once at shutdown.
func (c *Config) CloseMongo(ctx context.Context) error {
	if c.MongoClient == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.MongoClient.Disconnect(ctx)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
