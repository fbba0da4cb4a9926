package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shreedev44/BetterBuddy-api/auth"
	"github.com/shreedev44/BetterBuddy-api/leaderboard"
	"github.com/shreedev44/BetterBuddy-api/notifications/email"
	"github.com/shreedev44/BetterBuddy-api/queue"
	"github.com/shreedev44/BetterBuddy-api/reflections"
	"github.com/shreedev44/BetterBuddy-api/server"
	"github.com/shreedev44/BetterBuddy-api/storage"
	"github.com/shreedev44/BetterBuddy-api/storage/cache"
	"github.com/shreedev44/BetterBuddy-api/tasks"
)

func main() {
	// Load the .env file
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Error loading .env file")
	}

	// Read the environment variables
	serverURL := os.Getenv("SERVER_URL")          // The URL where the server is running
	dbURI := os.Getenv("MONGODB_URI")             // MongoDB database URI
	dbName := os.Getenv("DB_NAME")                // The name of the MongoDB database
	accessKey := os.Getenv("JWT_ACCESS_SECRET")   // Signing key for access tokens
	refreshKey := os.Getenv("JWT_REFRESH_SECRET") // Signing key for refresh tokens
	smtpEmail := os.Getenv("GOOGLE_EMAIL")        // The email address used for sending OTP mail
	smtpPassword := os.Getenv("GOOGLE_PASS")      // The password for the email account
	redisURL := os.Getenv("REDIS_URL")            // The Redis URL for OTP dedupe and leaderboard caching
	rabbitMQURL := os.Getenv("RABBITMQ_URL")      // The URL for the RabbitMQ message broker
	numOTPProducers := 1
	numOTPConsumers := 2
	ctx := context.Background()

	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}

	// Initialize the email service with the email and password
	email.InitEmailService(smtpEmail, smtpPassword)

	// Initialize the OTP cache using the Redis URL
	otpCache := queue.InitOTPCache(redisURL)

	// Build the OTP queue using the RabbitMQ URL, number of producers and consumers, and OTP cache
	otpQueue := queue.BuildOTPQueue(rabbitMQURL, numOTPProducers, numOTPConsumers, otpCache)

	// Start the queue consumers
	_, _, err = otpQueue.StartConsumers(ctx)
	if err != nil {
		log.Fatal("error starting queue consumers: ", err)
	}

	// Connect to the database
	store, err := storage.NewStorage(dbName, dbURI)
	if err != nil {
		log.Fatal("error connecting to storage: ", err)
	}

	// Connect the leaderboard cache
	leaderboardCache, err := cache.NewCache(redisURL)
	if err != nil {
		log.Fatal("error connecting to cache: ", err)
	}

	// Initialize the services
	auth.InitAuth(store, accessKey, refreshKey, otpQueue)
	tasks.InitTasks(store)
	reflections.InitReflections(store)
	leaderboard.InitLeaderboard(store, leaderboardCache)

	// Start the core server
	go server.Start(serverURL)

	// Setting up the signal interrupt handler to gracefully shutdown our server
	sigs := make(chan os.Signal, 1)

	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigs
	fmt.Println()
	fmt.Println(sig)

	if err := store.Disconnect(); err != nil {
		log.Println("error disconnecting storage: ", err)
	}
	if err := leaderboardCache.Disconnect(); err != nil {
		log.Println("error disconnecting cache: ", err)
	}
}
