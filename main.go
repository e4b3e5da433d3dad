package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"lg/free-day-go-api/internal/freeday"
	"lg/free-day-go-api/internal/session"
	"lg/free-day-go-api/internal/store"
)

func main() {
	log.SetPrefix("lg/free-day-go-api: ")

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	dsn := cfg.DBURL
	if cfg.DBDriver == "sqlite" {
		dsn = cfg.SQLitePath
	}
	db, err := store.Open(context.Background(), cfg.DBDriver, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	fmt.Printf("%s store ready!\n", cfg.DBDriver)

	h := &Handler{
		store: db,
		ledger: freeday.NewLedger(db, db, db,
			freeday.WithPolicy(cfg.MarginPolicy),
			freeday.WithLocation(cfg.Location),
		),
		signer:        session.NewSigner(cfg.JWTSecret, cfg.JWTTTL),
		identity:      newGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL),
		frontendURL:   cfg.FrontendURL,
		openAIBaseURL: cfg.OpenAIBaseURL,
	}

	gin.SetMode(cfg.GinMode)
	router := gin.Default()
	router.SetTrustedProxies(nil)
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	h.registerRoutes(router)

	fmt.Printf("Starting gin app on :%s (margin policy %s)...\n", cfg.Port, cfg.MarginPolicy)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
