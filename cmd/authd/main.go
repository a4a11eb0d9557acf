package main

import (
	"log"
	"net/http"
	"time"

	"github.com/rs/cors"

	"audioforge/internal/application/auth"
	"audioforge/internal/config"
	"audioforge/internal/infrastructure/userdb"
	"audioforge/internal/transport/authhttp"
)

func main() {
	cfg := config.Load()

	users, err := userdb.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}
	defer users.Close()

	service, err := auth.NewService(users, []byte(cfg.JWTSecret), time.Duration(cfg.TokenTTLHours)*time.Hour)
	if err != nil {
		log.Fatalf("auth init failed: %v", err)
	}

	handler := authhttp.NewHandler(service)
	router := authhttp.NewRouter(handler)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"POST", "OPTIONS"},
	})

	log.Printf("Auth service running on %s", cfg.AuthAddr)
	log.Fatal(http.ListenAndServe(cfg.AuthAddr, c.Handler(router)))
}
