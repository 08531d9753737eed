package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Mints an HS256 bearer token for a given subject so the API can be
// exercised locally without the identity provider.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: go run ./cmd/devtoken <subject>")
		os.Exit(2)
	}
	subject := os.Args[1]

	secret := os.Getenv("AUTH_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change"
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	fmt.Println(signed)
}
