package main

import (
	"fmt"
	"log"
	"os"

	"github.com/step-chen/bitbucket-server-go/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run tools/encrypt_key/main.go <api-token>")
	}

	token := os.Args[1]
	encrypted, err := config.Encrypt(token)
	if err != nil {
		log.Fatalf("Failed to encrypt API token: %v", err)
	}

	fmt.Println("Encrypted API token:")
	fmt.Println("enc:" + encrypted)
	fmt.Println("\nStore this value as bitbucket.api_token in your config.yaml")
}
