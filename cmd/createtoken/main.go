package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"axiapac.com/timeclock/security"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	userID := flag.String("user", "", "user id")
	name := flag.String("name", "", "display name")
	email := flag.String("email", "", "email")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	if *userID == "" {
		log.Fatal("-user is required")
	}

	token, err := security.CreateIdentityToken(&security.Identity{
		UserID:   *userID,
		UserName: *name,
		Email:    *email,
	}, os.Getenv("JWT_SECRET"), int64(ttl.Seconds()))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
