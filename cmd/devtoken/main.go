package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/noah-isme/timetable-change-api/internal/models"
	"github.com/noah-isme/timetable-change-api/internal/service"
	"github.com/noah-isme/timetable-change-api/pkg/config"
)

// devtoken signs a bearer token with the configured JWT secret so the API can
// be exercised locally without the identity provider.
func main() {
	userID := flag.String("user", "", "user id (faculty id for faculty tokens)")
	role := flag.String("role", string(models.RoleFaculty), "FACULTY, ADMIN or SUPERADMIN")
	email := flag.String("email", "", "email claim")
	name := flag.String("name", "", "full name claim")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Expiry: cfg.JWT.Expiration})
	token, expiresAt, err := tokens.Issue(*userID, models.UserRole(*role), *email, *name)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("%s\n# expires %s\n", token, expiresAt.Format(time.RFC3339))
}
