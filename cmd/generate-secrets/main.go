package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/interline-booking-backend/internal/utils"
	"github.com/smarttransit/interline-booking-backend/pkg/jwt"
)

func main() {
	secret := flag.String("secret", "", "sign a token with this secret instead of generating one")
	issuer := flag.String("issuer", "interline-booking", "token issuer")
	pos := flag.String("pos", "", "issue a development agent token for this point of sale")
	company := flag.String("company", "Development Agency", "agency company name")
	onAccount := flag.String("on-account", "Yes", "on-account flag carried in the token")
	roles := flag.String("roles", "agent", "comma separated roles")
	expiry := flag.Duration("expiry", 8*time.Hour, "token lifetime")
	flag.Parse()

	fmt.Println("===========================================")
	fmt.Println("Agent Token Secret Generator")
	fmt.Println("===========================================")
	fmt.Println()

	if *secret == "" {
		generated, err := utils.GenerateJWTSecret()
		if err != nil {
			log.Fatalf("Failed to generate secret: %v", err)
		}
		*secret = generated

		fmt.Println("✅ Secret generated successfully!")
		fmt.Println()
		fmt.Println("Add this to your .env file:")
		fmt.Println()
		fmt.Printf("JWT_SECRET=%s\n", *secret)
		fmt.Println()
	}

	if *pos != "" {
		agent := jwt.Agent{
			AgentID:     uuid.New(),
			POS:         *pos,
			OnAccount:   *onAccount,
			CompanyName: *company,
			Roles:       strings.Split(*roles, ","),
		}
		token, err := jwt.NewService(*secret, *issuer, *expiry).GenerateAccessToken(agent)
		if err != nil {
			log.Fatalf("Failed to issue agent token: %v", err)
		}
		fmt.Printf("Agent ID: %s\n", agent.AgentID)
		fmt.Printf("Bearer token (valid %s):\n%s\n", *expiry, token)
		fmt.Println()
	}

	fmt.Println("⚠️  IMPORTANT: Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
