package firebase

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// TokenVerifier verifies Firebase ID tokens for the firebase-login exchange.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// Verifier wraps the Firebase auth client. With checkRevoked set, tokens of
// signed-out or disabled accounts are rejected at the cost of an extra lookup.
type Verifier struct {
	client       *auth.Client
	checkRevoked bool
}

// NewVerifier initializes the Firebase app from a service account file.
func NewVerifier(ctx context.Context, credentialsPath string, checkRevoked bool) (*Verifier, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("firebase credentials path not provided")
	}
	if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("firebase credentials file not found at %s", credentialsPath)
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	log.Info().Bool("check_revoked", checkRevoked).Msg("Firebase token verifier ready")
	return &Verifier{client: client, checkRevoked: checkRevoked}, nil
}

func (v *Verifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if v.checkRevoked {
		return v.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	}
	return v.client.VerifyIDToken(ctx, idToken)
}
