package notification

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Credentials locates the service account used for the Firebase app.
// Base64 wins over File when both are set.
type Credentials struct {
	Base64    string
	File      string
	ProjectID string
}

// NewApp initializes the Firebase app shared by Firestore, Auth and FCM.
// With no credentials configured it falls back to application default
// credentials (GOOGLE_APPLICATION_CREDENTIALS or the metadata server).
func NewApp(ctx context.Context, creds Credentials, logger *zap.Logger) (*firebase.App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts []option.ClientOption
	switch {
	case creds.Base64 != "":
		decoded, err := base64.StdEncoding.DecodeString(creds.Base64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(decoded))
		logger.Info("firebase: credentials from environment")
	case creds.File != "":
		if _, err := os.Stat(creds.File); err != nil {
			return nil, fmt.Errorf("firebase credentials file %s: %w", creds.File, err)
		}
		opts = append(opts, option.WithCredentialsFile(creds.File))
		logger.Info("firebase: credentials from file", zap.String("path", creds.File))
	default:
		logger.Info("firebase: using application default credentials")
	}

	var cfg *firebase.Config
	if creds.ProjectID != "" {
		cfg = &firebase.Config{ProjectID: creds.ProjectID}
	}

	app, err := firebase.NewApp(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	return app, nil
}
