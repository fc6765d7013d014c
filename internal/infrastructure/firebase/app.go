package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// App wraps the Firebase Admin app and hands out the service clients the
// relay needs.
type App struct {
	app *firebase.App
}

// NewApp initializes Firebase from a service account file. An empty
// projectID is read from the credentials.
func NewApp(ctx context.Context, credentialsFile, projectID string) (*App, error) {
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, cfg, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	return &App{app: app}, nil
}

// Firestore returns a Firestore client. The caller closes it.
func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	client, err := a.app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firestore client: %w", err)
	}
	return client, nil
}

// Verifier returns an ID token verifier backed by Firebase Auth.
func (a *App) Verifier(ctx context.Context) (*TokenVerifier, error) {
	client, err := a.app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth client: %w", err)
	}
	return &TokenVerifier{client: client}, nil
}

// Messenger returns an FCM messenger. remover is called for tokens FCM
// reports as unregistered; may be nil.
func (a *App) Messenger(ctx context.Context, remover TokenRemover) (*Messenger, error) {
	client, err := a.app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging client: %w", err)
	}
	return &Messenger{msgClient: client, remover: remover}, nil
}
