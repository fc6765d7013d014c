package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"
)

// TokenVerifier checks Firebase ID tokens presented by the mobile client.
type TokenVerifier struct {
	client *auth.Client
}

// VerifyIDToken returns the UID of a valid, unexpired ID token.
func (v *TokenVerifier) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", err
	}
	return token.UID, nil
}
