package item

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Plaid access tokens start with this prefix. Sealed values are standard
// base64 and can never contain '-'.
const plaintextTokenPrefix = "access-"

// Cipher seals access tokens before they reach the store.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SealedRepository encrypts AccessToken on write and decrypts it on read.
type SealedRepository struct {
	Repository
	cipher Cipher
}

// NewSealedRepository wraps repo; a nil cipher returns repo unchanged.
func NewSealedRepository(repo Repository, cipher Cipher) Repository {
	if cipher == nil {
		return repo
	}
	return &SealedRepository{Repository: repo, cipher: cipher}
}

func (r *SealedRepository) Save(ctx context.Context, params SaveParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	sealed, err := r.cipher.Encrypt(params.AccessToken)
	if err != nil {
		return fmt.Errorf("%w: failed to encrypt access token: %w", ErrVault, err)
	}
	params.AccessToken = sealed
	return r.Repository.Save(ctx, params)
}

func (r *SealedRepository) GetByUserID(ctx context.Context, userID string) (*AccessTokenRecord, error) {
	rec, err := r.Repository.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.open(rec)
}

func (r *SealedRepository) FindByItemID(ctx context.Context, itemID string) (*AccessTokenRecord, error) {
	rec, err := r.Repository.FindByItemID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return r.open(rec)
}

// open decrypts rec's token. Rows written before ENCRYPTION_KEY was set
// still hold the raw Plaid token; those are returned as-is and get sealed
// by the user's next Save.
func (r *SealedRepository) open(rec *AccessTokenRecord) (*AccessTokenRecord, error) {
	plain, err := r.cipher.Decrypt(rec.AccessToken)
	if err != nil && strings.HasPrefix(rec.AccessToken, plaintextTokenPrefix) {
		log.Printf("Warning: access token for user %s is stored unencrypted; it will be sealed on relink", rec.UserID)
		plain, err = rec.AccessToken, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decrypt access token for user %s: %w", ErrVault, rec.UserID, err)
	}
	out := *rec
	out.AccessToken = plain
	return &out, nil
}
