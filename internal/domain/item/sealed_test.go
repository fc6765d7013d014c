package item_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"budgetrelay/internal/domain/item"
	"budgetrelay/internal/testutil"
)

// reverseCipher is a reversible stand-in for the AES cipher.
type reverseCipher struct {
	DecryptErr error
}

func (c *reverseCipher) Encrypt(s string) (string, error) {
	return "sealed:" + reverse(s), nil
}

func (c *reverseCipher) Decrypt(s string) (string, error) {
	if c.DecryptErr != nil {
		return "", c.DecryptErr
	}
	return reverse(strings.TrimPrefix(s, "sealed:")), nil
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func TestNewSealedRepository_NilCipher(t *testing.T) {
	store := testutil.NewItemStore()
	if got := item.NewSealedRepository(store, nil); got != item.Repository(store) {
		t.Error("nil cipher should return the underlying repository")
	}
}

func TestSealedRepository_RoundTrip(t *testing.T) {
	store := testutil.NewItemStore()
	repo := item.NewSealedRepository(store, &reverseCipher{})
	ctx := context.Background()

	if err := repo.Save(ctx, item.SaveParams{UserID: "u1", AccessToken: "access-xyz", ItemID: "item-1"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	raw, _ := store.GetByUserID(ctx, "u1")
	if raw.AccessToken == "access-xyz" {
		t.Error("stored access token is plaintext")
	}

	rec, err := repo.GetByUserID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByUserID() failed: %v", err)
	}
	if rec.AccessToken != "access-xyz" {
		t.Errorf("AccessToken = %q, want access-xyz", rec.AccessToken)
	}

	byItem, err := repo.FindByItemID(ctx, "item-1")
	if err != nil {
		t.Fatalf("FindByItemID() failed: %v", err)
	}
	if byItem.AccessToken != "access-xyz" {
		t.Errorf("AccessToken = %q, want access-xyz", byItem.AccessToken)
	}
}

func TestSealedRepository_DecryptFailure(t *testing.T) {
	store := testutil.NewItemStore()
	store.Put(item.AccessTokenRecord{UserID: "u1", AccessToken: "garbage", ItemID: "item-1"})
	repo := item.NewSealedRepository(store, &reverseCipher{DecryptErr: errors.New("bad tag")})

	_, err := repo.GetByUserID(context.Background(), "u1")
	if !errors.Is(err, item.ErrVault) {
		t.Errorf("error = %v, want ErrVault", err)
	}
}

func TestSealedRepository_PlaintextRowsFromBeforeEncryption(t *testing.T) {
	store := testutil.NewItemStore()
	store.Put(item.AccessTokenRecord{UserID: "u1", AccessToken: "access-sandbox-legacy", ItemID: "item-1"})
	repo := item.NewSealedRepository(store, &reverseCipher{DecryptErr: errors.New("illegal base64 data")})
	ctx := context.Background()

	rec, err := repo.GetByUserID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByUserID() failed: %v", err)
	}
	if rec.AccessToken != "access-sandbox-legacy" {
		t.Errorf("AccessToken = %q, want the stored plaintext", rec.AccessToken)
	}
	if _, err := repo.FindByItemID(ctx, "item-1"); err != nil {
		t.Errorf("FindByItemID() failed: %v", err)
	}

	// The next save seals it.
	if err := repo.Save(ctx, item.SaveParams{UserID: "u1", AccessToken: "access-sandbox-new", ItemID: "item-2"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	raw, _ := store.GetByUserID(ctx, "u1")
	if strings.HasPrefix(raw.AccessToken, "access-") {
		t.Errorf("stored token %q is still plaintext", raw.AccessToken)
	}
}

func TestSealedRepository_MissingUser(t *testing.T) {
	repo := item.NewSealedRepository(testutil.NewItemStore(), &reverseCipher{})
	_, err := repo.GetByUserID(context.Background(), "u2")
	if !errors.Is(err, item.ErrNoAccessToken) {
		t.Errorf("error = %v, want ErrNoAccessToken", err)
	}
}

func TestSaveParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  item.SaveParams
		wantErr bool
	}{
		{name: "valid", params: item.SaveParams{UserID: "u1", AccessToken: "a", ItemID: "i"}},
		{name: "missing user", params: item.SaveParams{AccessToken: "a", ItemID: "i"}, wantErr: true},
		{name: "missing token", params: item.SaveParams{UserID: "u1", ItemID: "i"}, wantErr: true},
		{name: "missing item", params: item.SaveParams{UserID: "u1", AccessToken: "a"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, item.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}
