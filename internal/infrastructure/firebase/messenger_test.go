package firebase

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestChunkTokens(t *testing.T) {
	makeTokens := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("tok-%d", i)
		}
		return out
	}

	tests := []struct {
		name       string
		n          int
		size       int
		wantChunks int
		wantLast   int
	}{
		{name: "empty", n: 0, size: 500, wantChunks: 0},
		{name: "single batch", n: 3, size: 500, wantChunks: 1, wantLast: 3},
		{name: "exact multiple", n: 1000, size: 500, wantChunks: 2, wantLast: 500},
		{name: "remainder", n: 1001, size: 500, wantChunks: 3, wantLast: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := chunkTokens(makeTokens(tt.n), tt.size)
			if len(chunks) != tt.wantChunks {
				t.Fatalf("chunks = %d, want %d", len(chunks), tt.wantChunks)
			}
			if tt.wantChunks > 0 && len(chunks[len(chunks)-1]) != tt.wantLast {
				t.Errorf("last chunk = %d, want %d", len(chunks[len(chunks)-1]), tt.wantLast)
			}
		})
	}
}

func TestMessenger_NoTokens(t *testing.T) {
	m := &Messenger{}
	if err := m.SendDataOnly(context.Background(), nil, map[string]string{"type": "x"}); err != nil {
		t.Errorf("SendDataOnly() with no tokens = %v, want nil", err)
	}
	if err := m.SendMulticast(context.Background(), nil, "t", "b", nil); err != nil {
		t.Errorf("SendMulticast() with no tokens = %v, want nil", err)
	}
}

func TestMessenger_RemoveToken(t *testing.T) {
	var removed []string
	m := &Messenger{remover: func(ctx context.Context, token string) error {
		removed = append(removed, token)
		return errors.New("store down")
	}}

	m.removeToken(context.Background(), "tok-1")
	if len(removed) != 1 || removed[0] != "tok-1" {
		t.Errorf("removed = %v", removed)
	}

	// nil remover is a no-op
	(&Messenger{}).removeToken(context.Background(), "tok-2")
}
