package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yu23ki14/Footprint-Jibungoto/api"
)

func TestGeneratedTokensAreAccepted(t *testing.T) {
	opts := tokenOptions{secret: []byte("local"), audience: "api://footprint", ttl: time.Hour}
	tokens, err := generateTokens(opts, 3, "perf", 7, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	auth := api.NewSharedSecretAuth(opts.secret, opts.audience, "")
	for i, want := range []string{"perf-7", "perf-8", "perf-9"} {
		id, err := auth.Identify("Bearer " + tokens[i])
		if err != nil {
			t.Fatalf("token %d rejected: %v", i, err)
		}
		if id.UserID != want {
			t.Fatalf("token %d: expected %s, got %s", i, want, id.UserID)
		}
	}
}

func TestGenerateTokensNeedsSecret(t *testing.T) {
	if _, err := generateTokens(tokenOptions{ttl: time.Hour}, 1, "u", 1, nil); err == nil {
		t.Fatal("expected error without secret")
	}
}

func TestWriteTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	if err := writeTokens(path, []string{"a", "b"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got []string
	if err := sonic.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0] != "a" {
		t.Fatalf("unexpected tokens %v", got)
	}
}
