// Command gen-token mints HS256 tokens accepted by the page service when it
// runs with AUTH0_TEST_MODE.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"
)

type tokenOptions struct {
	secret   []byte
	audience string
	issuer   string
	ttl      time.Duration
}

func main() {
	var (
		count    = flag.Int("count", 1, "number of tokens to generate")
		prefix   = flag.String("prefix", "local-user", "prefix for generated user IDs when count > 1")
		start    = flag.Int("start", 1, "starting index for generated user IDs when count > 1")
		output   = flag.String("output", "", "file to write generated tokens as a JSON array")
		audience = flag.String("aud", os.Getenv("AUTH0_AUDIENCE"), "audience claim")
		issuer   = flag.String("iss", "", "issuer claim")
		ttl      = flag.Duration("ttl", time.Hour, "token lifetime")
	)
	flag.Parse()

	if *count < 1 {
		log.Fatal("count must be at least 1")
	}
	if *start < 1 {
		log.Fatal("start index must be at least 1")
	}
	args := flag.Args()
	if len(args) > 0 && *count > 1 {
		log.Fatal("explicit user ID cannot be provided when generating multiple tokens")
	}

	opts := tokenOptions{
		secret:   []byte(os.Getenv("AUTH_TEST_SECRET")),
		audience: *audience,
		issuer:   *issuer,
		ttl:      *ttl,
	}
	tokens, err := generateTokens(opts, *count, *prefix, *start, args)
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}

	if *output != "" {
		if err := writeTokens(*output, tokens); err != nil {
			log.Fatalf("write tokens: %v", err)
		}
	}
	fmt.Print(tokens[0])
}

func signToken(opts tokenOptions, userID string) (string, error) {
	if len(opts.secret) == 0 {
		return "", errors.New("AUTH_TEST_SECRET must be set")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(opts.ttl).Unix(),
	}
	if opts.audience != "" {
		claims["aud"] = opts.audience
	}
	if opts.issuer != "" {
		claims["iss"] = opts.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(opts.secret)
}

func generateTokens(opts tokenOptions, count int, prefix string, start int, args []string) ([]string, error) {
	tokens := make([]string, count)
	for i := 0; i < count; i++ {
		var userID string
		switch {
		case len(args) > 0:
			userID = args[0]
		case count == 1:
			userID = prefix
		default:
			userID = fmt.Sprintf("%s-%d", prefix, start+i)
		}
		tok, err := signToken(opts, userID)
		if err != nil {
			return nil, err
		}
		tokens[i] = tok
	}
	return tokens, nil
}

func writeTokens(path string, tokens []string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := sonic.Marshal(tokens)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
