package youtube

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

const clientSecret = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret",` +
	`"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",` +
	`"redirect_uris":["http://localhost"]}}`

func TestOAuthCredentialWithoutToken(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(dir, "oauth.json")
	if err := os.WriteFile(secret, []byte(clientSecret), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := OAuthCredential(context.Background(), OAuthConfig{ClientSecret: secret, Token: filepath.Join(dir, "token.json")})
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("OAuthCredential() error = %v, want ErrNoToken", err)
	}
}

func TestOAuthCredentialWithValidToken(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(dir, "oauth.json")
	tokenPath := filepath.Join(dir, "secrets", "token.json")
	if err := os.WriteFile(secret, []byte(clientSecret), 0600); err != nil {
		t.Fatal(err)
	}
	tok := &oauth2.Token{AccessToken: "abc", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	if err := saveToken(tokenPath, tok); err != nil {
		t.Fatal(err)
	}

	cred, err := OAuthCredential(context.Background(), OAuthConfig{ClientSecret: secret, Token: tokenPath})
	if err != nil {
		t.Fatalf("OAuthCredential() unexpected error: %v", err)
	}
	if cred.Name != "oauth" || cred.Option == nil {
		t.Errorf("OAuthCredential() = %+v, want named oauth credential", cred)
	}
}

func TestTokenRoundTripPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := saveToken(path, &oauth2.Token{AccessToken: "x"}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("token file mode = %v, want 0600", info.Mode().Perm())
	}
	got, err := tokenFromFile(path)
	if err != nil || got.AccessToken != "x" {
		t.Errorf("tokenFromFile() = %+v, %v", got, err)
	}
}
