package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// ErrNoToken means no cached OAuth token exists yet; run the auth command.
var ErrNoToken = errors.New("no oauth token; run `ytt auth` first")

// OAuthConfig holds the paths of the OAuth client secret and cached token.
type OAuthConfig struct {
	ClientSecret string
	Token        string
	// Listen is the address of the local callback server.
	Listen string
}

func (o OAuthConfig) load() (*oauth2.Config, error) {
	b, err := os.ReadFile(o.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}
	config, err := google.ConfigFromJSON(b, youtube.YoutubeReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file: %w", err)
	}
	return config, nil
}

// OAuthCredential returns a pool credential backed by the cached OAuth
// token. It never starts the browser flow; a refreshed token is saved back.
func OAuthCredential(ctx context.Context, o OAuthConfig) (Credential, error) {
	config, err := o.load()
	if err != nil {
		return Credential{}, err
	}
	tok, err := tokenFromFile(o.Token)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Credential{}, ErrNoToken
		}
		return Credential{}, fmt.Errorf("unable to read oauth token: %w", err)
	}

	src := config.TokenSource(ctx, tok)
	if !tok.Valid() {
		fresh, err := src.Token()
		if err != nil {
			return Credential{}, fmt.Errorf("token refresh failed, run `ytt auth` again: %w", err)
		}
		if fresh.AccessToken != tok.AccessToken {
			if err := saveToken(o.Token, fresh); err != nil {
				return Credential{}, err
			}
		}
		src = oauth2.ReuseTokenSource(fresh, src)
	}
	return Credential{Name: "oauth", Option: option.WithTokenSource(src)}, nil
}

// Authenticate runs the browser OAuth flow and saves the token. Progress
// messages go to out.
func Authenticate(ctx context.Context, o OAuthConfig, out io.Writer) error {
	config, err := o.load()
	if err != nil {
		return err
	}
	tok, err := tokenFromWeb(ctx, config, o.Listen, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Saving credential file to: %s\n", o.Token)
	return saveToken(o.Token, tok)
}

func tokenFromWeb(ctx context.Context, config *oauth2.Config, listen string, out io.Writer) (*oauth2.Token, error) {
	if listen == "" {
		listen = "localhost:8080"
	}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, fmt.Errorf("unable to start callback server: %w", err)
	}

	codeChan := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code != "" {
			fmt.Fprintf(w, "Authorization successful! You can close this tab.")
		} else {
			fmt.Fprintf(w, "Authorization failed: no code received")
		}
		select {
		case codeChan <- code:
		default:
		}
	})
	server := &http.Server{Handler: mux}
	go server.Serve(ln)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	config.RedirectURL = "http://" + ln.Addr().String()
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Open this URL in your browser to authorize ytt:\n%v\n", authURL)

	var authCode string
	select {
	case authCode = <-codeChan:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if authCode == "" {
		return nil, fmt.Errorf("authorization failed")
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("unable to create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
