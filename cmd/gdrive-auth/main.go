// Command gdrive-auth runs the OAuth consent flow once and prints the
// refresh token the Google Drive media host needs (GDRIVE_REFRESH_TOKEN).
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"

	"lipsync/internal/config"
	"lipsync/internal/pkg/logger"
)

const authTimeout = 3 * time.Minute

func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: "text", ServiceName: "gdrive-auth"})

	if cfg.GDrive.ClientID == "" || cfg.GDrive.ClientSecret == "" {
		log.LogFatal("missing credentials", errors.New("GDRIVE_CLIENT_ID and GDRIVE_CLIENT_SECRET are required"))
	}

	token, err := run(context.Background(), cfg.GDrive.ClientID, cfg.GDrive.ClientSecret, log)
	if err != nil {
		log.LogFatal("authorization failed", err)
	}

	fmt.Println("\nGDRIVE_REFRESH_TOKEN=" + token)
}

func run(ctx context.Context, clientID, clientSecret string, log *logger.Logger) (string, error) {
	// Local callback on a free port.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer ln.Close()

	redirectURL := fmt.Sprintf("http://127.0.0.1:%d/callback", ln.Addr().(*net.TCPAddr).Port)

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
		RedirectURL:  redirectURL,
	}

	state, err := randomState()
	if err != nil {
		return "", err
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "invalid state", http.StatusBadRequest)
			errCh <- errors.New("invalid state")
		case q.Get("error") != "":
			http.Error(w, "auth error: "+q.Get("error"), http.StatusBadRequest)
			errCh <- fmt.Errorf("auth error: %s", q.Get("error"))
		case q.Get("code") == "":
			http.Error(w, "missing code", http.StatusBadRequest)
			errCh <- errors.New("missing code")
		default:
			fmt.Fprintln(w, "Done. You can close this window and return to the terminal.")
			codeCh <- q.Get("code")
		}
	})

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		_ = srv.Serve(ln)
	}()
	defer srv.Close()

	// prompt=consent forces Google to hand out a refresh token again.
	authURL := conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	fmt.Fprintln(os.Stderr, "\nOpen this URL in your browser:\n\n"+authURL)
	log.Info("waiting for authorization", "redirect_url", redirectURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return "", err
	case <-time.After(authTimeout):
		return "", errors.New("timed out waiting for authorization")
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}
	if strings.TrimSpace(tok.RefreshToken) == "" {
		return "", errors.New("no refresh_token returned; revoke the app's access at https://myaccount.google.com/permissions and retry")
	}
	return tok.RefreshToken, nil
}

func randomState() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
