package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// NewAuthenticatedService builds a YouTube client from an installed-app OAuth
// client secret. The token is cached in tokenFile between runs; expired
// tokens are refreshed transparently by the oauth2 client. When no usable
// token exists the authorization URL is printed and the verification code is
// read from stdin.
func NewAuthenticatedService(ctx context.Context, secretFile, tokenFile string) (*youtube.Service, error) {
	secret, err := os.ReadFile(secretFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret: %w", err)
	}
	config, err := google.ConfigFromJSON(secret, youtube.YoutubeScope, youtube.YoutubeReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret: %w", err)
	}

	token, err := tokenFromFile(tokenFile)
	if err != nil {
		token, err = tokenFromPrompt(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("unable to authorize: %w", err)
		}
		if err := saveToken(tokenFile, token); err != nil {
			return nil, fmt.Errorf("unable to cache token: %w", err)
		}
	}

	service, err := youtube.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("unable to create youtube service: %w", err)
	}

	return service, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}

	return token, nil
}

func tokenFromPrompt(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	url := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following link in your browser, then paste the authorization code:\n%v\n", url)

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return nil, err
	}

	return config.Exchange(ctx, code)
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}
