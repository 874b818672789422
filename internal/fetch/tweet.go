package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// tweetAPIBase is the fxtwitter endpoint that mirrors tweet metadata as
// JSON without authentication.
const tweetAPIBase = "https://api.fxtwitter.com"

var tweetHosts = map[string]bool{
	"twitter.com":        true,
	"www.twitter.com":    true,
	"mobile.twitter.com": true,
	"x.com":              true,
	"www.x.com":          true,
}

// parseTweetURL extracts the username and status ID from a tweet URL.
// Returns ok=false for anything that is not a tweet status link.
func parseTweetURL(rawURL string) (user, id string, ok bool) {
	u, err := url.Parse(rawURL)
	if err != nil || !tweetHosts[u.Host] {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 3 || parts[1] != "status" {
		return "", "", false
	}
	return parts[0], parts[2], true
}

// TweetImage resolves the first photo of a tweet, for use as the
// representative image when the page markdown carries none. Non-tweet URLs
// and tweets without photos return an empty string without error.
func TweetImage(ctx context.Context, tweetURL string) (string, error) {
	user, id, ok := parseTweetURL(tweetURL)
	if !ok {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/%s/status/%s", tweetAPIBase, user, id), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create tweet request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tweet lookup failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tweet lookup status %d", resp.StatusCode)
	}

	var payload struct {
		Tweet struct {
			Media struct {
				Photos []struct {
					URL string `json:"url"`
				} `json:"photos"`
			} `json:"media"`
		} `json:"tweet"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode tweet response: %w", err)
	}
	if len(payload.Tweet.Media.Photos) == 0 {
		return "", nil
	}
	return payload.Tweet.Media.Photos[0].URL, nil
}
