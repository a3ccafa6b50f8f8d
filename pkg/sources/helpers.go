package sources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samvad-hq/whatsnew-harvester/internal/changelog"
	"github.com/samvad-hq/whatsnew-harvester/internal/domain"
)

const (
	headerAccept     = "Accept"
	headerAuth       = "Authorization"
	headerAPIVersion = "X-GitHub-Api-Version"

	githubAccept     = "application/vnd.github+json"
	githubAPIVersion = "2022-11-28"
)

// Headers builds the GitHub API request headers (skips the credential when empty).
func Headers(token string) map[string]string {
	headers := map[string]string{
		headerAccept:     githubAccept,
		headerAPIVersion: githubAPIVersion,
	}
	if token = strings.TrimSpace(token); token != "" {
		headers[headerAuth] = "token " + token
	}
	return headers
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// decodePage parses a page payload, which must be a JSON array.
func decodePage(body []byte) ([]domain.RawRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array, got %s", changelog.ErrMalformedPage, responseSnippet(trimmed))
	}

	var records []domain.RawRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", changelog.ErrMalformedPage, err)
	}
	return records, nil
}
