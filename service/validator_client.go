package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fairway/models"

	log "github.com/sirupsen/logrus"
)

// ValidatorClient calls the roster validation service over HTTP. The
// service owns the golfer group membership and roster composition
// rules; matchmaking only consumes its verdict.
type ValidatorClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewValidatorClient creates a lineup validator backed by the roster
// validation service
func NewValidatorClient(baseURL, token string) *ValidatorClient {
	return &ValidatorClient{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type validateRequest struct {
	TournamentID    int64   `json:"tournament_id"`
	GolferIDs       []int64 `json:"golfer_ids"`
	CaptainGolferID int64   `json:"captain_golfer_id"`
}

type validateResponse struct {
	Valid   bool     `json:"valid"`
	Reasons []string `json:"reasons"`
}

// Validate submits a lineup for the tournament and returns the
// service's verdict. Transport failures are errors; a rejected lineup
// is not.
func (c *ValidatorClient) Validate(ctx context.Context, tournamentID int64, lineup models.Lineup) (*LineupValidation, error) {
	url := fmt.Sprintf("%s/v1/lineups/validate", c.baseURL)

	jsonData, err := json.Marshal(validateRequest{
		TournamentID:    tournamentID,
		GolferIDs:       lineup.GolferIDs,
		CaptainGolferID: lineup.CaptainGolferID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal validation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to build validation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("validator request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read validator response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.WithFields(log.Fields{
			"status":       resp.StatusCode,
			"tournamentID": tournamentID,
		}).Warn("Validator service returned non-OK status")
		return nil, fmt.Errorf("validator returned status %d", resp.StatusCode)
	}

	var out validateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode validator response: %w", err)
	}

	return &LineupValidation{Valid: out.Valid, Reasons: out.Reasons}, nil
}
