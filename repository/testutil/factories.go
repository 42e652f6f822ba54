package testutil

import (
	"context"
	"testing"
	"time"

	"fairway/database"
	"fairway/models"

	"github.com/stretchr/testify/require"
)

// InsertTestUser creates a user row keyed by the given platform user id
// and returns it
func InsertTestUser(t *testing.T, db *database.DB, userID int64, username string, balance int64) *models.User {
	var user models.User
	err := db.Pool.QueryRow(context.Background(), `
		INSERT INTO users (id, username, balance)
		VALUES ($1, $2, $3)
		RETURNING id, username, balance, created_at, updated_at
	`, userID, username, balance).Scan(&user.ID, &user.Username, &user.Balance, &user.CreatedAt, &user.UpdatedAt)
	require.NoError(t, err)
	return &user
}

// InsertTestTemplate creates a template row and returns it
func InsertTestTemplate(t *testing.T, db *database.DB, name string, entryFee int64, closeOffsetMinutes int) *models.Template {
	template := &models.Template{
		Name:               name,
		EntryFee:           entryFee,
		RoundsCovered:      "1-4",
		CloseOffsetMinutes: closeOffsetMinutes,
	}
	err := db.Pool.QueryRow(context.Background(), `
		INSERT INTO templates (name, entry_fee, rounds_covered, close_offset_minutes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, template.Name, template.EntryFee, template.RoundsCovered, template.CloseOffsetMinutes).
		Scan(&template.ID, &template.CreatedAt)
	require.NoError(t, err)
	return template
}

// InsertTestTournament creates a tournament row and returns it
func InsertTestTournament(t *testing.T, db *database.DB, name string, startsAt, endsAt time.Time) *models.Tournament {
	groupID := int64(1)
	tournament := &models.Tournament{
		Name:          name,
		GolferGroupID: &groupID,
		StartsAt:      startsAt,
		EndsAt:        endsAt,
	}
	err := db.Pool.QueryRow(context.Background(), `
		INSERT INTO tournaments (name, golfer_group_id, starts_at, ends_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, tournament.Name, tournament.GolferGroupID, tournament.StartsAt, tournament.EndsAt).
		Scan(&tournament.ID, &tournament.CreatedAt)
	require.NoError(t, err)
	return tournament
}

// TestLineup returns a lineup that satisfies the captain constraint
func TestLineup() models.Lineup {
	return models.Lineup{
		GolferIDs:       []int64{101, 102, 103, 104},
		CaptainGolferID: 102,
	}
}
