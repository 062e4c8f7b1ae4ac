package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sregle/vtubot/internal/models"
)

// scanUser scans a user from a single sql.Row, returning nil, nil on no rows.
func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var walletJSON string
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.Phone,
		&u.HashedPassword, &u.HashedPIN, &walletJSON, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user failed: %w", err)
	}
	if walletJSON != "" {
		if err := json.Unmarshal([]byte(walletJSON), &u.Wallet); err != nil {
			return nil, fmt.Errorf("decode wallet for user %s failed: %w", u.ID, err)
		}
	}
	u.Wallet.Normalize()
	return &u, nil
}

// collectManualPlans drains a manual_plans result set into Plan records.
func collectManualPlans(rows *sql.Rows) ([]models.Plan, error) {
	var plans []models.Plan
	for rows.Next() {
		var p models.Plan
		var provider string
		if err := rows.Scan(&p.ID, &p.Kind, &provider, &p.Name, &p.Amount); err != nil {
			return nil, fmt.Errorf("scan manual plan failed: %w", err)
		}
		if p.Kind == models.PlanKindData {
			p.Network = provider
		} else {
			p.Provider = provider
		}
		p.Manual = true
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate manual plans failed: %w", err)
	}
	return plans, nil
}

// manualDiscriminator picks the network/provider column value for a plan.
func manualDiscriminator(plan models.Plan) string {
	if plan.Kind == models.PlanKindData {
		return plan.Network
	}
	return plan.Provider
}
