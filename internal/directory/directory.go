// Package directory is the actor/identity collaborator: it resolves acting
// principals and computes the notify-set of users scoped to a ticket tier.
package directory

import (
	"context"

	"github.com/plantops/escalation-service/internal/domain"
	"github.com/plantops/escalation-service/internal/repository"
)

// Directory looks up actors and tier membership.
type Directory interface {
	ActorByID(ctx context.Context, id string) (*domain.Actor, error)
	// NotifySet returns the ids of all actors currently scoped to tickets at
	// the given level for the given tenant: plant actors of the plant,
	// company actors of the company, or all superadmins.
	NotifySet(ctx context.Context, level domain.TicketLevel, plantID string, companyID *string) ([]string, error)
}

type pgDirectory struct {
	q repository.Querier
}

// NewDirectory builds a database-backed directory.
func NewDirectory(q repository.Querier) Directory {
	return &pgDirectory{q: q}
}

func (d *pgDirectory) ActorByID(ctx context.Context, id string) (*domain.Actor, error) {
	const query = `SELECT id, name, tier, plant_id, company_id, roles FROM actors WHERE id=$1`
	var actor domain.Actor
	var roles []string
	if err := d.q.QueryRow(ctx, query, id).Scan(
		&actor.ID,
		&actor.Name,
		&actor.Tier,
		&actor.PlantID,
		&actor.CompanyID,
		&roles,
	); err != nil {
		return nil, err
	}
	actor.Roles = make([]domain.Role, 0, len(roles))
	for _, role := range roles {
		actor.Roles = append(actor.Roles, domain.Role(role))
	}
	return &actor, nil
}

func (d *pgDirectory) NotifySet(ctx context.Context, level domain.TicketLevel, plantID string, companyID *string) ([]string, error) {
	var (
		query string
		args  []any
	)
	switch level {
	case domain.LevelPlant:
		query = `SELECT id FROM actors WHERE tier='plant' AND plant_id=$1`
		args = []any{plantID}
	case domain.LevelCompany:
		query = `SELECT id FROM actors WHERE tier='company' AND company_id=$1`
		args = []any{companyID}
	default:
		query = `SELECT id FROM actors WHERE tier='superadmin'`
	}

	rows, err := d.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
