package repository

import (
	"fmt"
	"strings"

	"context"

	"github.com/jackc/pgx/v5"

	"github.com/plantops/escalation-service/internal/domain"
)

// Scope identifies the caller for visibility filtering. Tickets outside the
// scope are indistinguishable from tickets that do not exist.
type Scope struct {
	ActorID   string
	Tier      domain.TicketLevel
	PlantID   *string
	CompanyID *string
}

// TicketFilter captures listing parameters.
type TicketFilter struct {
	Status     *domain.TicketStatus
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetInScope(ctx context.Context, id string, scope Scope) (*domain.Ticket, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	ListInScope(ctx context.Context, scope Scope, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	q Querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(q Querier) TicketRepository {
	return &ticketRepository{q: q}
}

const ticketColumns = `id, plant_id, company_id, created_by, created_by_tier, title, description,
               is_general, level, status, priority, tags, created_at, last_activity_at,
               sla_response_deadline, sla_resolution_deadline, first_response_at, resolved_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (plant_id, company_id, created_by, created_by_tier, title, description,
            is_general, level, status, priority, tags, created_at, last_activity_at,
            sla_response_deadline, sla_resolution_deadline)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id`
	return r.q.QueryRow(ctx, query,
		ticket.PlantID,
		ticket.CompanyID,
		ticket.CreatedBy,
		ticket.CreatedByTier,
		ticket.Title,
		ticket.Description,
		ticket.IsGeneral,
		ticket.Level,
		ticket.Status,
		ticket.Priority,
		ticket.Tags,
		ticket.CreatedAt,
		ticket.LastActivityAt,
		ticket.SLAResponseDeadline,
		ticket.SLAResolutionDeadline,
	).Scan(&ticket.ID)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, level=$3, status=$4, priority=$5, tags=$6,
            last_activity_at=$7, sla_response_deadline=$8, sla_resolution_deadline=$9,
            first_response_at=$10, resolved_at=$11, closed_at=$12
        WHERE id=$13`
	cmd, err := r.q.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Level,
		ticket.Status,
		ticket.Priority,
		ticket.Tags,
		ticket.LastActivityAt,
		ticket.SLAResponseDeadline,
		ticket.SLAResolutionDeadline,
		ticket.FirstResponseAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// GetInScope resolves a ticket only when the caller's scope covers it.
func (r *ticketRepository) GetInScope(ctx context.Context, id string, scope Scope) (*domain.Ticket, error) {
	clause, args := scopeClause(scope, 1)
	query := fmt.Sprintf(`SELECT %s FROM tickets t WHERE t.id=$%d AND %s`,
		ticketColumns, len(args)+1, clause)
	args = append(args, id)
	return r.fetchSingle(ctx, query, args...)
}

// GetForUpdate loads a ticket holding its row lock for the transaction. This
// is the per-ticket serialization point: concurrent forward and status-change
// calls on the same ticket queue behind it.
func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets t WHERE t.id=$1 FOR UPDATE`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.q.QueryRow(ctx, query, args...).Scan(
		&ticket.ID,
		&ticket.PlantID,
		&ticket.CompanyID,
		&ticket.CreatedBy,
		&ticket.CreatedByTier,
		&ticket.Title,
		&ticket.Description,
		&ticket.IsGeneral,
		&ticket.Level,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Tags,
		&ticket.CreatedAt,
		&ticket.LastActivityAt,
		&ticket.SLAResponseDeadline,
		&ticket.SLAResolutionDeadline,
		&ticket.FirstResponseAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListInScope(ctx context.Context, scope Scope, filter TicketFilter) ([]domain.Ticket, error) {
	clause, args := scopeClause(scope, 1)
	clauses := []string{clause}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("t.status=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(t.title) LIKE %s OR LOWER(t.description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets t WHERE %s ORDER BY t.last_activity_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// scopeClause encodes tier visibility: superadmin sees everything; a company
// actor sees their tenant's tickets at company level or below; a plant actor
// sees their plant's tickets still at plant level, plus tickets they created
// or participated in after escalation.
func scopeClause(scope Scope, firstArg int) (string, []any) {
	switch scope.Tier {
	case domain.LevelSuperadmin:
		return "TRUE", nil
	case domain.LevelCompany:
		args := []any{scope.CompanyID}
		return fmt.Sprintf("t.company_id=$%d AND t.level IN ('plant','company')", firstArg), args
	default:
		args := []any{scope.PlantID, scope.ActorID}
		clause := fmt.Sprintf(`t.plant_id=$%d AND (t.level='plant' OR t.created_by=$%d
            OR EXISTS (SELECT 1 FROM timeline_events e WHERE e.ticket_id=t.id AND e.actor_id=$%d))`,
			firstArg, firstArg+1, firstArg+1)
		return clause, args
	}
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.PlantID,
			&ticket.CompanyID,
			&ticket.CreatedBy,
			&ticket.CreatedByTier,
			&ticket.Title,
			&ticket.Description,
			&ticket.IsGeneral,
			&ticket.Level,
			&ticket.Status,
			&ticket.Priority,
			&ticket.Tags,
			&ticket.CreatedAt,
			&ticket.LastActivityAt,
			&ticket.SLAResponseDeadline,
			&ticket.SLAResolutionDeadline,
			&ticket.FirstResponseAt,
			&ticket.ResolvedAt,
			&ticket.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
