package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// leadColumns lists the lead columns in scan order. Text columns are
// coalesced so NULLs read as "".
func leadColumns(prefix string) string {
	text := []string{
		"full_name", "email", "phone", "alt_number", "notes", "deemat_account_name",
		"profession", "state_name", "capital", "segment", "gender",
		"pan_card_number", "aadhar_card_number", "payment_history", "status",
	}
	cols := make([]string, 0, len(text)+6)
	cols = append(cols, prefix+"id::text AS id")
	for _, c := range text {
		cols = append(cols, fmt.Sprintf("COALESCE(%s%s, '') AS %s", prefix, c, c))
	}
	cols = append(cols,
		prefix+"dob::text AS dob",
		prefix+"age",
		prefix+"team_id::text AS team_id",
		prefix+"assigned_to::text AS assigned_to",
		prefix+"date",
	)
	return strings.Join(cols, ", ")
}

var (
	leadReturning = leadColumns("")

	listLeadsBase = `SELECT ` + leadColumns("l.") + `,
	u.display_name AS assigned_user_name, u.role::text AS assigned_user_role
FROM leads l
LEFT JOIN users u ON l.assigned_to = u.id`
)

// ListLeads returns leads visible to scope, newest first. A relationship
// manager sees their own leads, an admin sees leads held by relationship
// managers, and every other role sees all leads.
func (s *Service) ListLeads(ctx context.Context, scope LeadScope) ([]Lead, error) {
	var (
		rows pgx.Rows
		err  error
	)
	switch scope.Role {
	case RoleRelationshipMgr:
		rows, err = s.db.Query(ctx, listLeadsBase+` WHERE l.assigned_to = $1 ORDER BY l.date DESC`, scope.UserID)
	case RoleAdmin:
		rows, err = s.db.Query(ctx, listLeadsBase+` WHERE u.role = 'relationship_mgr' ORDER BY l.date DESC`)
	default:
		rows, err = s.db.Query(ctx, listLeadsBase+` ORDER BY l.date DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}

	leads, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[Lead])
	if err != nil {
		return nil, fmt.Errorf("scan leads: %w", err)
	}
	return leads, nil
}

// CreateLead stores a single lead. A relationship manager creating a lead
// becomes its assignee, and the lead inherits their team when none is given.
func (s *Service) CreateLead(ctx context.Context, in LeadInput, scope LeadScope) (*Lead, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	phone := NormalizePhone(in.Phone)
	if phone == "" {
		return nil, &ValidationError{Field: "phone", Message: "must contain digits"}
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE phone = $1)`, phone).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check phone: %w", err)
	}
	if exists {
		return nil, ErrDuplicatePhone
	}

	teamID := nullableID(in.TeamID)
	var assignedTo *string
	if scope.Role == RoleRelationshipMgr {
		assignedTo = nullableID(scope.UserID)
		if teamID == nil && assignedTo != nil {
			team, err := s.userTeam(ctx, *assignedTo)
			if err != nil {
				return nil, err
			}
			teamID = team
		}
	}

	rows, err := s.db.Query(ctx, `
INSERT INTO leads (
	full_name, email, phone, alt_number, notes, deemat_account_name,
	profession, state_name, capital, segment, team_id, assigned_to
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING `+leadReturning,
		in.FullName, in.Email, phone, in.AltNumber, in.Notes, in.DeematAccountName,
		in.Profession, in.StateName, in.Capital, in.Segment, teamID, assignedTo,
	)
	if err != nil {
		return nil, fmt.Errorf("insert lead: %w", err)
	}
	lead, err := collectLead(rows)
	if err != nil {
		return nil, fmt.Errorf("insert lead: %w", err)
	}

	logAudit(ctx, ActionLeadCreate, "lead_id", lead.ID, "creator_role", string(scope.Role))
	return lead, nil
}

// UpdateLead replaces every editable field of a lead.
func (s *Service) UpdateLead(ctx context.Context, id string, in LeadUpdate) (*Lead, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
UPDATE leads SET
	full_name = $1, email = $2, phone = $3, alt_number = $4, notes = $5,
	deemat_account_name = $6, profession = $7, state_name = $8, capital = $9,
	segment = $10, gender = $11, dob = $12, age = $13, pan_card_number = $14,
	aadhar_card_number = $15, payment_history = $16, status = $17,
	team_id = $18, assigned_to = $19
WHERE id = $20
RETURNING `+leadReturning,
		in.FullName, in.Email, NormalizePhone(in.Phone), in.AltNumber, in.Notes,
		in.DeematAccountName, in.Profession, in.StateName, in.Capital,
		in.Segment, in.Gender, nullableID(in.DOB), in.Age.ptr(), in.PanCardNumber,
		in.AadharCardNumber, in.PaymentHistory, in.Status,
		nullableID(in.TeamID), nullableID(in.AssignedTo), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update lead: %w", err)
	}
	lead, err := collectLead(rows)
	if err != nil {
		return nil, fmt.Errorf("update lead %s: %w", id, err)
	}

	logAudit(ctx, ActionLeadUpdate, "lead_id", lead.ID)
	return lead, nil
}

// AssignLead hands a lead to a user. A lead without a team takes the
// assignee's team.
func (s *Service) AssignLead(ctx context.Context, id, assignedTo string) (*Lead, error) {
	if strings.TrimSpace(assignedTo) == "" {
		return nil, &ValidationError{Field: "assigned_to", Message: "must not be empty"}
	}

	team, err := s.userTeam(ctx, assignedTo)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
UPDATE leads SET assigned_to = $1, team_id = COALESCE(team_id, $2)
WHERE id = $3
RETURNING `+leadReturning, assignedTo, team, id)
	if err != nil {
		return nil, fmt.Errorf("assign lead: %w", err)
	}
	lead, err := collectLead(rows)
	if err != nil {
		return nil, fmt.Errorf("assign lead %s: %w", id, err)
	}

	logAudit(ctx, ActionLeadAssign, "lead_id", lead.ID, "assigned_to", assignedTo)
	return lead, nil
}

// DeleteLead removes a lead. Deleting a missing lead is not an error.
func (s *Service) DeleteLead(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete lead %s: %w", id, err)
	}
	logAudit(ctx, ActionLeadDelete, "lead_id", id)
	return nil
}

// userTeam returns the team of a user, or nil for an unknown user or one
// without a team.
func (s *Service) userTeam(ctx context.Context, userID string) (*string, error) {
	var team *string
	err := s.db.QueryRow(ctx, `SELECT team_id::text FROM users WHERE id = $1`, userID).Scan(&team)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup team of user %s: %w", userID, err)
	}
	return team, nil
}

func collectLead(rows pgx.Rows) (*Lead, error) {
	lead, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[Lead])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return lead, err
}
