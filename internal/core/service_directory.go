package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ListTeams returns all teams with their location name, ordered by name.
func (s *Service) ListTeams(ctx context.Context) ([]Team, error) {
	rows, err := s.db.Query(ctx, `
SELECT t.id::text AS id, t.name, t.location_id::text AS location_id, l.name AS location_name
FROM teams t
LEFT JOIN locations l ON t.location_id = l.id
ORDER BY t.name`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	teams, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[Team])
	if err != nil {
		return nil, fmt.Errorf("scan teams: %w", err)
	}
	return teams, nil
}

// CreateTeam stores a new team.
func (s *Service) CreateTeam(ctx context.Context, in TeamInput) (*Team, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
INSERT INTO teams (name, location_id) VALUES ($1, $2)
RETURNING id::text AS id, name, location_id::text AS location_id`,
		in.Name, nullableID(in.LocationID))
	if err != nil {
		return nil, fmt.Errorf("insert team: %w", err)
	}
	team, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[Team])
	if err != nil {
		return nil, fmt.Errorf("insert team: %w", err)
	}

	logAudit(ctx, ActionTeamCreate, "team_id", team.ID)
	return team, nil
}

// DeleteTeam removes a team.
func (s *Service) DeleteTeam(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete team %s: %w", id, err)
	}
	logAudit(ctx, ActionTeamDelete, "team_id", id)
	return nil
}

// ListLocations returns all locations ordered by name.
func (s *Service) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := s.db.Query(ctx, `SELECT id::text AS id, name FROM locations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	locations, err := pgx.CollectRows(rows, pgx.RowToStructByName[Location])
	if err != nil {
		return nil, fmt.Errorf("scan locations: %w", err)
	}
	return locations, nil
}

// CreateLocation stores a new location.
func (s *Service) CreateLocation(ctx context.Context, in LocationInput) (*Location, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	var loc Location
	err := s.db.QueryRow(ctx,
		`INSERT INTO locations (name) VALUES ($1) RETURNING id::text, name`, in.Name,
	).Scan(&loc.ID, &loc.Name)
	if err != nil {
		return nil, fmt.Errorf("insert location: %w", err)
	}

	logAudit(ctx, ActionLocationCreate, "location_id", loc.ID)
	return &loc, nil
}

// DeleteLocation removes a location.
func (s *Service) DeleteLocation(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete location %s: %w", id, err)
	}
	logAudit(ctx, ActionLocationDelete, "location_id", id)
	return nil
}
