package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Role is a CRM user role.
type Role string

const (
	RoleSuperAdmin      Role = "super_admin"
	RoleAdmin           Role = "admin"
	RoleTeamLeader      Role = "team_leader"
	RoleRelationshipMgr Role = "relationship_mgr"
)

// LeadScope identifies who is asking for leads. It narrows listings and
// decides assignment on creation; it is not an authorization check.
type LeadScope struct {
	Role   Role
	UserID string
}

// Lead is a stored lead as returned by listing and mutation endpoints.
type Lead struct {
	ID                string    `json:"id" db:"id"`
	FullName          string    `json:"full_name" db:"full_name"`
	Email             string    `json:"email" db:"email"`
	Phone             string    `json:"phone" db:"phone"`
	AltNumber         string    `json:"alt_number" db:"alt_number"`
	Notes             string    `json:"notes" db:"notes"`
	DeematAccountName string    `json:"deemat_account_name" db:"deemat_account_name"`
	Profession        string    `json:"profession" db:"profession"`
	StateName         string    `json:"state_name" db:"state_name"`
	Capital           string    `json:"capital" db:"capital"`
	Segment           string    `json:"segment" db:"segment"`
	Gender            string    `json:"gender" db:"gender"`
	DOB               *string   `json:"dob" db:"dob"`
	Age               *int64    `json:"age" db:"age"`
	PanCardNumber     string    `json:"pan_card_number" db:"pan_card_number"`
	AadharCardNumber  string    `json:"aadhar_card_number" db:"aadhar_card_number"`
	PaymentHistory    string    `json:"payment_history" db:"payment_history"`
	Status            string    `json:"status" db:"status"`
	TeamID            *string   `json:"team_id" db:"team_id"`
	AssignedTo        *string   `json:"assigned_to" db:"assigned_to"`
	Date              time.Time `json:"date" db:"date"`

	// Populated by listings only.
	AssignedUserName *string `json:"assigned_user_name,omitempty" db:"assigned_user_name"`
	AssignedUserRole *string `json:"assigned_user_role,omitempty" db:"assigned_user_role"`
}

// LeadInput is the body accepted when creating a single lead.
type LeadInput struct {
	FullName          string `json:"fullName" validate:"required"`
	Email             string `json:"email" validate:"required"`
	Phone             string `json:"phone" validate:"required"`
	AltNumber         string `json:"altNumber"`
	Notes             string `json:"notes"`
	DeematAccountName string `json:"deematAccountName"`
	Profession        string `json:"profession"`
	StateName         string `json:"stateName"`
	Capital           string `json:"capital"`
	Segment           string `json:"segment"`
	TeamID            string `json:"team_id"`
}

// LeadUpdate is the full replacement body for an existing lead.
type LeadUpdate struct {
	FullName          string      `json:"fullName" validate:"required"`
	Email             string      `json:"email" validate:"required"`
	Phone             string      `json:"phone" validate:"required"`
	AltNumber         string      `json:"altNumber"`
	Notes             string      `json:"notes"`
	DeematAccountName string      `json:"deematAccountName"`
	Profession        string      `json:"profession"`
	StateName         string      `json:"stateName"`
	Capital           string      `json:"capital"`
	Segment           string      `json:"segment"`
	Gender            string      `json:"gender"`
	DOB               string      `json:"dob"`
	Age               OptionalInt `json:"age"`
	PanCardNumber     string      `json:"panCardNumber"`
	AadharCardNumber  string      `json:"aadharCardNumber"`
	PaymentHistory    string      `json:"paymentHistory"`
	Status            string      `json:"status" validate:"required"`
	TeamID            string      `json:"team_id"`
	AssignedTo        string      `json:"assigned_to"`
}

// OptionalInt decodes a JSON number, a numeric string, "" or null.
// Blank input leaves it unset.
type OptionalInt struct {
	Value int64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	*o = OptionalInt{}
	if string(data) == "null" {
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case float64:
		o.Value, o.Valid = int64(v), true
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", v)
		}
		o.Value, o.Valid = n, true
	default:
		return fmt.Errorf("invalid number %s", data)
	}
	return nil
}

// ptr returns a pointer to the value, or nil when unset.
func (o OptionalInt) ptr() *int64 {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

// User is a CRM user. The password hash never leaves the service.
type User struct {
	ID           string  `json:"id" db:"id"`
	DisplayName  string  `json:"display_name" db:"display_name"`
	Email        string  `json:"email" db:"email"`
	PhoneNumber  string  `json:"phone_number" db:"phone_number"`
	Role         Role    `json:"role" db:"role"`
	Status       string  `json:"status" db:"status"`
	LocationID   *string `json:"location_id" db:"location_id"`
	TeamID       *string `json:"team_id" db:"team_id"`
	LocationName *string `json:"location_name,omitempty" db:"location_name"`
	TeamName     *string `json:"team_name,omitempty" db:"team_name"`
}

// UserInput is the body for creating or replacing a user.
// Password is required on create and optional on update.
type UserInput struct {
	DisplayName string `json:"displayName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password" validate:"omitempty,max=72"`
	Role        Role   `json:"role" validate:"required,oneof=super_admin admin team_leader relationship_mgr"`
	Status      string `json:"status" validate:"omitempty,oneof=Active Inactive"`
	LocationID  string `json:"location_id"`
	TeamID      string `json:"team_id"`
}

// Team groups relationship managers under a location.
type Team struct {
	ID           string  `json:"id" db:"id"`
	Name         string  `json:"name" db:"name"`
	LocationID   *string `json:"location_id" db:"location_id"`
	LocationName *string `json:"location_name,omitempty" db:"location_name"`
}

// TeamInput is the body for creating a team.
type TeamInput struct {
	Name       string `json:"name" validate:"required"`
	LocationID string `json:"location_id"`
}

// Location is an office or region.
type Location struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// LocationInput is the body for creating a location.
type LocationInput struct {
	Name string `json:"name" validate:"required"`
}
