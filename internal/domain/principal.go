package domain

import (
	"context"
	"time"
)

type Role string

const (
	RoleCustomer      Role = "customer"
	RoleAdministrator Role = "administrator"
	RoleCourier       Role = "courier"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAdministrator, RoleCourier:
		return true
	default:
		return false
	}
}

// IsEmployee reports whether principals with this role are stored as employees.
func (r Role) IsEmployee() bool {
	return r == RoleAdministrator || r == RoleCourier
}

type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "active"
	EmployeeInactive EmployeeStatus = "inactive"
)

// Principal is an authenticated actor. Role never changes after creation.
type Principal struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Credentials is a stored principal together with its password hash. It never
// leaves the identity layer.
type Credentials struct {
	Principal
	PasswordHash string
	Status       EmployeeStatus
}

type NewPrincipal struct {
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
}

type Session struct {
	Token     string    `json:"-"`
	Principal Principal `json:"principal"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// AuthenticatedContext is the per-request identity passed explicitly to every
// protected operation. A nil Principal is an anonymous caller.
type AuthenticatedContext struct {
	Principal *Principal
}

func Anonymous() AuthenticatedContext {
	return AuthenticatedContext{}
}

func AuthenticatedAs(p Principal) AuthenticatedContext {
	return AuthenticatedContext{Principal: &p}
}

func (a AuthenticatedContext) IsAuthenticated() bool {
	return a.Principal != nil
}

var (
	CustomerOnly      = []Role{RoleCustomer}
	AdministratorOnly = []Role{RoleAdministrator}
	CourierOnly       = []Role{RoleCourier}
	Fulfilment        = []Role{RoleCourier, RoleAdministrator}
)

// Require checks the caller against the allowed roles. It runs on every call.
func Require(actx AuthenticatedContext, allowed ...Role) (*Principal, error) {
	if actx.Principal == nil {
		return nil, ErrUnauthenticated
	}
	for _, r := range allowed {
		if actx.Principal.Role == r {
			return actx.Principal, nil
		}
	}
	return nil, ErrForbidden
}

type PrincipalRepository interface {
	FindEmployeeByEmail(ctx context.Context, email string) (*Credentials, error)
	FindCustomerByEmail(ctx context.Context, email string) (*Credentials, error)
	CreateCustomer(ctx context.Context, p NewPrincipal) (*Principal, error)
	CreateEmployee(ctx context.Context, p NewPrincipal) (*Principal, error)
}

type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}
