package repository

import (
	"context"
	"database/sql"
	"errors"

	"chucheritas/internal/domain"

	"github.com/sirupsen/logrus"
)

type postgresPrincipalRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresPrincipalRepository(db *sql.DB, logger *logrus.Logger) domain.PrincipalRepository {
	return &postgresPrincipalRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresPrincipalRepository) FindEmployeeByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	query := `
        SELECT id, name, email, role, status, password_hash
        FROM employees
        WHERE email = $1
    `
	c := &domain.Credentials{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&c.ID, &c.Name, &c.Email, &c.Role, &c.Status, &c.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.log.Errorf("Repository: failed to look up employee by email: %v", err)
		return nil, classify("find employee", err)
	}
	return c, nil
}

func (r *postgresPrincipalRepository) FindCustomerByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	query := `
        SELECT id, name, email, password_hash
        FROM customers
        WHERE email = $1
    `
	c := &domain.Credentials{Status: domain.EmployeeActive}
	c.Role = domain.RoleCustomer
	err := r.db.QueryRowContext(ctx, query, email).Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.log.Errorf("Repository: failed to look up customer by email: %v", err)
		return nil, classify("find customer", err)
	}
	return c, nil
}

func (r *postgresPrincipalRepository) CreateCustomer(ctx context.Context, p domain.NewPrincipal) (*domain.Principal, error) {
	query := `
        INSERT INTO customers (name, email, phone, password_hash)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	created := &domain.Principal{Name: p.Name, Email: p.Email, Role: domain.RoleCustomer}
	if err := r.db.QueryRowContext(ctx, query, p.Name, p.Email, p.Phone, p.PasswordHash).Scan(&created.ID); err != nil {
		r.log.Errorf("Repository: failed to insert customer %s: %v", p.Email, err)
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, classify("create customer", err)
	}
	r.log.Infof("Repository: customer registered with ID %d", created.ID)
	return created, nil
}

func (r *postgresPrincipalRepository) CreateEmployee(ctx context.Context, p domain.NewPrincipal) (*domain.Principal, error) {
	query := `
        INSERT INTO employees (name, email, phone, password_hash, role, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	created := &domain.Principal{Name: p.Name, Email: p.Email, Role: p.Role}
	err := r.db.QueryRowContext(ctx, query, p.Name, p.Email, p.Phone, p.PasswordHash, p.Role, domain.EmployeeActive).Scan(&created.ID)
	if err != nil {
		r.log.Errorf("Repository: failed to insert employee %s: %v", p.Email, err)
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, classify("create employee", err)
	}
	r.log.Infof("Repository: employee registered with ID %d as %s", created.ID, created.Role)
	return created, nil
}
