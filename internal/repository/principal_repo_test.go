package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"chucheritas/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindEmployeeByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresPrincipalRepository(db, newTestLogger())

	mock.ExpectQuery(regexp.QuoteMeta("FROM employees")).
		WithArgs("ana@chucheritas.mx").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "status", "password_hash"}).
			AddRow(7, "Ana", "ana@chucheritas.mx", "courier", "inactive", "$2a$hash"))

	c, err := repo.FindEmployeeByEmail(context.Background(), "ana@chucheritas.mx")
	require.NoError(t, err)
	assert.Equal(t, 7, c.ID)
	assert.Equal(t, domain.RoleCourier, c.Role)
	assert.Equal(t, domain.EmployeeInactive, c.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCustomerByEmailNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresPrincipalRepository(db, newTestLogger())

	mock.ExpectQuery(regexp.QuoteMeta("FROM customers")).
		WithArgs("nadie@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash"}))

	_, err := repo.FindCustomerByEmail(context.Background(), "nadie@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCustomerByEmailStoreDown(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresPrincipalRepository(db, newTestLogger())

	mock.ExpectQuery(regexp.QuoteMeta("FROM customers")).WillReturnError(errors.New("connection reset"))

	_, err := repo.FindCustomerByEmail(context.Background(), "x@example.com")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestCreateCustomerDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresPrincipalRepository(db, newTestLogger())

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO customers")).
		WithArgs("Luis", "luis@example.com", "", "hash").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "customers_email_key"})

	_, err := repo.CreateCustomer(context.Background(), domain.NewPrincipal{
		Name: "Luis", Email: "luis@example.com", PasswordHash: "hash",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEmployee(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresPrincipalRepository(db, newTestLogger())

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO employees")).
		WithArgs("Rosa", "rosa@chucheritas.mx", "555", "hash", "administrator", "active").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

	p, err := repo.CreateEmployee(context.Background(), domain.NewPrincipal{
		Name: "Rosa", Email: "rosa@chucheritas.mx", Phone: "555", PasswordHash: "hash", Role: domain.RoleAdministrator,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, p.ID)
	assert.Equal(t, domain.RoleAdministrator, p.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRoundTrip(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresSessionRepository(db, newTestLogger())
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	s := &domain.Session{
		Token:     "7f1c3d0a-1111-4222-8333-444455556666",
		Principal: domain.Principal{ID: 5, Name: "Luis", Email: "luis@example.com", Role: domain.RoleCustomer},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WithArgs(s.Token, 5, "Luis", "luis@example.com", "customer", now, now.Add(time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(context.Background(), s))

	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions")).
		WithArgs(s.Token).
		WillReturnRows(sqlmock.NewRows([]string{"token", "principal_id", "name", "email", "role", "created_at", "expires_at"}).
			AddRow(s.Token, 5, "Luis", "luis@example.com", "customer", now, now.Add(time.Hour)))
	got, err := repo.Get(context.Background(), s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.Principal, got.Principal)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions")).
		WithArgs(s.Token).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), s.Token))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionGetMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresSessionRepository(db, newTestLogger())

	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions")).
		WillReturnRows(sqlmock.NewRows([]string{"token", "principal_id", "name", "email", "role", "created_at", "expires_at"}))

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
