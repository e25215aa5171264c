package usecase

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"chucheritas/internal/domain"
	"chucheritas/internal/security"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type AuthUseCase interface {
	// Authenticate returns a nil principal, without error, for any rejected
	// credential. Errors are reserved for storage failures.
	Authenticate(ctx context.Context, email, password string) (*domain.Principal, error)
	RegisterCustomer(ctx context.Context, req RegisterRequest) (*domain.Principal, error)
	RegisterEmployee(ctx context.Context, actx domain.AuthenticatedContext, req RegisterRequest) (*domain.Principal, error)
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	Logout(ctx context.Context, token string) error
	ResolveSession(ctx context.Context, token string) domain.AuthenticatedContext
}

type RegisterRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Phone    string      `json:"phone"`
	Role     domain.Role `json:"role,omitempty"`
}

type authUseCase struct {
	principals domain.PrincipalRepository
	sessions   domain.SessionRepository
	hasher     security.PasswordHasher
	sessionTTL time.Duration
	now        func() time.Time
	log        *logrus.Logger
}

func NewAuthUseCase(
	principals domain.PrincipalRepository,
	sessions domain.SessionRepository,
	hasher security.PasswordHasher,
	sessionTTL time.Duration,
	logger *logrus.Logger,
) AuthUseCase {
	return &authUseCase{
		principals: principals,
		sessions:   sessions,
		hasher:     hasher,
		sessionTTL: sessionTTL,
		now:        time.Now,
		log:        logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (uc *authUseCase) Authenticate(ctx context.Context, email, password string) (*domain.Principal, error) {
	email = normalizeEmail(email)
	if !isValidEmail(email) || password == "" {
		uc.log.Warnf("Use Case: Auth rejected - malformed credentials for %s", email)
		return nil, nil
	}

	employee, err := uc.principals.FindEmployeeByEmail(ctx, email)
	switch {
	case err == nil:
		// An employee row owns the email; customers are never consulted.
		if employee.Status != domain.EmployeeActive {
			uc.log.Warnf("Use Case: Auth rejected - employee %d is %s", employee.ID, employee.Status)
			return nil, nil
		}
		if !uc.hasher.Verify(password, employee.PasswordHash) {
			uc.log.Warnf("Use Case: Auth rejected - wrong password for employee %d", employee.ID)
			return nil, nil
		}
		p := employee.Principal
		return &p, nil
	case !errors.Is(err, domain.ErrNotFound):
		uc.log.Errorf("Use Case: Error looking up employee %s: %v", email, err)
		return nil, err
	}

	customer, err := uc.principals.FindCustomerByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.log.Warnf("Use Case: Auth rejected - unknown email %s", email)
			return nil, nil
		}
		uc.log.Errorf("Use Case: Error looking up customer %s: %v", email, err)
		return nil, err
	}
	if !uc.hasher.Verify(password, customer.PasswordHash) {
		uc.log.Warnf("Use Case: Auth rejected - wrong password for customer %d", customer.ID)
		return nil, nil
	}
	p := customer.Principal
	return &p, nil
}

func (uc *authUseCase) validateRegistration(req *RegisterRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	if req.Name == "" {
		return domain.Invalid("name cannot be empty")
	}
	if !isValidEmail(req.Email) {
		return domain.Invalid("invalid email format")
	}
	if err := validatePassword(req.Password); err != nil {
		return err
	}
	if !isValidPhone(req.Phone) {
		return domain.Invalid("invalid phone number")
	}
	return nil
}

func (uc *authUseCase) RegisterCustomer(ctx context.Context, req RegisterRequest) (*domain.Principal, error) {
	uc.log.Infof("Use Case: Attempting customer registration for email: %s", normalizeEmail(req.Email))
	if err := uc.validateRegistration(&req); err != nil {
		uc.log.Warnf("Use Case: Registration failed - %v", err)
		return nil, err
	}

	// Employees own their email across both tables.
	if _, err := uc.principals.FindEmployeeByEmail(ctx, req.Email); err == nil {
		uc.log.Warnf("Use Case: Registration failed - email %s belongs to an employee", req.Email)
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := uc.hasher.Hash(req.Password)
	if err != nil {
		uc.log.Errorf("Use Case: Failed to hash password for %s: %v", req.Email, err)
		return nil, domain.Invalid("password cannot be used: %v", err)
	}

	created, err := uc.principals.CreateCustomer(ctx, domain.NewPrincipal{
		Name: req.Name, Email: req.Email, Phone: req.Phone, PasswordHash: hash, Role: domain.RoleCustomer,
	})
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create customer %s: %v", req.Email, err)
		return nil, err
	}
	uc.log.Infof("Use Case: Customer registered successfully. ID: %d", created.ID)
	return created, nil
}

func (uc *authUseCase) RegisterEmployee(ctx context.Context, actx domain.AuthenticatedContext, req RegisterRequest) (*domain.Principal, error) {
	admin, err := domain.Require(actx, domain.AdministratorOnly...)
	if err != nil {
		return nil, err
	}
	if !req.Role.IsEmployee() {
		return nil, domain.Invalid("employee role must be administrator or courier")
	}
	if err := uc.validateRegistration(&req); err != nil {
		uc.log.Warnf("Use Case: Employee registration failed - %v", err)
		return nil, err
	}

	if _, err := uc.principals.FindCustomerByEmail(ctx, req.Email); err == nil {
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := uc.hasher.Hash(req.Password)
	if err != nil {
		return nil, domain.Invalid("password cannot be used: %v", err)
	}

	created, err := uc.principals.CreateEmployee(ctx, domain.NewPrincipal{
		Name: req.Name, Email: req.Email, Phone: req.Phone, PasswordHash: hash, Role: req.Role,
	})
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create employee %s: %v", req.Email, err)
		return nil, err
	}
	uc.log.Infof("Use Case: Administrator %d registered employee %d as %s", admin.ID, created.ID, created.Role)
	return created, nil
}

func (uc *authUseCase) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	principal, err := uc.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if principal == nil {
		return nil, domain.ErrUnauthenticated
	}

	now := uc.now().UTC()
	session := &domain.Session{
		Token:     uuid.NewString(),
		Principal: *principal,
		CreatedAt: now,
		ExpiresAt: now.Add(uc.sessionTTL),
	}
	if err := uc.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	uc.log.Infof("Use Case: Login successful for principal %d (%s)", principal.ID, principal.Role)
	return session, nil
}

func (uc *authUseCase) Logout(ctx context.Context, token string) error {
	if _, err := uuid.Parse(token); err != nil {
		return nil
	}
	if err := uc.sessions.Delete(ctx, token); err != nil {
		uc.log.Errorf("Use Case: Failed to delete session: %v", err)
		return err
	}
	return nil
}

// ResolveSession never fails: anything other than a live session is an
// anonymous caller.
func (uc *authUseCase) ResolveSession(ctx context.Context, token string) domain.AuthenticatedContext {
	if _, err := uuid.Parse(token); err != nil {
		return domain.Anonymous()
	}
	session, err := uc.sessions.Get(ctx, token)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			uc.log.Warnf("Use Case: Session lookup failed, treating caller as anonymous: %v", err)
		}
		return domain.Anonymous()
	}
	if session.Expired(uc.now()) {
		if err := uc.sessions.Delete(ctx, token); err != nil {
			uc.log.Warnf("Use Case: Failed to delete expired session: %v", err)
		}
		return domain.Anonymous()
	}
	return domain.AuthenticatedAs(session.Principal)
}

func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}
	domainParts := strings.Split(parts[1], ".")
	return len(domainParts) >= 2 && domainParts[0] != "" && domainParts[len(domainParts)-1] != ""
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return domain.Invalid("password must be at least 8 characters long")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return domain.Invalid("password must contain an uppercase letter, a lowercase letter and a digit")
	}
	return nil
}

func isValidPhone(phone string) bool {
	for _, char := range phone {
		if !unicode.IsDigit(char) && !strings.ContainsRune(" +-", char) {
			return false
		}
	}
	return len(phone) <= 30
}
