package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pos-backoffice/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountAlreadyExists = errors.New("account with this email already exists")
	ErrAccountInUse         = errors.New("account is referenced by recorded transactions")
)

// AccountRepository defines the data access for one kind of account. Staff
// users and customers share the table but never see each other's rows.
type AccountRepository interface {
	Kind() domain.AccountKind
	Create(ctx context.Context, account *domain.Account) error
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	List(ctx context.Context) ([]*domain.Account, error)
	Update(ctx context.Context, account *domain.Account) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) error
	SetRole(ctx context.Context, id uuid.UUID, role string) error
	Delete(ctx context.Context, id uuid.UUID) error
	FirstActiveAdmin(ctx context.Context) (*domain.Account, error)
}

type accountRepository struct {
	db   *sql.DB
	kind domain.AccountKind
}

// NewAccountRepository creates an AccountRepository scoped to kind
func NewAccountRepository(db *sql.DB, kind domain.AccountKind) AccountRepository {
	return &accountRepository{db: db, kind: kind}
}

// NewUserRepository creates the repository for back-office staff
func NewUserRepository(db *sql.DB) AccountRepository {
	return NewAccountRepository(db, domain.KindStaff)
}

// NewCustomerRepository creates the repository for customers
func NewCustomerRepository(db *sql.DB) AccountRepository {
	return NewAccountRepository(db, domain.KindCustomer)
}

const accountColumns = `id, kind, name, email, password_hash, role, gender, status, image, payment_methods, created_at, updated_at`

func scanAccount(row rowScanner) (*domain.Account, error) {
	account := &domain.Account{}
	err := row.Scan(
		&account.ID,
		&account.Kind,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.Gender,
		&account.Status,
		&account.Image,
		typeMap.SQLScanner(&account.PaymentMethods),
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *accountRepository) Kind() domain.AccountKind {
	return r.kind
}

// Create inserts a new account of the repository's kind
func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, kind, name, email, password_hash, role, gender, status, image, payment_methods, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	account.Kind = r.kind
	paymentMethods := account.PaymentMethods
	if paymentMethods == nil {
		paymentMethods = []string{}
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		account.ID,
		account.Kind,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.Role,
		account.Gender,
		account.Status,
		account.Image,
		paymentMethods,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAccountAlreadyExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// FindByEmail retrieves an account by email
func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE kind = $1 AND email = $2`
	return r.get(ctx, query, r.kind, email)
}

// FindByID retrieves an account by ID
func (r *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE kind = $1 AND id = $2`
	return r.get(ctx, query, r.kind, id)
}

// FirstActiveAdmin returns the oldest active administrator
func (r *accountRepository) FirstActiveAdmin(ctx context.Context) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE kind = $1 AND role = $2 AND status = $3
		ORDER BY created_at ASC LIMIT 1`
	return r.get(ctx, query, r.kind, domain.RoleAdmin, domain.AccountActive)
}

// List retrieves every account of the repository's kind
func (r *accountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE kind = $1 ORDER BY created_at DESC`, r.kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []*domain.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// Update stores the profile fields of an account
func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	paymentMethods := account.PaymentMethods
	if paymentMethods == nil {
		paymentMethods = []string{}
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET name = $3, gender = $4, image = $5, payment_methods = $6, updated_at = $7
		WHERE kind = $1 AND id = $2
	`, r.kind, account.ID, account.Name, account.Gender, account.Image, paymentMethods, account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return affectedOrNotFound(result, ErrAccountNotFound)
}

// UpdatePassword replaces the stored password hash
func (r *accountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET password_hash = $3, updated_at = now()
		WHERE kind = $1 AND id = $2
	`, r.kind, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return affectedOrNotFound(result, ErrAccountNotFound)
}

// SetStatus activates or deactivates an account
func (r *accountRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET status = $3, updated_at = now()
		WHERE kind = $1 AND id = $2
	`, r.kind, id, status)
	if err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}
	return affectedOrNotFound(result, ErrAccountNotFound)
}

// SetRole changes the role of an account
func (r *accountRepository) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET role = $3, updated_at = now()
		WHERE kind = $1 AND id = $2
	`, r.kind, id, role)
	if err != nil {
		return fmt.Errorf("failed to update account role: %w", err)
	}
	return affectedOrNotFound(result, ErrAccountNotFound)
}

// Delete removes an account. Customers with recorded sales cannot be removed.
func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE kind = $1 AND id = $2`, r.kind, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrAccountInUse
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return affectedOrNotFound(result, ErrAccountNotFound)
}

func (r *accountRepository) get(ctx context.Context, query string, args ...interface{}) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return account, nil
}
