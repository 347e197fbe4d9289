package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"pos-backoffice/internal/cache"
	"pos-backoffice/internal/config"
	"pos-backoffice/internal/domain"
	"pos-backoffice/internal/repository"
	"pos-backoffice/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for password hashing
	BcryptCost = 12

	// VerificationCodeTTL bounds how long a password reset code stays valid
	VerificationCodeTTL = 10 * time.Minute

	// MaxVerificationAttempts is how many wrong guesses discard a code
	MaxVerificationAttempts = 5
)

var (
	ErrInvalidCredentials      = errors.New("email or password is incorrect")
	ErrIncorrectPassword       = errors.New("current password is incorrect")
	ErrAccountInactive         = errors.New("account is not active")
	ErrInvalidToken            = errors.New("invalid token")
	ErrInvalidVerificationCode = errors.New("verification code is invalid or has expired")
)

// Claims represents the JWT claims
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	Kind   string    `json:"kind"`
	jwt.RegisteredClaims
}

// RegisterInput is a sign-up request
type RegisterInput struct {
	Name           string   `json:"name" validate:"required,max=255"`
	Email          string   `json:"email" validate:"required,email,max=255"`
	Password       string   `json:"password" validate:"required,min=6,max=72"`
	Gender         string   `json:"gender" validate:"omitempty,max=20"`
	Image          string   `json:"image" validate:"max=500"`
	PaymentMethods []string `json:"paymentMethods" validate:"dive,required,max=50"`
}

// ProfileInput carries the fields an account holder may edit
type ProfileInput struct {
	Name           string   `json:"name" validate:"required,max=255"`
	Gender         string   `json:"gender" validate:"omitempty,max=20"`
	Image          string   `json:"image" validate:"max=500"`
	PaymentMethods []string `json:"paymentMethods" validate:"dive,required,max=50"`
}

// AdminContact is what a locked-out user needs to reach an administrator
type AdminContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AccountService defines the business logic shared by staff users and customers
type AccountService interface {
	Kind() domain.AccountKind
	Register(ctx context.Context, input RegisterInput) (*domain.Account, string, error)
	Login(ctx context.Context, email, password string) (string, *domain.Account, error)
	ValidateToken(tokenString string) (*Claims, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	List(ctx context.Context) ([]*domain.Account, error)
	Update(ctx context.Context, id uuid.UUID, input ProfileInput) (*domain.Account, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) error
	SetRole(ctx context.Context, id uuid.UUID, role string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error
	SendVerificationCode(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	AdminContact(ctx context.Context) (*AdminContact, error)
}

type accountService struct {
	accountRepo repository.AccountRepository
	codes       cache.CodeStore
	mailer      Mailer
	jwtSecret   string
	tokenTTL    time.Duration
	bcryptCost  int
	logger      *zap.Logger
	now         func() time.Time
}

// NewAccountService creates an AccountService for the kind of accountRepo
func NewAccountService(
	accountRepo repository.AccountRepository,
	codes cache.CodeStore,
	mailer Mailer,
	jwtCfg config.JWTConfig,
	logger *zap.Logger,
) AccountService {
	return &accountService{
		accountRepo: accountRepo,
		codes:       codes,
		mailer:      mailer,
		jwtSecret:   jwtCfg.Secret,
		tokenTTL:    time.Duration(jwtCfg.Expiry) * time.Hour,
		bcryptCost:  BcryptCost,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *accountService) Kind() domain.AccountKind {
	return s.accountRepo.Kind()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new account with a hashed password and returns it with a
// token. Staff sign-ups wait for an administrator to activate them, except
// the very first one, which becomes the administrator. Accounts that are not
// active get no token.
func (s *accountService) Register(ctx context.Context, input RegisterInput) (*domain.Account, string, error) {
	if err := validation.Struct(input); err != nil {
		return nil, "", firstViolation(0, err)
	}
	email := normalizeEmail(input.Email)

	existing, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, "", fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		return nil, "", repository.ErrAccountAlreadyExists
	}

	hashedPassword, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	account := &domain.Account{
		ID:             uuid.New(),
		Kind:           s.Kind(),
		Name:           input.Name,
		Email:          email,
		PasswordHash:   hashedPassword,
		Gender:         input.Gender,
		Image:          input.Image,
		PaymentMethods: input.PaymentMethods,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	switch s.Kind() {
	case domain.KindCustomer:
		account.Role = domain.RoleCustomer
		account.Status = domain.AccountActive
	default:
		account.Role = domain.RoleUser
		account.Status = domain.AccountInactive

		_, err := s.accountRepo.FirstActiveAdmin(ctx)
		if errors.Is(err, repository.ErrAccountNotFound) {
			account.Role = domain.RoleAdmin
			account.Status = domain.AccountActive
			s.logger.Info("Bootstrapping first administrator", zap.String("email", email))
		} else if err != nil {
			return nil, "", fmt.Errorf("failed to look up administrator: %w", err)
		}
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, "", err
	}
	if !account.Active() {
		return account, "", nil
	}

	token, err := s.generateToken(account)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return account, token, nil
}

// Login authenticates an account and returns a JWT
func (s *accountService) Login(ctx context.Context, email, password string) (string, *domain.Account, error) {
	account, err := s.accountRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to find account: %w", err)
	}

	if err := s.verifyPassword(account.PasswordHash, password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if !account.Active() {
		return "", nil, ErrAccountInactive
	}

	token, err := s.generateToken(account)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return token, account, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *accountService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != string(s.Kind()) {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Get retrieves an account by ID
func (s *accountService) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.accountRepo.FindByID(ctx, id)
}

// GetByEmail retrieves an account by email
func (s *accountService) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.accountRepo.FindByEmail(ctx, normalizeEmail(email))
}

// List retrieves every account of this kind
func (s *accountService) List(ctx context.Context) ([]*domain.Account, error) {
	return s.accountRepo.List(ctx)
}

// Update changes the profile of an account
func (s *accountService) Update(ctx context.Context, id uuid.UUID, input ProfileInput) (*domain.Account, error) {
	if err := validation.Struct(input); err != nil {
		return nil, firstViolation(0, err)
	}

	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	account.Name = input.Name
	account.Gender = input.Gender
	account.Image = input.Image
	account.PaymentMethods = input.PaymentMethods
	account.UpdatedAt = s.now().UTC()

	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// SetStatus activates or deactivates an account
func (s *accountService) SetStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) error {
	if !status.Valid() {
		return &ValidationError{Field: "status", Message: "Value must be one of: active inactive"}
	}
	return s.accountRepo.SetStatus(ctx, id, status)
}

// SetRole changes the role of a staff account
func (s *accountService) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	if s.Kind() != domain.KindStaff {
		return &ValidationError{Field: "usertype", Message: "customer roles cannot be changed"}
	}
	if role != domain.RoleAdmin && role != domain.RoleUser {
		return &ValidationError{Field: "usertype", Message: "Value must be one of: admin user"}
	}
	return s.accountRepo.SetRole(ctx, id, role)
}

// Delete removes an account
func (s *accountService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.accountRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrAccountInUse) {
		return &ConflictError{Message: "account has recorded transactions and cannot be deleted"}
	}
	return err
}

// ChangePassword replaces the password after checking the current one
func (s *accountService) ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.verifyPassword(account.PasswordHash, currentPassword); err != nil {
		return ErrIncorrectPassword
	}

	hashedPassword, err := s.hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.accountRepo.UpdatePassword(ctx, id, hashedPassword)
}

// SendVerificationCode issues a six digit reset code and mails it
func (s *accountService) SendVerificationCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if _, err := s.accountRepo.FindByEmail(ctx, email); err != nil {
		return err
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}

	if err := s.codes.Set(ctx, s.codeKey(email), code, VerificationCodeTTL); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	if err := s.mailer.Send(ctx, email, "Your Verification Code", "Your verification code is "+code); err != nil {
		return fmt.Errorf("failed to send verification code: %w", err)
	}
	return nil
}

// ResetPassword sets a new password when code matches the one last sent.
// The code is consumed.
func (s *accountService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	email = normalizeEmail(email)

	key := s.codeKey(email)
	stored, ok, err := s.codes.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read verification code: %w", err)
	}
	if !ok {
		return ErrInvalidVerificationCode
	}
	if stored != strings.TrimSpace(code) {
		s.recordFailedCode(ctx, key)
		return ErrInvalidVerificationCode
	}

	account, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	hashedPassword, err := s.hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.accountRepo.UpdatePassword(ctx, account.ID, hashedPassword); err != nil {
		return err
	}

	if err := s.codes.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to discard verification code", zap.Error(err))
	}
	return nil
}

// recordFailedCode discards the code once it has been guessed wrong
// MaxVerificationAttempts times.
func (s *accountService) recordFailedCode(ctx context.Context, key string) {
	failures, err := s.codes.Fail(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to count verification attempt", zap.Error(err))
		return
	}
	if failures < MaxVerificationAttempts {
		return
	}
	s.logger.Warn("Verification code discarded after repeated failures", zap.String("key", key))
	if err := s.codes.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to discard verification code", zap.Error(err))
	}
}

// AdminContact returns the name and email of the first active administrator
func (s *accountService) AdminContact(ctx context.Context) (*AdminContact, error) {
	admin, err := s.accountRepo.FirstActiveAdmin(ctx)
	if err != nil {
		return nil, err
	}
	return &AdminContact{Name: admin.Name, Email: admin.Email}, nil
}

func (s *accountService) codeKey(email string) string {
	return string(s.Kind()) + ":" + email
}

func validatePassword(password string) error {
	if err := validation.Var(password, "required,min=6,max=72"); err != nil {
		return firstViolation(0, err)
	}
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// hashPassword hashes a password using bcrypt
func (s *accountService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// verifyPassword verifies a password against a bcrypt hash
func (s *accountService) verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// generateToken generates a JWT with user ID, role and kind claims
func (s *accountService) generateToken(account *domain.Account) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: account.ID,
		Role:   account.Role,
		Kind:   string(account.Kind),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
