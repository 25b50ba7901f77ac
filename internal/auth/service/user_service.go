package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/judovisa/auth-service/config"
	"github.com/judovisa/auth-service/internal/auth/domain"
	"github.com/judovisa/auth-service/internal/auth/dto"
	autherror "github.com/judovisa/auth-service/internal/errors"
	"github.com/judovisa/auth-service/internal/email"
	"github.com/judovisa/auth-service/internal/logger"
	"github.com/judovisa/auth-service/pkg/constant"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,30}$`)

type UserService struct {
	repo   domain.UserRepository
	tokens TokenGenerator
	mailer email.Sender
	cfg    *config.Config
	log    *zap.Logger
}

func NewUserService(repo domain.UserRepository, tokens TokenGenerator, mailer email.Sender, cfg *config.Config) *UserService {
	return &UserService{
		repo:   repo,
		tokens: tokens,
		mailer: mailer,
		cfg:    cfg,
		log:    logger.Named("user-service"),
	}
}

// Register creates the identity and profile in one transaction and logs the
// new user straight in.
func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*dto.UserOutput, *dto.TokenPair, error) {
	if input.Username == "" || input.Email == "" || input.Password == "" ||
		input.FirstName == "" || input.LastName == "" {
		return nil, nil, autherror.Validation("All fields are required")
	}

	username := strings.ToLower(strings.TrimSpace(input.Username))
	if !usernameRegex.MatchString(username) {
		return nil, nil, autherror.Validation("Username must be 3-30 characters: letters, numbers, _ and - only")
	}
	if len(input.Password) < constant.MinPasswordLength {
		return nil, nil, autherror.Validation("Password must be at least 8 characters")
	}
	emailAddr := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(emailAddr); err != nil {
		return nil, nil, autherror.Validation("Invalid email address")
	}

	existing, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, autherror.ErrUsernameTaken
	}

	existingPerson, err := s.repo.GetPersonByEmail(ctx, emailAddr)
	if err != nil {
		return nil, nil, err
	}
	if existingPerson != nil {
		return nil, nil, autherror.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost())
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         constant.DefaultRole,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	person := &domain.Person{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		DisplayName: strings.TrimSpace(input.Username), // keep original casing
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		Email:       emailAddr,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateWithPerson(ctx, user, person); err != nil {
		return nil, nil, err
	}

	s.audit(ctx, user, domain.EventRegister, input.IPAddress, input.UserAgent, "")

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return buildUserOutput(user, person), pair, nil
}

// Login enforces the lockout policy and rotates the bounded refresh-token set.
func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*dto.UserOutput, *dto.TokenPair, error) {
	if input.Username == "" || input.Password == "" {
		return nil, nil, autherror.Validation("Username and password are required")
	}

	user, err := s.repo.GetByUsername(ctx, strings.ToLower(input.Username))
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, autherror.ErrInvalidCredentials
	}

	if user.IsLocked() {
		return nil, nil, autherror.AccountLocked(user.LockMinutesLeft())
	}

	if !verifyPassword(user.PasswordHash, input.Password) {
		if err := s.recordFailedLogin(ctx, user); err != nil {
			s.log.Warn("failed to record login attempt", zap.String("user_id", user.ID), zap.Error(err))
		}
		s.audit(ctx, user, domain.EventLoginFailed, input.IPAddress, input.UserAgent, "")
		return nil, nil, autherror.ErrInvalidCredentials
	}

	if user.LoginAttempts > 0 || user.LockUntil != nil {
		if err := s.repo.ResetLoginAttempts(ctx, user.ID); err != nil {
			return nil, nil, err
		}
	}

	person, err := s.repo.GetPersonByUserID(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.audit(ctx, user, domain.EventLogin, input.IPAddress, input.UserAgent, "")

	return buildUserOutput(user, person), pair, nil
}

// recordFailedLogin implements the lockout counter: a failure after the lock
// window has elapsed restarts the counter at 1 and clears the lock; otherwise
// the counter increments and the 5th failure sets the lock.
func (s *UserService) recordFailedLogin(ctx context.Context, user *domain.User) error {
	if user.LockUntil != nil && user.LockUntil.Before(time.Now()) {
		return s.repo.UpdateLoginAttempts(ctx, user.ID, 1, nil)
	}

	attempts := user.LoginAttempts + 1
	var lockUntil *time.Time
	if attempts >= s.cfg.MaxLoginAttempts {
		t := time.Now().Add(time.Duration(s.cfg.LockoutMinutes) * time.Minute)
		lockUntil = &t
	}
	return s.repo.UpdateLoginAttempts(ctx, user.ID, attempts, lockUntil)
}

// Logout removes the presented refresh token from the stored set. It is
// best-effort: the caller clears cookies and reports success regardless.
func (s *UserService) Logout(ctx context.Context, userID, username, refreshToken, ip, userAgent string) {
	if refreshToken == "" || userID == "" {
		return
	}
	if err := s.repo.DeleteRefreshToken(ctx, userID, refreshToken); err != nil {
		s.log.Warn("failed to remove refresh token on logout", zap.String("user_id", userID), zap.Error(err))
		return
	}
	s.audit(ctx, &domain.User{ID: userID, Username: username}, domain.EventLogout, ip, userAgent, "")
}

// Refresh verifies the token, checks it is still in the stored set (a token
// rotated out earlier is a replay) and rotates it atomically.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*dto.UserOutput, *dto.TokenPair, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, autherror.ErrSessionExpired
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !user.IsActive {
		return nil, nil, autherror.ErrInvalidSession
	}

	stored, err := s.repo.GetRefreshToken(ctx, user.ID, refreshToken)
	if err != nil {
		return nil, nil, err
	}
	if stored == nil {
		return nil, nil, autherror.ErrInvalidSession
	}

	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, nil, err
	}
	newRefreshToken, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, nil, err
	}

	newRT := &domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     newRefreshToken,
		CreatedAt: time.Now(),
	}
	if err := s.repo.RotateRefreshToken(ctx, user.ID, refreshToken, newRT); err != nil {
		return nil, nil, err
	}

	person, err := s.repo.GetPersonByUserID(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	pair := &dto.TokenPair{AccessToken: accessToken, RefreshToken: newRefreshToken}
	return buildUserOutput(user, person), pair, nil
}

// ForgotPassword issues a single-use reset token and mails it. The caller
// shows the same generic message whether or not the email is known.
func (s *UserService) ForgotPassword(ctx context.Context, input dto.ForgotPasswordInput) error {
	if input.Email == "" {
		return nil
	}

	person, err := s.repo.GetPersonByEmail(ctx, strings.ToLower(input.Email))
	if err != nil || person == nil {
		return nil
	}

	user, err := s.repo.GetByID(ctx, person.UserID)
	if err != nil || user == nil || !user.IsActive {
		return nil
	}

	rawToken, err := randomHex(32)
	if err != nil {
		return err
	}
	tokenHash := hashResetToken(rawToken)
	expires := time.Now().Add(time.Duration(s.cfg.ResetTokenExpiryMin) * time.Minute)

	if err := s.repo.SetPasswordResetToken(ctx, user.ID, tokenHash, expires); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(person.Email, user.Username, rawToken); err != nil {
		// Roll the token fields back so a failed delivery leaves no pending reset.
		if clearErr := s.repo.ClearPasswordResetToken(ctx, user.ID); clearErr != nil {
			s.log.Warn("failed to clear reset token after send failure",
				zap.String("user_id", user.ID), zap.Error(clearErr))
		}
		return autherror.ErrEmailDelivery
	}

	s.audit(ctx, user, domain.EventPasswordResetRequest, input.IPAddress, input.UserAgent, "")
	return nil
}

// ResetPassword consumes a reset token: single-use, wipes every refresh token.
func (s *UserService) ResetPassword(ctx context.Context, input dto.ResetPasswordInput) error {
	if input.Token == "" || input.Password == "" {
		return autherror.Validation("Token and password are required")
	}

	user, err := s.repo.GetByResetTokenHash(ctx, hashResetToken(input.Token))
	if err != nil {
		return err
	}
	if user == nil {
		return autherror.ErrResetTokenInvalid
	}

	if len(input.Password) < constant.MinPasswordLength {
		return autherror.Validation("Password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost())
	if err != nil {
		return err
	}

	if err := s.repo.ResetPassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}

	s.audit(ctx, user, domain.EventPasswordResetComplete, input.IPAddress, input.UserAgent, "")
	return nil
}

// ChangePassword verifies the current password, replaces the hash and wipes
// all refresh tokens (global logout).
func (s *UserService) ChangePassword(ctx context.Context, userID string, input dto.ChangePasswordInput) error {
	if input.CurrentPassword == "" || input.NewPassword == "" {
		return autherror.Validation("Both passwords are required")
	}
	if len(input.NewPassword) < constant.MinPasswordLength {
		return autherror.Validation("New password must be at least 8 characters")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return autherror.ErrAccountInactive
	}

	if !verifyPassword(user.PasswordHash, input.CurrentPassword) {
		return autherror.ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), s.bcryptCost())
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}

	s.audit(ctx, user, domain.EventPasswordResetComplete, input.IPAddress, input.UserAgent,
		"Password changed by the user")
	return nil
}

// UpdateMe applies a partial identity/profile update with duplicate checks.
func (s *UserService) UpdateMe(ctx context.Context, userID string, input dto.UpdateMeInput) (*dto.UserOutput, error) {
	var changed []string
	personUpdate := domain.PersonUpdate{}

	if input.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*input.Username))
		if !usernameRegex.MatchString(username) {
			return nil, autherror.Validation("Username must be 3-30 characters: letters, numbers, _ and - only")
		}
		existing, err := s.repo.GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != userID {
			return nil, autherror.ErrUsernameTaken
		}
		if err := s.repo.UpdateUsername(ctx, userID, username); err != nil {
			return nil, err
		}
		changed = append(changed, "username")
	}

	if input.FirstName != nil {
		firstName := strings.TrimSpace(*input.FirstName)
		if firstName == "" {
			return nil, autherror.Validation("First name cannot be empty")
		}
		personUpdate.FirstName = &firstName
		changed = append(changed, "firstName")
	}
	if input.LastName != nil {
		lastName := strings.TrimSpace(*input.LastName)
		if lastName == "" {
			return nil, autherror.Validation("Last name cannot be empty")
		}
		personUpdate.LastName = &lastName
		changed = append(changed, "lastName")
	}
	if input.Email != nil {
		emailAddr := strings.ToLower(strings.TrimSpace(*input.Email))
		if _, err := mail.ParseAddress(emailAddr); err != nil {
			return nil, autherror.Validation("Invalid email address")
		}
		existing, err := s.repo.GetPersonByEmail(ctx, emailAddr)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.UserID != userID {
			return nil, autherror.ErrEmailTaken
		}
		personUpdate.Email = &emailAddr
		changed = append(changed, "email")
	}

	if len(changed) == 0 {
		return nil, autherror.Validation("Nothing to update")
	}

	if personUpdate.FirstName != nil || personUpdate.LastName != nil || personUpdate.Email != nil {
		if err := s.repo.UpdatePerson(ctx, userID, personUpdate); err != nil {
			return nil, err
		}
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrAccountInactive
	}
	person, err := s.repo.GetPersonByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, user, domain.EventAccountUpdated, input.IPAddress, input.UserAgent,
		"Updated: "+strings.Join(changed, ", "))

	return buildUserOutput(user, person), nil
}

// GetMe resolves the current identity summary.
func (s *UserService) GetMe(ctx context.Context, userID string) (*dto.UserOutput, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, autherror.ErrAccountInactive
	}
	person, err := s.repo.GetPersonByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return buildUserOutput(user, person), nil
}

// CurrentUser is the middleware's identity load: nil when missing or inactive.
func (s *UserService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, nil
	}
	return user, nil
}

// DeleteAccount hard-deletes the identity, profile and scores after a
// password confirmation. Irreversible.
func (s *UserService) DeleteAccount(ctx context.Context, userID string, input dto.DeleteAccountInput) error {
	if input.Password == "" {
		return autherror.Validation("Confirm with your password")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return autherror.ErrAccountInactive
	}

	if !verifyPassword(user.PasswordHash, input.Password) {
		return autherror.ErrIncorrectPassword
	}

	// Record before the purge; afterwards there is no user row to refer to.
	s.audit(ctx, user, domain.EventAccountDeleted, input.IPAddress, input.UserAgent,
		"User deleted their own account (hard delete)")

	return s.repo.Purge(ctx, userID)
}

// Deactivate soft-deletes the account; auth treats it as missing afterwards.
func (s *UserService) Deactivate(ctx context.Context, userID string) error {
	return s.repo.Deactivate(ctx, userID)
}

func (s *UserService) issueTokens(ctx context.Context, user *domain.User) (*dto.TokenPair, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	rt := &domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     refreshToken,
		CreatedAt: time.Now(),
	}
	if err := s.repo.StoreRefreshToken(ctx, rt, s.cfg.MaxActiveTokensPerUser); err != nil {
		return nil, err
	}

	return &dto.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// audit records an account event; failures are logged and never propagate.
func (s *UserService) audit(ctx context.Context, user *domain.User, event, ip, userAgent, details string) {
	entry := &domain.AuditLog{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		Event:     event,
		IPAddress: ip,
		UserAgent: userAgent,
		Details:   details,
		CreatedAt: time.Now(),
	}
	if err := s.repo.InsertAuditLog(ctx, entry); err != nil {
		s.log.Warn("audit log write failed", zap.String("event", event), zap.Error(err))
	}
}

func (s *UserService) bcryptCost() int {
	if s.cfg.BcryptCost >= bcrypt.MinCost {
		return s.cfg.BcryptCost
	}
	return bcrypt.DefaultCost
}

func verifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func buildUserOutput(user *domain.User, person *domain.Person) *dto.UserOutput {
	out := &dto.UserOutput{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
	}
	if person != nil {
		if person.DisplayName != "" {
			out.Username = person.DisplayName
		}
		out.FirstName = person.FirstName
		out.LastName = person.LastName
		out.Email = person.Email
	}
	return out
}
