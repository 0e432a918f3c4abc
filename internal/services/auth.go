package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/upright-backend/internal/data/repos"
	"github.com/yungbote/upright-backend/internal/domain"
	"github.com/yungbote/upright-backend/internal/platform/ctxutil"
	"github.com/yungbote/upright-backend/internal/platform/logger"
)

type AuthService interface {
	Register(ctx context.Context, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, err error)
	Refresh(ctx context.Context, refreshToken string) (newAccess, newRefresh string, err error)
	Logout(ctx context.Context) error
	ResetPassword(ctx context.Context, email, newPassword string) error
	// SetContextFromToken validates a bearer token and attaches RequestData.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

var ErrEmailTaken = fmt.Errorf("email already exists")
var ErrInvalidCredentials = fmt.Errorf("invalid email or password")

type authService struct {
	db           *gorm.DB
	log          *logger.Logger
	users        repos.UserRepo
	tokens       repos.UserTokenRepo
	jwtSecretKey string
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	users repos.UserRepo,
	tokens repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:           db,
		log:          baseLog.With("service", "AuthService"),
		users:        users,
		tokens:       tokens,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
	}
}

func (as *authService) GetAccessTTL() time.Duration { return as.accessTTL }

func (as *authService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	password = strings.TrimSpace(password)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("missing or invalid email")
	}
	if password == "" {
		return nil, fmt.Errorf("missing password")
	}

	exists, err := as.users.EmailExists(ctx, nil, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:       uuid.New(),
		Email:    email,
		Username: deriveUsername(email),
		Password: string(hash),
	}
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := as.users.Create(ctx, tx, []*domain.User{user})
		return err
	}); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (string, string, error) {
	email = normalizeEmail(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return "", "", ErrInvalidCredentials
	}

	users, err := as.users.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return "", "", fmt.Errorf("retrieve user: %w", err)
	}
	if len(users) == 0 {
		return "", "", ErrInvalidCredentials
	}
	user := users[0]

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", "", ErrInvalidCredentials
	}

	var accessToken, refreshToken string
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Stale tokens for this user are replaced, not accumulated.
		existing, err := as.tokens.GetByUserIDs(ctx, tx, []uuid.UUID{user.ID})
		if err != nil {
			return fmt.Errorf("check user tokens: %w", err)
		}
		expiredIDs := make([]uuid.UUID, 0, len(existing))
		for _, tok := range existing {
			if tok.ExpiresAt.Before(time.Now()) {
				expiredIDs = append(expiredIDs, tok.ID)
			}
		}
		if err := as.tokens.FullDeleteByIDs(ctx, tx, expiredIDs); err != nil {
			return fmt.Errorf("delete expired tokens: %w", err)
		}

		tokenID := uuid.New()
		access, err := as.generateAccessToken(user, tokenID)
		if err != nil {
			return fmt.Errorf("generate access token: %w", err)
		}
		accessToken = access
		refreshToken = uuid.New().String()
		userToken := &domain.UserToken{
			ID:           tokenID,
			UserID:       user.ID,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}
		if _, err := as.tokens.Create(ctx, tx, []*domain.UserToken{userToken}); err != nil {
			return fmt.Errorf("create user token: %w", err)
		}
		return nil
	}); err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (as *authService) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	stored, err := as.tokens.GetByRefreshToken(ctx, nil, refreshToken)
	if err != nil {
		return "", "", fmt.Errorf("lookup refresh token: %w", err)
	}
	if stored == nil || stored.ExpiresAt.Before(time.Now()) {
		return "", "", fmt.Errorf("invalid or expired refresh token")
	}

	users, err := as.users.GetByIDs(ctx, nil, []uuid.UUID{stored.UserID})
	if err != nil || len(users) == 0 {
		return "", "", fmt.Errorf("refresh token user not found")
	}
	user := users[0]

	var accessToken, newRefresh string
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := as.tokens.FullDeleteByIDs(ctx, tx, []uuid.UUID{stored.ID}); err != nil {
			return err
		}
		tokenID := uuid.New()
		access, err := as.generateAccessToken(user, tokenID)
		if err != nil {
			return err
		}
		accessToken = access
		newRefresh = uuid.New().String()
		userToken := &domain.UserToken{
			ID:           tokenID,
			UserID:       user.ID,
			AccessToken:  accessToken,
			RefreshToken: newRefresh,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}
		_, err = as.tokens.Create(ctx, tx, []*domain.UserToken{userToken})
		return err
	}); err != nil {
		return "", "", fmt.Errorf("rotate tokens: %w", err)
	}
	return accessToken, newRefresh, nil
}

func (as *authService) Logout(ctx context.Context) error {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return fmt.Errorf("unauthorized")
	}
	return as.tokens.FullDeleteByUserIDs(ctx, nil, []uuid.UUID{rd.UserID})
}

func (as *authService) ResetPassword(ctx context.Context, email, newPassword string) error {
	email = normalizeEmail(email)
	newPassword = strings.TrimSpace(newPassword)
	if email == "" || newPassword == "" {
		return fmt.Errorf("missing email or password")
	}

	users, err := as.users.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return fmt.Errorf("retrieve user: %w", err)
	}
	if len(users) == 0 {
		return fmt.Errorf("user not found")
	}
	user := users[0]

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := as.users.UpdatePassword(ctx, tx, user.ID, string(hash)); err != nil {
			return err
		}
		// Force re-login everywhere after a reset.
		return as.tokens.FullDeleteByUserIDs(ctx, tx, []uuid.UUID{user.ID})
	})
}

type accessClaims struct {
	TokenID string `json:"token_id"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

func (as *authService) generateAccessToken(user *domain.User, tokenID uuid.UUID) (string, error) {
	now := time.Now()
	claims := accessClaims{
		TokenID: tokenID.String(),
		Email:   user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil || !parsed.Valid {
		return ctx, fmt.Errorf("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid token subject")
	}
	tokenID, err := uuid.Parse(claims.TokenID)
	if err != nil {
		return ctx, fmt.Errorf("invalid token id")
	}

	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		UserID:  userID,
		TokenID: tokenID,
		Email:   claims.Email,
	}), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// deriveUsername mirrors signup in the web app: the email local part,
// lowercased.
func deriveUsername(email string) string {
	local := strings.SplitN(email, "@", 2)[0]
	local = strings.ToLower(strings.TrimSpace(local))
	if local == "" {
		local = fmt.Sprintf("user_%d", time.Now().Unix())
	}
	return local
}
