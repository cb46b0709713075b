package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/daat21/lumiere/internal/auth"
	"github.com/daat21/lumiere/internal/domain"
	"github.com/daat21/lumiere/internal/domain/ports"
)

var (
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInactiveUser       = errors.New("inactive user")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrEmailTaken         = errors.New("email already registered")
)

type RegisterInput struct {
	Username        string `json:"username" validate:"required,username"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,strongpassword"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type Register struct {
	Users    ports.UserRepository
	Validate *validator.Validate
	Now      func() time.Time
}

func (uc Register) Execute(ctx context.Context, input RegisterInput) (domain.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := uc.Validate.Struct(input); err != nil {
		return domain.User{}, auth.ValidationError(err)
	}

	if _, err := uc.Users.GetByUsername(ctx, input.Username); err == nil {
		return domain.User{}, errors.Join(domain.ErrAlreadyExists, ErrUsernameTaken)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, wrapRepo(err)
	}
	if _, err := uc.Users.GetByEmail(ctx, input.Email); err == nil {
		return domain.User{}, errors.Join(domain.ErrAlreadyExists, ErrEmailTaken)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, wrapRepo(err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return domain.User{}, err
	}
	user := domain.User{
		ID:             domain.UserID(uuid.NewString()),
		Username:       input.Username,
		Email:          input.Email,
		HashedPassword: hash,
		IsActive:       true,
		CreatedAt:      nowFunc(uc.Now)().UTC(),
	}
	if err := uc.Users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return domain.User{}, err
		}
		return domain.User{}, wrapRepo(err)
	}
	return user, nil
}

type Session struct {
	User         domain.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
}

type Login struct {
	Users  ports.UserRepository
	Tokens ports.TokenIssuer
	Now    func() time.Time
}

// Execute accepts either the username or the email as login.
func (uc Login) Execute(ctx context.Context, login, password string) (Session, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return Session{}, errors.Join(domain.ErrUnauthorized, ErrInvalidCredentials)
	}

	user, err := uc.Users.GetByUsername(ctx, login)
	if errors.Is(err, domain.ErrNotFound) && strings.Contains(login, "@") {
		user, err = uc.Users.GetByEmail(ctx, login)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Session{}, errors.Join(domain.ErrUnauthorized, ErrInvalidCredentials)
		}
		return Session{}, wrapRepo(err)
	}
	if !auth.CheckPassword(user.HashedPassword, password) {
		return Session{}, errors.Join(domain.ErrUnauthorized, ErrInvalidCredentials)
	}
	if !user.IsActive {
		return Session{}, errors.Join(domain.ErrForbidden, ErrInactiveUser)
	}

	now := nowFunc(uc.Now)().UTC()
	if err := uc.Users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return Session{}, wrapRepo(err)
	}
	user.LastLogin = &now
	return issueSession(uc.Tokens, user)
}

type RefreshSession struct {
	Users  ports.UserRepository
	Tokens ports.TokenIssuer
}

func (uc RefreshSession) Execute(ctx context.Context, refreshToken string) (Session, error) {
	userID, err := uc.Tokens.ParseRefresh(refreshToken)
	if err != nil {
		return Session{}, err
	}
	user, err := loadActiveUser(ctx, uc.Users, userID)
	if err != nil {
		return Session{}, err
	}
	return issueSession(uc.Tokens, user)
}

// Authenticate resolves an access token to an active user.
type Authenticate struct {
	Users  ports.UserRepository
	Tokens ports.TokenIssuer
}

func (uc Authenticate) Execute(ctx context.Context, accessToken string) (domain.User, error) {
	if strings.TrimSpace(accessToken) == "" {
		return domain.User{}, domain.ErrUnauthorized
	}
	userID, err := uc.Tokens.ParseAccess(accessToken)
	if err != nil {
		return domain.User{}, err
	}
	return loadActiveUser(ctx, uc.Users, userID)
}

type ProfileInput struct {
	Username  *string `json:"username" validate:"omitnil,username"`
	Email     *string `json:"email" validate:"omitnil,email"`
	Bio       *string `json:"bio" validate:"omitnil,max=500"`
	AvatarURL *string `json:"avatar_url" validate:"omitnil,omitempty,url"`
}

type UpdateProfile struct {
	Users    ports.UserRepository
	Validate *validator.Validate
	Now      func() time.Time
}

func (uc UpdateProfile) Execute(ctx context.Context, userID domain.UserID, input ProfileInput) (domain.User, error) {
	if err := uc.Validate.Struct(input); err != nil {
		return domain.User{}, auth.ValidationError(err)
	}
	patch := domain.ProfilePatch{
		Username:  input.Username,
		Email:     input.Email,
		Bio:       input.Bio,
		AvatarURL: input.AvatarURL,
	}
	if patch.Empty() {
		user, err := uc.Users.Get(ctx, userID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, wrapRepo(err)
		}
		return user, err
	}
	user, err := uc.Users.UpdateProfile(ctx, userID, patch, nowFunc(uc.Now)().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyExists) {
			return domain.User{}, err
		}
		return domain.User{}, wrapRepo(err)
	}
	return user, nil
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,strongpassword"`
}

type ChangePassword struct {
	Users    ports.UserRepository
	Validate *validator.Validate
	Now      func() time.Time
}

func (uc ChangePassword) Execute(ctx context.Context, userID domain.UserID, input ChangePasswordInput) error {
	if err := uc.Validate.Struct(input); err != nil {
		return auth.ValidationError(err)
	}
	user, err := uc.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return wrapRepo(err)
	}
	if !auth.CheckPassword(user.HashedPassword, input.CurrentPassword) {
		return errors.Join(domain.ErrUnauthorized, ErrInvalidCredentials)
	}
	hash, err := auth.HashPassword(input.NewPassword)
	if err != nil {
		return err
	}
	return wrapRepoUnlessDomain(uc.Users.UpdatePassword(ctx, userID, hash, nowFunc(uc.Now)().UTC()))
}

func loadActiveUser(ctx context.Context, users ports.UserRepository, id domain.UserID) (domain.User, error) {
	user, err := users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, wrapRepo(err)
	}
	if !user.IsActive {
		return domain.User{}, errors.Join(domain.ErrForbidden, ErrInactiveUser)
	}
	return user, nil
}

func issueSession(tokens ports.TokenIssuer, user domain.User) (Session, error) {
	access, refresh, err := tokens.Pair(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func wrapRepoUnlessDomain(err error) error {
	if err == nil || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyExists) {
		return err
	}
	return wrapRepo(err)
}

func nowFunc(now func() time.Time) func() time.Time {
	if now != nil {
		return now
	}
	return time.Now
}
