package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/Zhima-Mochi/foodorder/internal/application"
	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	domuser "github.com/Zhima-Mochi/foodorder/internal/domain/user"
	"github.com/Zhima-Mochi/foodorder/internal/observability"
	"github.com/Zhima-Mochi/foodorder/internal/observability/logctx"
	"go.opentelemetry.io/otel/attribute"
)

const (
	authService     = "auth-service"
	useCaseRegister = "auth.register"
	useCaseLogin    = "auth.login"
)

// Client-facing messages kept from the original API.
const (
	MsgUserExists        = "exist"
	MsgUserNotExist      = "not exist"
	MsgIncorrectPassword = "incorrect password"
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type RegisterResult struct {
	UserID string
	Token  string
}

type RegisterUseCase struct {
	users  domuser.Repository
	hasher PasswordHasher
	tokens TokenIssuer
	ids    application.IDGenerator
	in     application.Instrument
}

func NewRegisterUseCase(
	users domuser.Repository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	ids application.IDGenerator,
	tel observability.Observability,
) *RegisterUseCase {
	return &RegisterUseCase{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		ids:    ids,
		in:     application.NewInstrument(tel, authService),
	}
}

var _ application.UseCase[RegisterInput, *RegisterResult] = (*RegisterUseCase)(nil)

// Execute creates the identity and logs it in. A taken email is a conflict.
func (uc *RegisterUseCase) Execute(ctx context.Context, cmd RegisterInput) (_ *RegisterResult, err error) {
	ctx, run := uc.in.Start(ctx, useCaseRegister, "Register")
	defer func() { run.End(err) }()

	name := strings.TrimSpace(cmd.Name)
	email := domuser.NormalizeEmail(cmd.Email)
	switch {
	case name == "":
		return nil, failure.Validation("name is required")
	case email == "":
		return nil, failure.Validation("email is required")
	case cmd.Password == "":
		return nil, failure.Validation("password is required")
	}
	if addr, perr := mail.ParseAddress(email); perr != nil || addr.Address != email {
		return nil, failure.Validation("please enter a valid email")
	}

	_, err = uc.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, run.Fail("USER_EXISTS", failure.New(failure.ErrConflict, MsgUserExists))
	case !errors.Is(err, failure.ErrNotFound):
		return nil, run.Fail("USER_LOOKUP_FAILED", failure.Persistence("users.get_by_email", err))
	}

	hash, err := uc.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, run.Fail("PASSWORD_HASH_FAILED", fmt.Errorf("auth: hash password: %w", err))
	}

	u, err := domuser.New(uc.ids.NewID(), name, email, hash)
	if err != nil {
		return nil, err
	}
	if err := uc.users.Insert(ctx, u); err != nil {
		if errors.Is(err, failure.ErrConflict) {
			return nil, run.Fail("USER_EXISTS", failure.Wrap(failure.ErrConflict, MsgUserExists, err))
		}
		return nil, run.Fail("USER_INSERT_FAILED", failure.Persistence("users.insert", err))
	}
	run.Span().SetAttributes(attribute.String("user.id", u.ID))
	run.Annotate(observability.F("user_id", u.ID))

	token, err := uc.tokens.Issue(u.ID)
	if err != nil {
		return nil, run.Fail("TOKEN_ISSUE_FAILED", fmt.Errorf("auth: issue token: %w", err))
	}
	return &RegisterResult{UserID: u.ID, Token: token}, nil
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	UserID string
	Token  string
}

type LoginUseCase struct {
	users  domuser.Repository
	hasher PasswordHasher
	tokens TokenIssuer
	in     application.Instrument
}

func NewLoginUseCase(
	users domuser.Repository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	tel observability.Observability,
) *LoginUseCase {
	return &LoginUseCase{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		in:     application.NewInstrument(tel, authService),
	}
}

var _ application.UseCase[LoginInput, *LoginResult] = (*LoginUseCase)(nil)

// Execute checks the credentials. No token is issued unless the password matches.
func (uc *LoginUseCase) Execute(ctx context.Context, cmd LoginInput) (_ *LoginResult, err error) {
	ctx, run := uc.in.Start(ctx, useCaseLogin, "Login")
	defer func() { run.End(err) }()

	email := domuser.NormalizeEmail(cmd.Email)
	if email == "" || cmd.Password == "" {
		return nil, failure.Validation("email and password are required")
	}

	u, err := uc.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, failure.ErrNotFound) {
			return nil, run.Fail("USER_NOT_FOUND", failure.Wrap(failure.ErrNotFound, MsgUserNotExist, err))
		}
		return nil, run.Fail("USER_LOOKUP_FAILED", failure.Persistence("users.get_by_email", err))
	}
	run.Annotate(observability.F("user_id", u.ID))

	ok, err := uc.hasher.Matches(u.PasswordHash, cmd.Password)
	if err != nil {
		return nil, run.Fail("PASSWORD_CHECK_FAILED", fmt.Errorf("auth: check password: %w", err))
	}
	if !ok {
		return nil, run.Fail("INCORRECT_PASSWORD", failure.New(failure.ErrUnauthenticated, MsgIncorrectPassword))
	}

	token, err := uc.tokens.Issue(u.ID)
	if err != nil {
		return nil, run.Fail("TOKEN_ISSUE_FAILED", fmt.Errorf("auth: issue token: %w", err))
	}
	return &LoginResult{UserID: u.ID, Token: token}, nil
}

// Gate turns a bearer credential into a user id.
type Gate struct {
	verifier TokenVerifier
	log      observability.Logger
}

func NewGate(verifier TokenVerifier, tel observability.Observability) *Gate {
	return &Gate{
		verifier: verifier,
		log:      observability.LoggerOf(tel).With(observability.F("service", authService)),
	}
}

// Authenticate fails with ErrUnauthenticated for a missing, malformed, foreign
// or expired credential.
func (g *Gate) Authenticate(ctx context.Context, credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", failure.New(failure.ErrUnauthenticated, "not authorized")
	}
	userID, err := g.verifier.Verify(credential)
	if err != nil {
		if !errors.Is(err, failure.ErrUnauthenticated) {
			err = failure.Wrap(failure.ErrUnauthenticated, "invalid token", err)
		}
		logctx.FromOr(ctx, g.log).Debug("authentication_failed", observability.F("error", err.Error()))
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return userID, nil
}
