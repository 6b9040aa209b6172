package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/repository"
	"github.com/TSHgroup/hh25-backend/internal/infra/logging"
	"github.com/TSHgroup/hh25-backend/internal/infra/security"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ AuthUseCase = (*authUC)(nil)

type AuthUseCase interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	Login(ctx context.Context, email, password, ip string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (adapter.TokenPair, error)
	// ResendVerification replaces any pending verification of the account and mails a new code.
	ResendVerification(ctx context.Context, accountID string) (string, error)
	ConfirmVerification(ctx context.Context, token, code string) error
	Account(ctx context.Context, accountID string) (*model.Account, error)

	GoogleAuthURL(ctx context.Context) (string, error)
	GoogleCallback(ctx context.Context, state, code, ip string) (*LoginResult, error)
	GoogleToken(ctx context.Context, idToken, ip string) (*LoginResult, error)
}

// Locker serializes registrations of the same email across instances.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// StateStore holds single-use OAuth state nonces.
type StateStore interface {
	Put(ctx context.Context, nonce string) error
	Consume(ctx context.Context, nonce string) (bool, error)
}

// Cipher seals the OAuth state parameter.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type RegisterInput struct {
	Email    string
	Password string
	Name     model.Name
	IP       string
}

type RegisterResult struct {
	adapter.TokenPair
	VerificationToken string `json:"verificationToken"`
	Message           string `json:"message"`
}

type LoginResult struct {
	adapter.TokenPair
	EmailVerified bool `json:"emailVerified"`
}

type AuthDeps struct {
	Accounts      repository.AccountRepository
	Verifications repository.VerificationRepository
	TM            repository.TransactionManager
	Tokens        adapter.TokenIssuer
	Hasher        *security.PasswordHasher
	Mailer        adapter.Mailer
	Templates     MailRenderer
	Locker        Locker
	Google        adapter.GoogleVerifier // nil disables Google sign-in
	States        StateStore
	Cipher        Cipher
}

// MailRenderer renders a named HTML mail template.
type MailRenderer interface {
	Render(name string, data any) (string, error)
}

type authUC struct {
	deps            AuthDeps
	verificationTTL time.Duration
	stateTTL        time.Duration
	log             *zerolog.Logger
	now             func() time.Time
}

const (
	verificationTemplate = "auth/verification"
	verificationSubject  = "Verify your account"
	googleStatePrefix    = "google"
)

func NewAuthUseCase(deps AuthDeps, verificationTTL time.Duration, logger *zerolog.Logger) *authUC {
	if verificationTTL <= 0 {
		verificationTTL = 5 * time.Minute
	}
	l := logger.With().Str("component", "auth").Logger()
	return &authUC{
		deps:            deps,
		verificationTTL: verificationTTL,
		stateTTL:        10 * time.Minute,
		log:             &l,
		now:             time.Now,
	}
}

func (a *authUC) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	defer logging.TraceDuration(a.log, "AuthUC.Register")()

	email := model.NormalizeEmail(in.Email)
	if a.deps.Locker != nil {
		key := "register:" + email
		token, err := a.deps.Locker.TryLock(ctx, key, 10*time.Second)
		if err != nil {
			return nil, err
		}
		defer func() { _ = a.deps.Locker.Unlock(context.Background(), key, token) }()
	}

	hash, err := a.deps.Hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	acc, err := model.NewAccount(email, in.Name, hash, in.IP)
	if err != nil {
		return nil, err
	}
	pair, err := a.deps.Tokens.Issue(acc.ID)
	if err != nil {
		return nil, err
	}
	vreq, vtoken, err := a.newVerification(acc.ID)
	if err != nil {
		return nil, err
	}

	err = a.deps.TM.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := a.deps.Accounts.Create(ctx, tx, acc); err != nil {
			return err
		}
		if err := a.deps.Accounts.AddRefreshToken(ctx, tx, acc.ID, security.HashToken(pair.RefreshToken), pair.RefreshExpiresAt); err != nil {
			return err
		}
		return a.deps.Verifications.Create(ctx, tx, vreq)
	})
	if err != nil {
		return nil, err
	}

	a.sendVerification(ctx, acc.Email, vreq.Code)
	a.log.Info().Str("account_id", acc.ID).Msg("account registered")

	return &RegisterResult{
		TokenPair:         pair,
		VerificationToken: vtoken,
		Message:           "Account created. Check your email for verification code.",
	}, nil
}

func (a *authUC) Login(ctx context.Context, email, password, ip string) (*LoginResult, error) {
	defer logging.TraceDuration(a.log, "AuthUC.Login")()

	acc, err := a.deps.Accounts.FindByEmail(ctx, repository.NoTX, model.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if acc.PasswordHash == "" || !a.deps.Hasher.Verify(acc.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}
	return a.signIn(ctx, acc, ip)
}

// signIn mints a pair, remembers its refresh hash and records the client ip.
func (a *authUC) signIn(ctx context.Context, acc *model.Account, ip string) (*LoginResult, error) {
	pair, err := a.deps.Tokens.Issue(acc.ID)
	if err != nil {
		return nil, err
	}
	err = a.deps.TM.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := a.deps.Accounts.AddRefreshToken(ctx, tx, acc.ID, security.HashToken(pair.RefreshToken), pair.RefreshExpiresAt); err != nil {
			return err
		}
		if ip == "" {
			return nil
		}
		return a.deps.Accounts.AddIP(ctx, tx, acc.ID, ip)
	})
	if err != nil {
		return nil, err
	}
	return &LoginResult{TokenPair: pair, EmailVerified: acc.EmailVerified}, nil
}

func (a *authUC) Refresh(ctx context.Context, refreshToken string) (adapter.TokenPair, error) {
	defer logging.TraceDuration(a.log, "AuthUC.Refresh")()

	accountID, err := a.deps.Tokens.ParseRefresh(refreshToken)
	if err != nil {
		return adapter.TokenPair{}, domain.ErrInvalidRefreshToken
	}
	if _, err := a.deps.Accounts.FindByID(ctx, repository.NoTX, accountID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return adapter.TokenPair{}, domain.ErrInvalidRefreshToken
		}
		return adapter.TokenPair{}, err
	}

	pair, err := a.deps.Tokens.Issue(accountID)
	if err != nil {
		return adapter.TokenPair{}, err
	}
	err = a.deps.TM.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := a.deps.Accounts.ConsumeRefreshToken(ctx, tx, accountID, security.HashToken(refreshToken))
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrRefreshTokenRevoked
		}
		return a.deps.Accounts.AddRefreshToken(ctx, tx, accountID, security.HashToken(pair.RefreshToken), pair.RefreshExpiresAt)
	})
	if err != nil {
		return adapter.TokenPair{}, err
	}
	return pair, nil
}

func (a *authUC) ResendVerification(ctx context.Context, accountID string) (string, error) {
	defer logging.TraceDuration(a.log, "AuthUC.ResendVerification")()

	acc, err := a.deps.Accounts.FindByID(ctx, repository.NoTX, accountID)
	if err != nil {
		return "", err
	}
	if acc.EmailVerified {
		return "", domain.ErrAlreadyVerified
	}
	vreq, vtoken, err := a.newVerification(acc.ID)
	if err != nil {
		return "", err
	}
	err = a.deps.TM.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := a.deps.Verifications.DeleteByAccount(ctx, tx, acc.ID); err != nil {
			return err
		}
		return a.deps.Verifications.Create(ctx, tx, vreq)
	})
	if err != nil {
		return "", err
	}
	a.sendVerification(ctx, acc.Email, vreq.Code)
	return vtoken, nil
}

func (a *authUC) ConfirmVerification(ctx context.Context, token, code string) error {
	defer logging.TraceDuration(a.log, "AuthUC.ConfirmVerification")()

	vreq, err := a.deps.Verifications.FindValidByTokenHash(ctx, repository.NoTX, security.HashToken(token), a.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidVerification
		}
		return err
	}
	if !security.SecureCompare(code, vreq.Code) {
		return domain.ErrInvalidVerifyCode
	}
	return a.deps.TM.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := a.deps.Accounts.MarkEmailVerified(ctx, tx, vreq.AccountID); err != nil {
			return err
		}
		return a.deps.Verifications.Delete(ctx, tx, vreq.ID)
	})
}

func (a *authUC) Account(ctx context.Context, accountID string) (*model.Account, error) {
	return a.deps.Accounts.FindByID(ctx, repository.NoTX, accountID)
}

func (a *authUC) newVerification(accountID string) (*model.VerificationRequest, string, error) {
	token, err := security.NewVerificationToken()
	if err != nil {
		return nil, "", err
	}
	code, err := security.NewVerificationCode()
	if err != nil {
		return nil, "", err
	}
	return &model.VerificationRequest{
		ID:        model.NewID(),
		AccountID: accountID,
		TokenHash: security.HashToken(token),
		Code:      code,
		ExpiresAt: a.now().UTC().Add(a.verificationTTL),
	}, token, nil
}

// sendVerification never fails the caller; the user can always ask for a new code.
func (a *authUC) sendVerification(ctx context.Context, to, code string) {
	html, err := a.deps.Templates.Render(verificationTemplate, map[string]string{"Code": code})
	if err != nil {
		a.log.Error().Err(err).Msg("render verification mail")
		return
	}
	if err := a.deps.Mailer.Send(ctx, adapter.Mail{To: to, Subject: verificationSubject, HTML: html}); err != nil {
		a.log.Error().Err(err).Str("to", logging.Redact(to, false)).Msg("queue verification mail")
	}
}

// ---- Google ----

func (a *authUC) GoogleAuthURL(ctx context.Context) (string, error) {
	if a.deps.Google == nil {
		return "", domain.ErrGoogleSignInDisabled
	}
	nonce := model.NewID()
	if err := a.deps.States.Put(ctx, nonce); err != nil {
		return "", err
	}
	plain := strings.Join([]string{googleStatePrefix, strconv.FormatInt(a.now().Unix(), 10), nonce}, ":")
	state, err := a.deps.Cipher.Encrypt(plain)
	if err != nil {
		return "", err
	}
	return a.deps.Google.AuthCodeURL(state), nil
}

func (a *authUC) GoogleCallback(ctx context.Context, state, code, ip string) (*LoginResult, error) {
	defer logging.TraceDuration(a.log, "AuthUC.GoogleCallback")()

	if a.deps.Google == nil {
		return nil, domain.ErrGoogleSignInDisabled
	}
	if err := a.checkState(ctx, state); err != nil {
		return nil, err
	}
	ident, err := a.deps.Google.Exchange(ctx, code)
	if err != nil {
		a.log.Warn().Err(err).Msg("google code exchange failed")
		return nil, domain.ErrInvalidGoogleToken
	}
	return a.googleSignIn(ctx, ident, ip)
}

func (a *authUC) GoogleToken(ctx context.Context, idToken, ip string) (*LoginResult, error) {
	defer logging.TraceDuration(a.log, "AuthUC.GoogleToken")()

	if a.deps.Google == nil {
		return nil, domain.ErrGoogleSignInDisabled
	}
	ident, err := a.deps.Google.VerifyIDToken(ctx, idToken)
	if err != nil {
		a.log.Warn().Err(err).Msg("google id token rejected")
		return nil, domain.ErrInvalidGoogleToken
	}
	return a.googleSignIn(ctx, ident, ip)
}

func (a *authUC) checkState(ctx context.Context, state string) error {
	plain, err := a.deps.Cipher.Decrypt(state)
	if err != nil {
		return domain.ErrUnauthorized
	}
	parts := strings.SplitN(plain, ":", 3)
	if len(parts) != 3 || parts[0] != googleStatePrefix {
		return domain.ErrUnauthorized
	}
	issued, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || a.now().Sub(time.Unix(issued, 0)) > a.stateTTL {
		return domain.ErrUnauthorized
	}
	ok, err := a.deps.States.Consume(ctx, parts[2])
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnauthorized
	}
	return nil
}

func (a *authUC) googleSignIn(ctx context.Context, ident adapter.GoogleIdentity, ip string) (*LoginResult, error) {
	if ident.Email == "" {
		return nil, domain.ErrInvalidGoogleToken
	}
	name := model.Name{GivenName: ident.GivenName, FamilyName: ident.FamilyName}
	acc, err := a.deps.Accounts.UpsertGoogle(ctx, repository.NoTX, model.NormalizeEmail(ident.Email), ident.Subject, name)
	if err != nil {
		return nil, err
	}
	return a.signIn(ctx, acc, ip)
}
