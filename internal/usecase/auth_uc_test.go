//go:build !integration

package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
	"github.com/TSHgroup/hh25-backend/internal/infra/security"
)

type authFixture struct {
	uc       *authUC
	accounts *memAccounts
	verifs   *memVerifications
	mailer   *fakeMailer
	states   *memStates
	google   *fakeGoogle
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		accounts: newMemAccounts(),
		verifs:   newMemVerifications(),
		mailer:   &fakeMailer{},
		states:   &memStates{},
		google:   &fakeGoogle{},
	}
	f.uc = NewAuthUseCase(AuthDeps{
		Accounts:      f.accounts,
		Verifications: f.verifs,
		TM:            fakeTM{},
		Tokens:        &fakeTokens{},
		Hasher:        security.NewPasswordHasher(4),
		Mailer:        f.mailer,
		Templates:     fakeTemplates{},
		Locker:        &fakeLocker{},
		Google:        f.google,
		States:        f.states,
		Cipher:        plainCipher{},
	}, 5*time.Minute, testLogger())
	return f
}

func registerInput() RegisterInput {
	return RegisterInput{
		Email:    "Ada@Example.com ",
		Password: "Secr3t!pass",
		Name:     model.Name{GivenName: "Ada", FamilyName: "Lovelace"},
		IP:       "10.0.0.1",
	}
}

func TestAuth_RegisterAndDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	res, err := f.uc.Register(ctx, registerInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" || len(res.VerificationToken) != 64 {
		t.Fatalf("unexpected result %+v", res)
	}
	acc, err := f.accounts.FindByEmail(ctx, nil, "ada@example.com")
	if err != nil {
		t.Fatalf("account not stored: %v", err)
	}
	if len(acc.IPs) != 1 || acc.IPs[0] != "10.0.0.1" {
		t.Fatalf("ips = %v", acc.IPs)
	}
	if len(f.mailer.sent) != 1 || f.mailer.sent[0].To != "ada@example.com" {
		t.Fatalf("mail not queued: %+v", f.mailer.sent)
	}
	vs := f.verifs.forAccount(acc.ID)
	if len(vs) != 1 || !strings.HasSuffix(f.mailer.sent[0].HTML, vs[0].Code) {
		t.Fatalf("verification mismatch: %+v / %+v", vs, f.mailer.sent)
	}

	second := registerInput()
	second.Password = "0ther!Passw"
	second.Name = model.Name{GivenName: "Eve"}
	if _, err := f.uc.Register(ctx, second); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("duplicate err = %v", err)
	}
	after, _ := f.accounts.FindByEmail(ctx, nil, "ada@example.com")
	if after.ID != acc.ID || after.Name != acc.Name || after.PasswordHash != acc.PasswordHash {
		t.Fatal("existing account was modified by duplicate registration")
	}
	if len(f.accounts.byID) != 1 {
		t.Fatalf("accounts = %d", len(f.accounts.byID))
	}
}

func TestAuth_Login(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	if _, err := f.uc.Register(ctx, registerInput()); err != nil {
		t.Fatal(err)
	}

	if _, err := f.uc.Login(ctx, "ada@example.com", "wrong", "1.1.1.1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, err := f.uc.Login(ctx, "nobody@example.com", "x", ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v", err)
	}
	res, err := f.uc.Login(ctx, "ADA@example.com", "Secr3t!pass", "1.1.1.1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.EmailVerified {
		t.Fatal("fresh account reported verified")
	}
	acc, _ := f.accounts.FindByEmail(ctx, nil, "ada@example.com")
	if len(acc.IPs) != 2 {
		t.Fatalf("login ip not recorded: %v", acc.IPs)
	}
}

func TestAuth_RefreshIsSingleUse(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	reg, err := f.uc.Register(ctx, registerInput())
	if err != nil {
		t.Fatal(err)
	}

	pair, err := f.uc.Refresh(ctx, reg.RefreshToken)
	if err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if pair.RefreshToken == reg.RefreshToken {
		t.Fatal("refresh token not rotated")
	}
	if _, err := f.uc.Refresh(ctx, reg.RefreshToken); !errors.Is(err, domain.ErrRefreshTokenRevoked) {
		t.Fatalf("reuse err = %v", err)
	}
	if _, err := f.uc.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("rotated token rejected: %v", err)
	}
	if _, err := f.uc.Refresh(ctx, "garbage"); !errors.Is(err, domain.ErrInvalidRefreshToken) {
		t.Fatalf("garbage err = %v", err)
	}
	if _, err := f.uc.Refresh(ctx, "refresh:ghost:1"); !errors.Is(err, domain.ErrInvalidRefreshToken) {
		t.Fatalf("unknown account err = %v", err)
	}
}

func TestAuth_EmailVerification(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	reg, err := f.uc.Register(ctx, registerInput())
	if err != nil {
		t.Fatal(err)
	}
	acc, _ := f.accounts.FindByEmail(ctx, nil, "ada@example.com")

	token, err := f.uc.ResendVerification(ctx, acc.ID)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if err := f.uc.ConfirmVerification(ctx, reg.VerificationToken, "000000"); !errors.Is(err, domain.ErrInvalidVerification) {
		t.Fatalf("superseded token err = %v", err)
	}
	vs := f.verifs.forAccount(acc.ID)
	if len(vs) != 1 {
		t.Fatalf("pending verifications = %d", len(vs))
	}
	if err := f.uc.ConfirmVerification(ctx, token, "abcdef"); !errors.Is(err, domain.ErrInvalidVerifyCode) {
		t.Fatalf("bad code err = %v", err)
	}
	if err := f.uc.ConfirmVerification(ctx, token, vs[0].Code); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	acc, _ = f.accounts.FindByID(ctx, nil, acc.ID)
	if !acc.EmailVerified || len(f.verifs.forAccount(acc.ID)) != 0 {
		t.Fatal("account not verified or request not deleted")
	}
	if _, err := f.uc.ResendVerification(ctx, acc.ID); !errors.Is(err, domain.ErrAlreadyVerified) {
		t.Fatalf("resend after verify err = %v", err)
	}
}

func TestAuth_VerificationExpires(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	reg, err := f.uc.Register(ctx, registerInput())
	if err != nil {
		t.Fatal(err)
	}
	acc, _ := f.accounts.FindByEmail(ctx, nil, "ada@example.com")
	code := f.verifs.forAccount(acc.ID)[0].Code

	f.uc.now = func() time.Time { return time.Now().Add(5*time.Minute + time.Second) }
	if err := f.uc.ConfirmVerification(ctx, reg.VerificationToken, code); !errors.Is(err, domain.ErrInvalidVerification) {
		t.Fatalf("expired err = %v", err)
	}
}

func TestAuth_GoogleFlow(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.google.ident = adapter.GoogleIdentity{Subject: "g-1", Email: "G@Example.com", GivenName: "Grace"}

	u, err := f.uc.GoogleAuthURL(ctx)
	if err != nil {
		t.Fatalf("GoogleAuthURL: %v", err)
	}
	state := u[strings.Index(u, "state=")+len("state="):]

	res, err := f.uc.GoogleCallback(ctx, state, "code-1", "2.2.2.2")
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if res.AccessToken == "" || f.google.lastCode != "code-1" {
		t.Fatalf("unexpected callback result %+v", res)
	}
	acc, err := f.accounts.FindByEmail(ctx, nil, "g@example.com")
	if err != nil || acc.GoogleID != "g-1" {
		t.Fatalf("google account not upserted: %+v %v", acc, err)
	}

	if _, err := f.uc.GoogleCallback(ctx, state, "code-2", ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("replayed state err = %v", err)
	}
	forged := reverse("google:" + "0" + ":nonce")
	if _, err := f.uc.GoogleCallback(ctx, forged, "code-3", ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("stale state err = %v", err)
	}

	if _, err := f.uc.GoogleToken(ctx, "id-token", ""); err != nil {
		t.Fatalf("id token sign-in: %v", err)
	}
	if len(f.accounts.byID) != 1 {
		t.Fatalf("second google sign-in created another account")
	}

	f.google.err = errors.New("bad audience")
	if _, err := f.uc.GoogleToken(ctx, "id-token", ""); !errors.Is(err, domain.ErrInvalidGoogleToken) {
		t.Fatalf("rejected token err = %v", err)
	}
}

func TestAuth_GoogleDisabled(t *testing.T) {
	f := newAuthFixture(t)
	f.uc.deps.Google = nil
	if _, err := f.uc.GoogleAuthURL(context.Background()); !errors.Is(err, domain.ErrGoogleSignInDisabled) {
		t.Fatalf("err = %v", err)
	}
	if _, err := f.uc.GoogleToken(context.Background(), "x", ""); !errors.Is(err, domain.ErrGoogleSignInDisabled) {
		t.Fatalf("err = %v", err)
	}
}
