package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"devlinks/internal/logging"
	"devlinks/internal/metrics"
	"devlinks/internal/models"
	"devlinks/internal/repositories"
	"devlinks/internal/sessions"
	"devlinks/internal/storage"
)

// AvatarVariantDark selects the avatar slot; every other variant selects avatarLight.
const AvatarVariantDark = "dark"

// Credentials is the body of register and login requests.
type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"` // bcrypt ignores input past 72 bytes
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token   string               `json:"token"`
	Account models.PublicAccount `json:"user"`
}

// AvatarUpload is an uploaded image as received by the boundary.
type AvatarUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AvatarResult is returned by UploadAvatar.
type AvatarResult struct {
	URL     string               `json:"url"`
	Account models.PublicAccount `json:"user"`
}

// AccountService handles registration, authentication and profile changes.
// It is the only component talking to the account store and the session store.
type AccountService struct {
	accounts repositories.AccountRepository
	sessions sessions.Store
	handles  *HandleIndex
	blobs    storage.BlobStore
	events   EventPublisher
	validate *validator.Validate
	logger   logging.Logger
	metrics  *metrics.Metrics
	hashCost int
}

// Option configures an AccountService.
type Option func(*AccountService)

// WithBlobStore sets where uploaded avatars are stored.
func WithBlobStore(b storage.BlobStore) Option {
	return func(s *AccountService) { s.blobs = b }
}

// WithEventPublisher enables account events.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *AccountService) { s.events = p }
}

// WithLogger sets the logger; the default discards every record.
func WithLogger(l logging.Logger) Option {
	return func(s *AccountService) { s.logger = l }
}

// WithMetrics enables operation counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *AccountService) { s.metrics = m }
}

// WithHashCost overrides the bcrypt cost.
func WithHashCost(cost int) Option {
	return func(s *AccountService) { s.hashCost = cost }
}

// NewAccountService creates a new AccountService.
func NewAccountService(accounts repositories.AccountRepository, sessionStore sessions.Store, opts ...Option) *AccountService {
	s := &AccountService{
		accounts: accounts,
		sessions: sessionStore,
		validate: validator.New(),
		logger:   logging.Discard(),
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handles = NewHandleIndex(accounts, s.metrics)
	return s
}

// Register creates an account seeded with placeholder links and socials
// and opens a session for it.
func (s *AccountService) Register(ctx context.Context, creds Credentials) (result *AuthResult, err error) {
	defer func() { s.metrics.ObserveOperation("register", err) }()

	if err := s.validate.Struct(creds); err != nil {
		return nil, fromValidator(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.hashCost)
	if err != nil {
		return nil, storageError("hash password", err)
	}

	account := &models.Account{
		Email:        creds.Email,
		PasswordHash: string(hash),
	}
	seedDefaults(account)

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repositories.ErrAccountExists) {
			return nil, conflictError("email already registered")
		}
		s.logger.Error(ctx, "failed to create account", "email", creds.Email, "error", err)
		return nil, storageError("create account", err)
	}

	token, err := s.sessions.Issue(ctx, account.Email)
	if err != nil {
		s.logger.Error(ctx, "failed to issue session", "email", account.Email, "error", err)
		return nil, storageError("issue session", err)
	}

	s.logger.Info(ctx, "account registered", "email", account.Email)
	s.publish(ctx, EventAccountRegistered, account)
	return &AuthResult{Token: token, Account: account.Public()}, nil
}

// Login checks the credentials and opens a new session. Sessions opened
// earlier for the same account stay valid until they expire.
func (s *AccountService) Login(ctx context.Context, creds Credentials) (result *AuthResult, err error) {
	defer func() { s.metrics.ObserveOperation("login", err) }()

	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return nil, validationError("email and password are required")
	}

	account, err := s.accounts.Get(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return nil, unauthorizedError("invalid credentials")
		}
		s.logger.Error(ctx, "failed to load account", "email", creds.Email, "error", err)
		return nil, storageError("load account", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, unauthorizedError("invalid credentials")
	}

	token, err := s.sessions.Issue(ctx, account.Email)
	if err != nil {
		s.logger.Error(ctx, "failed to issue session", "email", account.Email, "error", err)
		return nil, storageError("issue session", err)
	}
	return &AuthResult{Token: token, Account: account.Public()}, nil
}

// GetProfile returns the account owning token.
func (s *AccountService) GetProfile(ctx context.Context, token string) (profile *models.PublicAccount, err error) {
	defer func() { s.metrics.ObserveOperation("get_profile", err) }()

	email, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.Get(ctx, email)
	if err != nil {
		return nil, s.accountError(ctx, "load account", email, err)
	}
	public := account.Public()
	return &public, nil
}

// PatchProfile merges the present fields of patch into the account owning
// token. A handle change is checked against every other account and
// written while the handle index is locked.
func (s *AccountService) PatchProfile(ctx context.Context, token string, patch models.ProfilePatch) (profile *models.PublicAccount, err error) {
	defer func() { s.metrics.ObserveOperation("patch_profile", err) }()

	email, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(patch); err != nil {
		return nil, fromValidator(err)
	}

	if patch.Handle != nil {
		if strings.TrimSpace(*patch.Handle) == "" {
			return nil, validationError("handle must not be blank")
		}
		unlock := s.handles.Lock()
		defer unlock()
		if err := s.checkHandle(ctx, email, *patch.Handle); err != nil {
			return nil, err
		}
	}

	updated, err := s.accounts.Update(ctx, email, func(a *models.Account) error {
		patch.ApplyTo(a)
		return nil
	})
	if err != nil {
		return nil, s.accountError(ctx, "update account", email, err)
	}

	s.publish(ctx, EventAccountProfileUpdated, updated)
	public := updated.Public()
	return &public, nil
}

// AssignAvatar stores url in the avatar slot selected by variant. An empty
// variant means dark.
func (s *AccountService) AssignAvatar(ctx context.Context, token, variant, url string) (profile *models.PublicAccount, err error) {
	defer func() { s.metrics.ObserveOperation("assign_avatar", err) }()

	email, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	updated, err := s.setAvatar(ctx, email, variant, url)
	if err != nil {
		return nil, err
	}
	public := updated.Public()
	return &public, nil
}

// UploadAvatar stores the uploaded image and assigns its URL to the
// account. If the assignment fails after the upload the blob is left behind.
func (s *AccountService) UploadAvatar(ctx context.Context, token, variant string, upload AvatarUpload) (result *AvatarResult, err error) {
	defer func() { s.metrics.ObserveOperation("upload_avatar", err) }()

	email, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if upload.Body == nil {
		return nil, validationError("file is required")
	}
	if s.blobs == nil {
		return nil, storageError("store avatar", errors.New("no blob store configured"))
	}

	url, err := s.blobs.Put(ctx, storage.ObjectName(upload.Filename), upload.ContentType, upload.Body, upload.Size)
	if err != nil {
		s.logger.Error(ctx, "failed to store avatar", "email", email, "error", err)
		return nil, storageError("store avatar", err)
	}

	updated, err := s.setAvatar(ctx, email, variant, url)
	if err != nil {
		return nil, err
	}
	return &AvatarResult{URL: url, Account: updated.Public()}, nil
}

func (s *AccountService) setAvatar(ctx context.Context, email, variant, url string) (*models.Account, error) {
	updated, err := s.accounts.Update(ctx, email, func(a *models.Account) error {
		if variant == "" || variant == AvatarVariantDark {
			a.Avatar = &url
		} else {
			a.AvatarLight = &url
		}
		return nil
	})
	if err != nil {
		return nil, s.accountError(ctx, "update avatar", email, err)
	}
	s.publish(ctx, EventAccountAvatarUpdated, updated)
	return updated, nil
}

// checkHandle must run with the handle index locked.
func (s *AccountService) checkHandle(ctx context.Context, email, handle string) error {
	current, err := s.accounts.Get(ctx, email)
	if err != nil {
		return s.accountError(ctx, "load account", email, err)
	}
	if current.Handle == handle {
		return nil
	}
	taken, err := s.handles.IsTaken(ctx, handle, email)
	if err != nil {
		s.logger.Error(ctx, "failed to check handle", "handle", handle, "error", err)
		return storageError("check handle", err)
	}
	if taken {
		return conflictError("handle already in use")
	}
	return nil
}

func (s *AccountService) authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", unauthorizedError("missing token")
	}
	email, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			return "", unauthorizedError("invalid or expired token")
		}
		s.logger.Error(ctx, "failed to resolve session", "error", err)
		return "", storageError("resolve session", err)
	}
	return email, nil
}

// accountError maps a repository error on an existing account to a service error.
func (s *AccountService) accountError(ctx context.Context, op, email string, err error) error {
	if errors.Is(err, repositories.ErrAccountNotFound) {
		return notFoundError("account not found")
	}
	s.logger.Error(ctx, "failed to "+op, "email", email, "error", err)
	return storageError(op, err)
}

// seedDefaults fills placeholder data into a new account, once, at creation.
func seedDefaults(a *models.Account) {
	if a.Handle == "" {
		a.Handle = models.DefaultHandle
	}
	if a.Theme == "" {
		a.Theme = models.ThemeDark
	}
	if len(a.Links) == 0 {
		a.Links = []models.Link{
			{Label: "Instagram", URL: "https://instagram.com/usuario"},
			{Label: "GitHub", URL: "https://github.com/usuario"},
		}
	}
	if a.Socials.IsZero() {
		a.Socials = models.Socials{
			GitHub:    "https://github.com/usuario",
			Instagram: "https://instagram.com/usuario",
			LinkedIn:  "https://linkedin.com/in/usuario",
			Twitter:   "https://twitter.com/usuario",
		}
	}
}
