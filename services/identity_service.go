package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/freelancehub/marketplace-api/metrics"
	"github.com/freelancehub/marketplace-api/models"
	"github.com/freelancehub/marketplace-api/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

var e164Pattern = regexp.MustCompile(`^\+[1-9][0-9]{1,14}$`)

// Credential is one of PasswordCredential, PhoneCredential or OAuthCredential
type Credential interface {
	kind() string
}

// PasswordCredential authenticates a username/password account
type PasswordCredential struct {
	Username string
	Password string
}

// PhoneCredential completes the SMS code flow. Name is used only when the phone is new.
type PhoneCredential struct {
	Phone string
	Code  string
	Name  string
}

// OAuthCredential carries a Google ID token
type OAuthCredential struct {
	Token string
}

func (PasswordCredential) kind() string { return "password" }
func (PhoneCredential) kind() string    { return "phone" }
func (OAuthCredential) kind() string    { return "oauth" }

// IdentityResolver turns any credential into a User
type IdentityResolver interface {
	Resolve(ctx context.Context, cred Credential) (*models.User, error)
}

// IdentityService implements every sign-in flow
type IdentityService struct {
	db           *gorm.DB
	codes        CodeStore
	sms          SMSSender
	verifier     TokenVerifier
	phoneLimiter *utils.RateLimiter
}

// IdentityOptions wires the collaborators of IdentityService
type IdentityOptions struct {
	Codes        CodeStore
	SMS          SMSSender
	Verifier     TokenVerifier
	PhoneLimiter *utils.RateLimiter
}

var identityServiceInstance *IdentityService

// NewIdentityService creates an identity service. Missing options get in-process defaults.
func NewIdentityService(db *gorm.DB, opts IdentityOptions) *IdentityService {
	if opts.Codes == nil {
		opts.Codes = NewMemoryCodeStore()
	}
	if opts.SMS == nil {
		opts.SMS = NewLogSMSSender(nil)
	}
	if opts.PhoneLimiter == nil {
		opts.PhoneLimiter = utils.NewRateLimiterEvery(30*time.Second, 3)
	}
	return &IdentityService{
		db:           db,
		codes:        opts.Codes,
		sms:          opts.SMS,
		verifier:     opts.Verifier,
		phoneLimiter: opts.PhoneLimiter,
	}
}

// InitIdentityService creates the shared identity service instance
func InitIdentityService(db *gorm.DB, opts IdentityOptions) *IdentityService {
	identityServiceInstance = NewIdentityService(db, opts)
	return identityServiceInstance
}

// GetIdentityService returns the initialized identity service instance
func GetIdentityService() *IdentityService {
	return identityServiceInstance
}

// SetIdentityService sets the identity service instance (primarily for testing)
func SetIdentityService(service *IdentityService) {
	identityServiceInstance = service
}

// Resolve authenticates cred and returns the matching user, creating phone and
// OAuth users on first sight.
func (s *IdentityService) Resolve(ctx context.Context, cred Credential) (*models.User, error) {
	var (
		user *models.User
		err  error
	)

	switch c := cred.(type) {
	case PasswordCredential:
		user, err = s.resolvePassword(ctx, c)
	case PhoneCredential:
		user, err = s.resolvePhone(ctx, c)
	case OAuthCredential:
		user, err = s.resolveOAuth(ctx, c)
	default:
		return nil, ErrValidation.WithMessage("Unsupported credential")
	}

	metrics.RecordIdentityResolution(cred.kind(), err == nil)
	return user, err
}

// Register creates a username/password account
func (s *IdentityService) Register(ctx context.Context, username, password, name string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrValidation.WithMessage("Username and password are required")
	}
	if len(password) < minPasswordLength {
		return nil, ErrValidation.WithMessage(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = username
	}

	user := &models.User{
		Username:     &username,
		Name:         name,
		PasswordHash: string(hash),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrConflict.WithMessage("Username already taken")
		}
		return tx.Create(user).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrConflict.WithMessage("Username already taken")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SendCode issues a fresh verification code for phone and returns it so callers
// outside production can echo it back.
func (s *IdentityService) SendCode(ctx context.Context, phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if !e164Pattern.MatchString(phone) {
		return "", ErrValidation.WithMessage("Phone number must be in E.164 format")
	}
	if !s.phoneLimiter.Allow(phone) {
		return "", ErrRateLimited.WithMessage("Too many codes requested for this phone")
	}

	code, err := generateCode()
	if err != nil {
		return "", err
	}
	if err := s.codes.Put(ctx, phone, code, VerificationCodeTTL); err != nil {
		return "", fmt.Errorf("failed to store verification code: %w", err)
	}
	if err := s.sms.Send(ctx, phone, "Your verification code: "+code); err != nil {
		return "", fmt.Errorf("failed to send verification code: %w", err)
	}
	return code, nil
}

func (s *IdentityService) resolvePassword(ctx context.Context, c PasswordCredential) (*models.User, error) {
	if strings.TrimSpace(c.Username) == "" || c.Password == "" {
		return nil, ErrValidation.WithMessage("Username and password are required")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(c.Username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *IdentityService) resolvePhone(ctx context.Context, c PhoneCredential) (*models.User, error) {
	phone := strings.TrimSpace(c.Phone)
	if phone == "" || c.Code == "" {
		return nil, ErrValidation.WithMessage("Phone and code are required")
	}

	ok, err := s.codes.Consume(ctx, phone, c.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to check verification code: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCode
	}

	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = "User"
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("phone = ?", phone).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		user = models.User{Phone: &phone, Name: name}
		_, err = createOrLoad(tx, &user, "phone = ?", phone)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *IdentityService) resolveOAuth(ctx context.Context, c OAuthCredential) (*models.User, error) {
	if strings.TrimSpace(c.Token) == "" {
		return nil, ErrValidation.WithMessage("Token is required")
	}
	if s.verifier == nil {
		return nil, ErrUpstream.WithMessage("OAuth sign-in is not configured")
	}

	info, err := s.verifier.VerifyIDToken(ctx, c.Token)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("google_sub = ?", info.Sub).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sub := info.Sub
			user = models.User{
				GoogleSub: &sub,
				Email:     info.Email,
				Name:      oauthDisplayName(info),
				AvatarURL: info.Picture,
			}
			_, err := createOrLoad(tx, &user, "google_sub = ?", sub)
			return err
		}
		if err != nil {
			return err
		}
		user.Email = info.Email
		user.Name = oauthDisplayName(info)
		user.AvatarURL = info.Picture
		return tx.Model(&user).Select("email", "name", "avatar_url").Updates(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func oauthDisplayName(info *GoogleTokenInfo) string {
	if info.Name != "" {
		return info.Name
	}
	if info.Email != "" {
		return info.Email
	}
	return "User"
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
