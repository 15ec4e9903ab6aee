package firebase

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/noah-isme/tuitron-api/pkg/breaker"
)

const (
	issuerPrefix = "https://securetoken.google.com/"
	keysCacheKey = "identity:signing-certs"
)

var (
	// ErrInvalidToken is returned for malformed, expired or foreign ID tokens.
	ErrInvalidToken = errors.New("firebase: invalid id token")
	// ErrKeysUnavailable is returned when the signing certificates cannot be fetched.
	ErrKeysUnavailable = errors.New("firebase: signing keys unavailable")
)

// Token holds the verified facts extracted from an ID token.
type Token struct {
	Subject       string
	Email         string
	EmailVerified bool
	Picture       string
}

// KeyCache stores the signing certificate set between fetches.
type KeyCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Config configures the verifier.
type Config struct {
	ProjectID    string
	CertsURL     string
	Timeout      time.Duration
	KeysCacheTTL time.Duration
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// Verifier validates Firebase Authentication ID tokens against Google's published certificates.
type Verifier struct {
	cfg    Config
	client *http.Client
	cache  KeyCache
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
	now    func() time.Time
}

// NewVerifier builds a Verifier. cache may be nil, in which case certificates are fetched per call.
func NewVerifier(cfg Config, cache KeyCache, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Verifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  cache,
		cb:     breaker.New("identity-certs", 30*time.Second, logger),
		logger: logger,
		now:    time.Now,
	}
}

// Verify checks the signature and standard claims of raw and returns its identity facts.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Token, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	keys, err := v.publicKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeysUnavailable, err)
	}

	claims := &idTokenClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		key, ok := keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(issuerPrefix+v.cfg.ProjectID),
		jwt.WithAudience(v.cfg.ProjectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: missing subject or email", ErrInvalidToken)
	}

	return &Token{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Picture:       claims.Picture,
	}, nil
}

func (v *Verifier) publicKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	var certs map[string]string
	hit, err := v.cacheGet(ctx, &certs)
	if err != nil {
		v.logger.Warn("identity key cache read failed", zap.Error(err))
	}
	if !hit {
		certs, err = v.fetchCerts(ctx)
		if err != nil {
			return nil, err
		}
		if v.cache != nil {
			if err := v.cache.Set(ctx, keysCacheKey, certs, v.cfg.KeysCacheTTL); err != nil {
				v.logger.Warn("identity key cache write failed", zap.Error(err))
			}
		}
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pem := range certs {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			v.logger.Warn("skipping unparsable signing certificate", zap.String("kid", kid), zap.Error(err))
			continue
		}
		keys[kid] = key
	}
	if len(keys) == 0 {
		return nil, errors.New("no usable signing certificates")
	}
	return keys, nil
}

func (v *Verifier) cacheGet(ctx context.Context, dest *map[string]string) (bool, error) {
	if v.cache == nil {
		return false, nil
	}
	hit, err := v.cache.Get(ctx, keysCacheKey, dest)
	if err != nil || !hit || len(*dest) == 0 {
		return false, err
	}
	return true, nil
}

func (v *Verifier) fetchCerts(ctx context.Context) (map[string]string, error) {
	result, err := v.cb.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.CertsURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := v.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch signing certificates: status %s", resp.Status)
		}

		var certs map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
			return nil, fmt.Errorf("decode signing certificates: %w", err)
		}
		return certs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]string), nil
}
