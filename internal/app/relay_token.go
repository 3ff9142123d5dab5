package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/jonboulle/clockwork"
)

var ErrInvalidRelayToken = errors.New("invalid relay token")

// DefaultRelayTokenTTL is how long an issued origin token stays valid.
const DefaultRelayTokenTTL = time.Hour

// RelayOrigin identifies who submitted an intent.
type RelayOrigin struct {
	UserID    string
	SessionID string
}

// RelayTokenService signs and checks the origin tokens observers attach to
// intents sent outside an authenticated socket.
type RelayTokenService struct {
	secret string
	issuer string
	ttl    time.Duration
	clock  clockwork.Clock
}

func NewRelayTokenService(secret, issuer string, clock clockwork.Clock) *RelayTokenService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RelayTokenService{secret: secret, issuer: issuer, ttl: DefaultRelayTokenTTL, clock: clock}
}

// Issue returns a token binding userID to sessionID.
func (s *RelayTokenService) Issue(userID, sessionID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("relay token service is nil")
	}
	if userID == "" || sessionID == "" {
		return "", fmt.Errorf("user and session are required")
	}
	if s.secret == "" || s.issuer == "" {
		return "", fmt.Errorf("relay token config is incomplete")
	}

	now := s.clock.Now()
	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": userID,
		"sid": sessionID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// Verify checks signature, issuer and expiry and returns the origin.
func (s *RelayTokenService) Verify(tokenString string) (RelayOrigin, error) {
	if s == nil || s.secret == "" {
		return RelayOrigin{}, fmt.Errorf("relay token config is incomplete")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return RelayOrigin{}, fmt.Errorf("%w: %v", ErrInvalidRelayToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return RelayOrigin{}, ErrInvalidRelayToken
	}
	if iss, _ := claims["iss"].(string); iss != s.issuer {
		return RelayOrigin{}, fmt.Errorf("%w: issuer %q", ErrInvalidRelayToken, iss)
	}
	// jwt-go validates exp against wall time; check it against our clock too.
	if exp, ok := claims["exp"].(float64); !ok || s.clock.Now().Unix() > int64(exp) {
		return RelayOrigin{}, fmt.Errorf("%w: expired", ErrInvalidRelayToken)
	}
	sub, _ := claims["sub"].(string)
	sid, _ := claims["sid"].(string)
	if sub == "" || sid == "" {
		return RelayOrigin{}, ErrInvalidRelayToken
	}
	return RelayOrigin{UserID: sub, SessionID: sid}, nil
}
