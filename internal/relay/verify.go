package relay

import (
	"errors"
	"fmt"

	"turnkeeper/internal/app"
)

var ErrOriginMismatch = errors.New("intent origin does not match its token")

// TokenVerifier accepts intents whose token was issued to their origin for their session.
type TokenVerifier struct {
	Tokens *app.RelayTokenService
}

func (v TokenVerifier) VerifyOrigin(in Intent) error {
	if in.Token == "" {
		return fmt.Errorf("%w: missing token", app.ErrInvalidRelayToken)
	}
	origin, err := v.Tokens.Verify(in.Token)
	if err != nil {
		return err
	}
	if origin.UserID != in.Origin || origin.SessionID != in.SessionID {
		return ErrOriginMismatch
	}
	return nil
}
