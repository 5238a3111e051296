package chat

import (
	"github.com/pkg/errors"

	"ChatRelay/tools/security"
)

// JWTVerifier implements TokenVerifier over the signed bearer tokens
// issued at login.
type JWTVerifier struct {
	Opts security.Options
}

func NewJWTVerifier(opts security.Options) *JWTVerifier {
	return &JWTVerifier{Opts: opts}
}

func (v *JWTVerifier) Verify(token string) (string, error) {
	claims, err := security.Verify(v.Opts, token)
	if err != nil {
		return "", err
	}
	uid := claims.UserID()
	if uid == "" {
		return "", errors.New("token has no subject")
	}
	return uid, nil
}
