package security

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cwrk-planet/dealer-chat/internal/domain"

	"github.com/golang-jwt/jwt"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidIssuer   = errors.New("invalid issuer")
	ErrInvalidAudience = errors.New("invalid audience")
	ErrTokenExpired    = errors.New("token expired or not valid yet")
	ErrInvalidSubject  = errors.New("invalid subject")
	ErrNoSigningKey    = errors.New("signing key not configured")
)

type AccessClaims struct {
	jwt.StandardClaims
}

// JWTVerifier проверяет access-токены платформы (RS256).
// Приватный ключ нужен только для выпуска токенов в dev и тестах.
type JWTVerifier struct {
	public    *rsa.PublicKey
	private   *rsa.PrivateKey
	issuer    string
	audience  string
	clockSkew time.Duration
	now       func() time.Time
}

type VerifierOption func(*JWTVerifier)

func WithSigningKey(k *rsa.PrivateKey) VerifierOption {
	return func(v *JWTVerifier) { v.private = k }
}

func WithClock(now func() time.Time) VerifierOption {
	return func(v *JWTVerifier) { v.now = now }
}

func NewJWTVerifier(public *rsa.PublicKey, issuer, audience string, clockSkew time.Duration, opts ...VerifierOption) *JWTVerifier {
	v := &JWTVerifier{
		public:    public,
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
		now:       time.Now,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Verify разбирает токен и возвращает id пользователя из sub.
func (v *JWTVerifier) Verify(tokenStr string) (domain.UserID, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok || t.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, ErrInvalidToken
		}
		return v.public, nil
	})
	if err != nil {
		// exp/nbf проверяем сами, с допуском clockSkew
		var ve *jwt.ValidationError
		if !errors.As(err, &ve) || ve.Errors&^(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet|jwt.ValidationErrorIssuedAt) != 0 {
			return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	} else if !token.Valid {
		return 0, ErrInvalidToken
	}

	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return 0, ErrInvalidIssuer
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return 0, ErrInvalidAudience
	}

	now := v.now()
	nbf := time.Unix(claims.NotBefore, 0).Add(-v.clockSkew)
	exp := time.Unix(claims.ExpiresAt, 0).Add(v.clockSkew)
	if claims.ExpiresAt == 0 || now.Before(nbf) || now.After(exp) {
		return 0, ErrTokenExpired
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidSubject
	}
	return domain.UserID(id), nil
}

// Sign выпускает токен с sub=userID. Требует WithSigningKey.
func (v *JWTVerifier) Sign(userID domain.UserID, ttl time.Duration) (string, error) {
	if v.private == nil {
		return "", ErrNoSigningKey
	}
	now := v.now()
	claims := AccessClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   strconv.FormatInt(int64(userID), 10),
			Issuer:    v.issuer,
			Audience:  v.audience,
			IssuedAt:  now.Unix(),
			NotBefore: now.Add(-v.clockSkew).Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(v.private)
}
