package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/google/uuid"
)

// Standing is one participant's final position.
type Standing struct {
	Participant string `json:"participant"`
	Cash        int64  `json:"cash"`
	ShareValue  int64  `json:"share_value"`
	Total       int64  `json:"total"`
	Rank        int    `json:"rank"`
	Bankrupt    bool   `json:"bankrupt,omitempty"`
}

// ResultClaims is the signed payload of a finished game.
type ResultClaims struct {
	Ruleset   string     `json:"ruleset"`
	Standings []Standing `json:"standings"`
	jwt.StandardClaims
}

// ResultSigner signs final standings so clients and other services can trust them.
type ResultSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewResultSigner builds a signer; an empty secret is rejected at Sign time.
func NewResultSigner(secret, issuer string, ttl time.Duration) *ResultSigner {
	return &ResultSigner{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Sign returns an HS256 token over the standings of gameID.
func (s *ResultSigner) Sign(gameID, ruleset string, standings []Standing) (string, error) {
	if s == nil {
		return "", errors.New("result signer is nil")
	}
	if len(s.secret) == 0 {
		return "", errors.New("result secret is not configured")
	}
	if gameID == "" {
		return "", errors.New("game id is required")
	}

	now := s.now()
	claims := ResultClaims{
		Ruleset:   ruleset,
		Standings: standings,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   gameID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses a token produced by Sign and checks its signature, issuer and expiry.
func (s *ResultSigner) Verify(tokenString string) (*ResultClaims, error) {
	claims := &ResultClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify result token: %w", err)
	}
	if !claims.VerifyIssuer(s.issuer, true) {
		return nil, fmt.Errorf("verify result token: issuer %q", claims.Issuer)
	}
	return claims, nil
}
