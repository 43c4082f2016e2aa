package http

import (
	"errors"
	"time"

	"github.com/saltoplay/platform/internal/oauth/domain"
	"github.com/saltoplay/platform/internal/oauth/service"
	"github.com/saltoplay/platform/pkg/jwtx"
)

const DefaultConsentTTL = 10 * time.Minute

var errTicketSubject = errors.New("consent ticket issued to another user")

// ConsentTickets signs the validated authorization request into the consent
// form, so the approval POST cannot be forged by another site or altered
// by the user.
type ConsentTickets struct {
	signer   *jwtx.Signer
	verifier *jwtx.Verifier
	issuer   string
	ttl      time.Duration
}

// NewConsentTickets derives its own key from secret.
func NewConsentTickets(secret []byte, issuer string, ttl time.Duration) (*ConsentTickets, error) {
	key := jwtx.DeriveKey(secret, "consent")

	signer, err := jwtx.NewSigner(key)
	if err != nil {
		return nil, err
	}
	verifier, err := jwtx.NewVerifier(key, jwtx.VerifyOptions{Issuer: issuer, Leeway: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultConsentTTL
	}

	return &ConsentTickets{signer: signer, verifier: verifier, issuer: issuer, ttl: ttl}, nil
}

// Issue seals a previewed request for the user who is looking at it.
func (c *ConsentTickets) Issue(p *service.AuthorizePreview) (string, error) {
	claims := jwtx.NewConsentClaims(c.issuer, p.User.ID, p.Application.ID, c.ttl, time.Now())
	claims.RedirectURI = p.RedirectURI
	claims.Scope = domain.JoinScopes(p.Scopes)
	claims.State = p.State
	claims.CodeChallenge = p.CodeChallenge
	claims.CodeChallengeMethod = p.CodeChallengeMethod

	return c.signer.Sign(claims)
}

// Open verifies ticket for userID and returns the request it carries.
func (c *ConsentTickets) Open(ticket, userID string) (service.AuthorizeRequest, error) {
	var claims jwtx.ConsentClaims
	if err := c.verifier.Verify(ticket, &claims, ""); err != nil {
		return service.AuthorizeRequest{}, err
	}
	if claims.Subject != userID {
		return service.AuthorizeRequest{}, errTicketSubject
	}
	if len(claims.Audience) != 1 {
		return service.AuthorizeRequest{}, jwtx.ErrAudience
	}

	return service.AuthorizeRequest{
		ResponseType:        "code",
		ClientID:            claims.Audience[0],
		RedirectURI:         claims.RedirectURI,
		Scopes:              domain.ParseScopes(claims.Scope),
		State:               claims.State,
		CodeChallenge:       claims.CodeChallenge,
		CodeChallengeMethod: claims.CodeChallengeMethod,
	}, nil
}
