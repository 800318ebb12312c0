// Package tickets signs and verifies the codes printed on passenger tickets.
// A code is a compact HS256 JWT, short enough to render as a QR code, and
// is signed with a secret separate from the one used for access tokens.
package tickets

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer     = "bus_ticketing"
	dateLayout = "2006-01-02"
	// Codes stay valid until two days after the travel date starts.
	validity = 48 * time.Hour
)

// ErrInvalidTicket is returned for codes that fail signature, format or
// expiry checks.
var ErrInvalidTicket = errors.New("invalid ticket")

// Ticket is the booking data carried by a code.
type Ticket struct {
	BookingRef    string `json:"ref"`
	RouteID       uint   `json:"route"`
	OperatorID    uint   `json:"op"`
	TravelDate    string `json:"date"`
	BoardingStop  string `json:"from"`
	AlightingStop string `json:"to"`
	Seats         int    `json:"seats"`
}

// Claims is the signed payload; RegisteredClaims.ID is the ticket id.
type Claims struct {
	Ticket
	jwt.RegisteredClaims
}

// Signer issues and verifies ticket codes.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Issue signs t and returns the code with its fresh ticket id.
func (s *Signer) Issue(t Ticket) (code, ticketID string, err error) {
	day, err := time.Parse(dateLayout, t.TravelDate)
	if err != nil {
		return "", "", fmt.Errorf("travel date %q: %w", t.TravelDate, err)
	}

	ticketID = uuid.NewString()
	claims := Claims{
		Ticket: t,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ticketID,
			Issuer:    issuer,
			Subject:   t.BookingRef,
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(day.Add(validity)),
		},
	}
	code, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	return code, ticketID, nil
}

// Verify checks a code and returns its claims.
func (s *Signer) Verify(code string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(code, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	if claims.ID == "" || claims.BookingRef == "" {
		return nil, fmt.Errorf("%w: missing booking reference", ErrInvalidTicket)
	}
	return claims, nil
}
