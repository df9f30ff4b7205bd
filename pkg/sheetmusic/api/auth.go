package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/tendant/sheetmusic/pkg/sheetmusic"
)

// Claims carrying the member identity
const (
	ClaimSubject = "sub"
	ClaimEmail   = "email"
)

// ErrMissingMember indicates the request carries no usable member claims
var ErrMissingMember = errors.New("missing member claims")

// NewAuth creates an HS256 token authority for secret
func NewAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// IssueToken signs a token identifying member, valid for ttl. A zero ttl
// issues a token without expiry.
func IssueToken(auth *jwtauth.JWTAuth, member sheetmusic.Member, ttl time.Duration) (string, error) {
	claims := map[string]interface{}{
		ClaimSubject: strconv.FormatInt(member.ID, 10),
		ClaimEmail:   member.Email,
	}
	jwtauth.SetIssuedNow(claims)
	if ttl > 0 {
		jwtauth.SetExpiryIn(claims, ttl)
	}

	_, token, err := auth.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return token, nil
}

// Authenticator rejects requests whose token was missing or failed
// verification. It must run after jwtauth.Verifier.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _, err := jwtauth.FromContext(r.Context())
		if err == nil && token == nil {
			err = jwtauth.ErrNoTokenFound
		}
		if err == nil {
			_, err = MemberFromContext(r.Context())
		}
		if err != nil {
			writeJSONError(w, r, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// MemberFromContext reads the member from the verified token claims
func MemberFromContext(ctx context.Context) (sheetmusic.Member, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return sheetmusic.Member{}, err
	}

	id, err := memberID(claims[ClaimSubject])
	if err != nil {
		return sheetmusic.Member{}, err
	}
	email, _ := claims[ClaimEmail].(string)

	return sheetmusic.Member{ID: id, Email: email}, nil
}

func memberID(sub interface{}) (int64, error) {
	switch v := sub.(type) {
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("%w: subject %q is not a member id", ErrMissingMember, v)
		}
		return id, nil
	case float64:
		if v <= 0 || v != float64(int64(v)) {
			return 0, fmt.Errorf("%w: subject %v is not a member id", ErrMissingMember, v)
		}
		return int64(v), nil
	default:
		return 0, ErrMissingMember
	}
}
