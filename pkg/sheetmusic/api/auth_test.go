package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/sheetmusic/pkg/sheetmusic"
)

func TestMemberFromContext(t *testing.T) {
	auth := NewAuth(testSecret)
	tokenString, err := IssueToken(auth, owner, time.Minute)
	require.NoError(t, err)

	token, err := jwtauth.VerifyToken(auth, tokenString)
	require.NoError(t, err)

	member, err := MemberFromContext(jwtauth.NewContext(context.Background(), token, nil))
	require.NoError(t, err)
	assert.Equal(t, owner, member)
}

func TestMemberFromContext_NoToken(t *testing.T) {
	_, err := MemberFromContext(context.Background())
	assert.ErrorIs(t, err, ErrMissingMember)
}

func TestMemberID(t *testing.T) {
	tests := []struct {
		name    string
		sub     interface{}
		want    int64
		wantErr bool
	}{
		{"string id", "42", 42, false},
		{"numeric id", float64(7), 7, false},
		{"zero", "0", 0, true},
		{"not a number", "alice", 0, true},
		{"fractional", 1.5, 0, true},
		{"missing", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := memberID(tt.sub)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingMember)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", &sheetmusic.SheetMusicError{ID: 1, Op: "find", Err: sheetmusic.ErrSheetMusicNotFound}, http.StatusNotFound},
		{"pdf not found", sheetmusic.ErrPdfNotFound, http.StatusNotFound},
		{"ownership", &sheetmusic.SheetMusicError{ID: 1, Op: "edit", Err: sheetmusic.ErrOwnershipMismatch}, http.StatusForbidden},
		{"page", sheetmusic.ErrInvalidPageRequest, http.StatusBadRequest},
		{"bad request", badRequest(errors.New("bad")), http.StatusBadRequest},
		{"unauthorized", unauthorized(ErrMissingMember), http.StatusUnauthorized},
		{"storage", &sheetmusic.StorageError{Key: "k", Op: "upload", Err: errors.New("boom")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
		})
	}
}
