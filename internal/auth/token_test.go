package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
		err    error
	}{
		{name: "missing", err: ErrMissingAuthorization},
		{name: "bearer", header: "Bearer abc.def.ghi", token: "abc.def.ghi"},
		{name: "lower case scheme", header: "bearer abc", token: "abc"},
		{name: "basic", header: "Basic dXNlcjpwYXNz", err: ErrMalformedAuthorization},
		{name: "no token", header: "Bearer", err: ErrMalformedAuthorization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			token, err := ExtractTokenFromRequest(r)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestExtractUserIDFromJWT(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-42"}).SignedString([]byte("any"))
	require.NoError(t, err)

	sub, err := ExtractUserIDFromJWT(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-42", sub)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "a@b.c"}).SignedString([]byte("any"))
	require.NoError(t, err)
	_, err = ExtractUserIDFromJWT(noSub)
	assert.Error(t, err)

	_, err = ExtractUserIDFromJWT("")
	assert.Error(t, err)
	_, err = ExtractUserIDFromJWT("not-a-jwt")
	assert.Error(t, err)
}
