package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestJWT(t *testing.T) *JWTService {
	t.Helper()
	svc, err := NewJWTService(testSecret)
	require.NoError(t, err)
	return svc
}

func newTestPaseto(t *testing.T) *PasetoService {
	t.Helper()
	svc, err := NewPasetoService(testSecret)
	require.NoError(t, err)
	return svc
}

func TestTokenServices_RoundTrip(t *testing.T) {
	services := map[string]TokenService{
		"jwt":    newTestJWT(t),
		"paseto": newTestPaseto(t),
	}

	for name, svc := range services {
		t.Run(name, func(t *testing.T) {
			id := uuid.New()

			token, err := svc.CreateToken(id, "a@x.com", 7*24*time.Hour)
			require.NoError(t, err)

			claims, err := svc.VerifyToken(token)
			require.NoError(t, err)
			assert.Equal(t, id.String(), claims.UserID)
			assert.Equal(t, "a@x.com", claims.Email)
			assert.WithinDuration(t, claims.IssuedAt.Add(7*24*time.Hour), claims.ExpiresAt, time.Second)
		})
	}
}

func TestTokenServices_Expired(t *testing.T) {
	jwtSvc := newTestJWT(t)
	pasetoSvc := newTestPaseto(t)

	issued := time.Now().Add(-8 * 24 * time.Hour)
	jwtSvc.now = func() time.Time { return issued }
	pasetoSvc.now = func() time.Time { return issued }

	jwtToken, err := jwtSvc.CreateToken(uuid.New(), "a@x.com", 7*24*time.Hour)
	require.NoError(t, err)
	pasetoToken, err := pasetoSvc.CreateToken(uuid.New(), "a@x.com", 7*24*time.Hour)
	require.NoError(t, err)

	jwtSvc.now = time.Now
	pasetoSvc.now = time.Now

	_, err = jwtSvc.VerifyToken(jwtToken)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = pasetoSvc.VerifyToken(pasetoToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenServices_Tampered(t *testing.T) {
	services := map[string]TokenService{
		"jwt":    newTestJWT(t),
		"paseto": newTestPaseto(t),
	}

	for name, svc := range services {
		t.Run(name, func(t *testing.T) {
			token, err := svc.CreateToken(uuid.New(), "a@x.com", time.Hour)
			require.NoError(t, err)

			_, err = svc.VerifyToken(token[:len(token)-2] + "xx")
			assert.ErrorIs(t, err, ErrInvalidToken)

			_, err = svc.VerifyToken("garbage")
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWTService_RejectsOtherSecret(t *testing.T) {
	token, err := newTestJWT(t).CreateToken(uuid.New(), "a@x.com", time.Hour)
	require.NoError(t, err)

	other, err := NewJWTService([]byte(strings.Repeat("z", 32)))
	require.NoError(t, err)

	_, err = other.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsOtherAlgorithms(t *testing.T) {
	svc := newTestJWT(t)

	claims := jwtClaims{
		UserID: uuid.NewString(),
		Email:  "a@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	require.NoError(t, err)
	_, err = svc.VerifyToken(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.VerifyToken(none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RequiresExpiry(t *testing.T) {
	svc := newTestJWT(t)

	claims := jwtClaims{
		UserID: uuid.NewString(),
		Email:  "a@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenServices_KeyLength(t *testing.T) {
	_, err := NewJWTService([]byte("short"))
	assert.Error(t, err)

	_, err = NewPasetoService([]byte("short"))
	assert.Error(t, err)

	_, err = NewPasetoService(append(testSecret, 'x'))
	assert.Error(t, err)
}
