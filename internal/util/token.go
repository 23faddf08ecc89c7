package util

import (
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/config"
	"github.com/ync-lab/intranet/pkg/logutils"
)

type (
	JWTClaims struct {
		UserID       uint       `json:"ui"`
		Email        string     `json:"em"`
		Name         string     `json:"nm"`
		Role         model.Role `json:"rl"`
		DepartmentID uint       `json:"di"`
		jwt.RegisteredClaims
	}
	JWTMessage struct {
		UserID       uint       `json:"userID"`       // Member ID
		Email        string     `json:"email"`        // Login email
		Name         string     `json:"name"`         // Display name
		Role         model.Role `json:"role"`         // Role in the intranet (e.g. user, admin)
		DepartmentID uint       `json:"departmentID"` // Department ID, 0 if none
	}
)

// NewJWTMessage copies the token fields from a member
func NewJWTMessage(member *model.Member) *JWTMessage {
	msg := &JWTMessage{
		UserID: member.ID,
		Email:  member.Email,
		Name:   member.Name,
		Role:   member.Role,
	}
	if member.DepartmentID != nil {
		msg.DepartmentID = *member.DepartmentID
	}
	return msg
}

type TokenManager struct {
	secretKey       string
	refreshKey      string
	accessTokenTTL  int
	refreshTokenTTL int
}

var (
	once     sync.Once
	tokenMgr *TokenManager
)

func GetTokenMgr() *TokenManager {
	once.Do(func() {
		tokenConfig := config.NewTokenConf()
		tokenMgr = NewTokenManager(
			tokenConfig.AccessTokenSecret,
			tokenConfig.RefreshTokenSecret,
			tokenConfig.AccessTokenExpiryHour,
			tokenConfig.RefreshTokenExpiryHour,
		)
	})
	return tokenMgr
}

func NewTokenManager(secretKey, refreshKey string, accessTokenTTL, refreshTokenTTL int) *TokenManager {
	if refreshKey == "" {
		refreshKey = secretKey
	}
	return &TokenManager{
		secretKey,
		refreshKey,
		accessTokenTTL,
		refreshTokenTTL,
	}
}

func (tm *TokenManager) createToken(msg *JWTMessage, key string, ttl int) (string, error) {
	expiresAt := time.Now().Add(time.Hour * time.Duration(ttl))

	claims := &JWTClaims{
		UserID:       msg.UserID,
		Email:        msg.Email,
		Name:         msg.Name,
		Role:         msg.Role,
		DepartmentID: msg.DepartmentID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(key))
}

// CreateTokens creates a new access token and a new refresh token
func (tm *TokenManager) CreateTokens(msg *JWTMessage) (
	accessToken string, refreshToken string, err error) {
	accessToken, err = tm.createToken(msg, tm.secretKey, tm.accessTokenTTL)
	if err != nil {
		logutils.Log.Error(err)
		return "", "", err
	}
	refreshToken, err = tm.createToken(msg, tm.refreshKey, tm.refreshTokenTTL)
	if err != nil {
		logutils.Log.Error(err)
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// CheckToken validates an access token
func (tm *TokenManager) CheckToken(requestToken string) (JWTMessage, error) {
	return tm.parse(requestToken, tm.secretKey)
}

// CheckRefreshToken validates a refresh token
func (tm *TokenManager) CheckRefreshToken(requestToken string) (JWTMessage, error) {
	return tm.parse(requestToken, tm.refreshKey)
}

func (tm *TokenManager) parse(requestToken, key string) (JWTMessage, error) {
	claims := JWTClaims{}
	_, err := jwt.ParseWithClaims(requestToken, &claims, func(_ *jwt.Token) (any, error) {
		return []byte(key), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return JWTMessage{
		UserID:       claims.UserID,
		Email:        claims.Email,
		Name:         claims.Name,
		Role:         claims.Role,
		DepartmentID: claims.DepartmentID,
	}, err
}
