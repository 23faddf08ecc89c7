package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/internal/resputil"
	"github.com/ync-lab/intranet/internal/util"
)

// MemberGetter loads the member behind a token
type MemberGetter interface {
	GetMember(ctx context.Context, id uint) (*model.Member, error)
}

// tokenFromRequest reads the Bearer header. Browsers cannot set headers on websockets,
// so the token query parameter is accepted too.
func tokenFromRequest(c *gin.Context) (string, bool) {
	authHeader := c.Request.Header.Get("Authorization")
	if authHeader != "" {
		t := strings.Split(authHeader, " ")
		if len(t) < 2 || t[0] != "Bearer" {
			return "", false
		}
		return t[1], true
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

func AuthProtected(tokenMgr *util.TokenManager, members MemberGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		authToken, ok := tokenFromRequest(c)
		if !ok {
			resputil.HTTPError(c, http.StatusUnauthorized, "Invalid token", resputil.TokenInvalid)
			c.Abort()
			return
		}

		token, err := tokenMgr.CheckToken(authToken)
		if err != nil {
			resputil.HTTPError(c, http.StatusUnauthorized, err.Error(), resputil.TokenExpired)
			c.Abort()
			return
		}

		// 如果查询方法不是 GET (e.g. POST, PUT, DELETE), 从数据库中校验权限
		if c.Request.Method != http.MethodGet {
			member, err := members.GetMember(c, token.UserID)
			if err != nil {
				resputil.HTTPError(c, http.StatusUnauthorized, "Member not found", resputil.TokenExpired)
				c.Abort()
				return
			}
			if !member.IsActive {
				resputil.HTTPError(c, http.StatusUnauthorized, "Member is not active", resputil.MemberInactive)
				c.Abort()
				return
			}
			if member.Role != token.Role {
				resputil.HTTPError(c, http.StatusUnauthorized, "Role not match", resputil.TokenExpired)
				c.Abort()
				return
			}
		}

		// If request method is GET, use the member info from token.
		util.SetJWTContext(c, token)
		c.Next()
	}
}

func AuthAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.GetToken(c)
		if token.Role != model.RoleAdmin {
			resputil.HTTPError(c, http.StatusForbidden, "Not Admin", resputil.UserNotAllowed)
			c.Abort()
			return
		}
		c.Next()
	}
}
