package util

import (
	"github.com/gin-gonic/gin"

	"github.com/ync-lab/intranet/dao/model"
)

const (
	UserIDKey       = "x-user-id"
	EmailKey        = "x-user-email"
	NameKey         = "x-user-name"
	RoleKey         = "x-user-role"
	DepartmentIDKey = "x-department-id"
)

func SetJWTContext(
	c *gin.Context,
	msg JWTMessage,
) {
	c.Set(UserIDKey, msg.UserID)
	c.Set(EmailKey, msg.Email)
	c.Set(NameKey, msg.Name)
	c.Set(RoleKey, msg.Role)
	c.Set(DepartmentIDKey, msg.DepartmentID)
}

func GetToken(ctx *gin.Context) JWTMessage {
	var msg JWTMessage
	msg.UserID = ctx.GetUint(UserIDKey)
	msg.Email = ctx.GetString(EmailKey)
	msg.Name = ctx.GetString(NameKey)
	msg.DepartmentID = ctx.GetUint(DepartmentIDKey)

	if role, ok := ctx.Get(RoleKey); ok {
		msg.Role, _ = role.(model.Role)
	}
	return msg
}
