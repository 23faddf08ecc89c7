package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/dao/query"
	"github.com/ync-lab/intranet/internal/resputil"
	"github.com/ync-lab/intranet/internal/util"
	"github.com/ync-lab/intranet/pkg/config"
	"github.com/ync-lab/intranet/pkg/logutils"
	"github.com/ync-lab/intranet/pkg/naverworks"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewAuthMgr)
}

const (
	oauthStateCookie = "naver_works_state"
	oauthStateMaxAge = 10 * 60 // seconds
)

// Error codes appended to the failure redirect
const (
	oauthErrNoCode         = "no_code"
	oauthErrInvalidState   = "invalid_state"
	oauthErrNoEmail        = "no_email"
	oauthErrMemberCreation = "user_creation_failed"
	oauthErrMemberInactive = "user_inactive"
	oauthErrLoginFailed    = "login_failed"
)

type AuthMgr struct {
	name       string
	conf       *config.Config
	tokenMgr   *util.TokenManager
	members    *query.MemberStore
	naverWorks *naverworks.Client
}

func NewAuthMgr(conf *RegisterConfig) Manager {
	return &AuthMgr{
		name:       "auth",
		conf:       conf.Config,
		tokenMgr:   conf.TokenMgr,
		members:    conf.Members,
		naverWorks: conf.NaverWorks,
	}
}

func (mgr *AuthMgr) GetName() string { return mgr.name }

func (mgr *AuthMgr) RegisterPublic(g *gin.RouterGroup) {
	g.POST("/login", mgr.Login)
	g.POST("/refresh", mgr.RefreshToken)
	g.GET("/naver-works/login", mgr.NaverWorksLogin)
	g.GET("/naver-works/callback", mgr.NaverWorksCallback)
}

func (mgr *AuthMgr) RegisterProtected(_ *gin.RouterGroup) {}

func (mgr *AuthMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	LoginReq struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	LoginResp struct {
		AccessToken  string           `json:"accessToken"`
		RefreshToken string           `json:"refreshToken"`
		Member       model.MemberInfo `json:"member"`
		Role         model.Role       `json:"role"`
	}

	RefreshReq struct {
		RefreshToken string `json:"refreshToken" binding:"required"` // Without the `Bearer ` prefix
	}

	RefreshResp struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}

	NaverWorksCallbackReq struct {
		Code             string `form:"code"`
		State            string `form:"state"`
		Error            string `form:"error"`
		ErrorDescription string `form:"error_description"`
	}
)

// Login godoc
// @Summary Sign in with email and password
// @Description Checks the local password of an active member and issues a JWT pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param data body LoginReq true "credentials"
// @Success 200 {object} resputil.Response[LoginResp] "Signed in"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Failure 401 {object} resputil.Response[any] "Invalid credentials or inactive member"
// @Router /v1/auth/login [post]
func (mgr *AuthMgr) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	l := logutils.Log.WithField("email", naverworks.MaskEmail(req.Email))

	member, err := mgr.members.FindByEmail(c, strings.TrimSpace(req.Email))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			l.Error("find member: ", err)
			resputil.Error(c, err.Error(), resputil.ServiceError)
			return
		}
		l.Info("login of unknown member")
		resputil.HTTPError(c, http.StatusUnauthorized, "Invalid credentials", resputil.InvalidCredentials)
		return
	}
	if member.Password == nil ||
		bcrypt.CompareHashAndPassword([]byte(*member.Password), []byte(req.Password)) != nil {
		l.Info("invalid credentials")
		resputil.HTTPError(c, http.StatusUnauthorized, "Invalid credentials", resputil.InvalidCredentials)
		return
	}
	if !member.IsActive {
		l.Info("member is not active")
		resputil.HTTPError(c, http.StatusUnauthorized, "Member is not active", resputil.MemberInactive)
		return
	}

	accessToken, refreshToken, err := mgr.issueTokens(c, member)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}
	resputil.Success(c, LoginResp{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Member:       member.Info(),
		Role:         member.Role,
	})
}

// RefreshToken godoc
// @Summary Refresh the JWT pair
// @Description Issues new tokens from a valid refresh token of an active member
// @Tags Auth
// @Accept json
// @Produce json
// @Param data body RefreshReq true "refresh token"
// @Success 200 {object} resputil.Response[RefreshResp] "New tokens"
// @Failure 401 {object} resputil.Response[any] "Invalid token or inactive member"
// @Router /v1/auth/refresh [post]
func (mgr *AuthMgr) RefreshToken(c *gin.Context) {
	var req RefreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	claims, err := mgr.tokenMgr.CheckRefreshToken(req.RefreshToken)
	if err != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, "Invalid refresh token", resputil.TokenInvalid)
		return
	}
	// Role and department may have changed since the token was issued
	member, err := mgr.members.GetMember(c, claims.UserID)
	if err != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, "Member not found", resputil.TokenInvalid)
		return
	}
	if !member.IsActive {
		resputil.HTTPError(c, http.StatusUnauthorized, "Member is not active", resputil.MemberInactive)
		return
	}
	accessToken, refreshToken, err := mgr.tokenMgr.CreateTokens(util.NewJWTMessage(member))
	if err != nil {
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}
	resputil.Success(c, RefreshResp{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// NaverWorksLogin godoc
// @Summary Start the NAVER WORKS login
// @Description Redirects the browser to the NAVER WORKS authorization page
// @Tags Auth
// @Success 302 "Redirect to NAVER WORKS"
// @Router /v1/auth/naver-works/login [get]
func (mgr *AuthMgr) NaverWorksLogin(c *gin.Context) {
	state := uuid.NewString()
	if !mgr.naverWorks.RedirectsToLocalhost() {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(oauthStateCookie, state, oauthStateMaxAge, "/", "", c.Request.TLS != nil, true)
	}
	c.Redirect(http.StatusFound, mgr.naverWorks.AuthorizationURL(state))
}

// NaverWorksCallback godoc
// @Summary NAVER WORKS login callback
// @Description Exchanges the code, creates or refreshes the member and redirects with the issued tokens
// @Tags Auth
// @Param query query NaverWorksCallbackReq false "callback parameters"
// @Success 302 "Redirect to the success page, or to the login page with ?error=<code>"
// @Router /v1/auth/naver-works/callback [get]
func (mgr *AuthMgr) NaverWorksCallback(c *gin.Context) {
	var req NaverWorksCallbackReq
	if err := c.ShouldBindQuery(&req); err != nil {
		mgr.failLogin(c, oauthErrLoginFailed)
		return
	}
	if req.Error != "" {
		klog.Warningf("naver works login failed: %s %s", req.Error, req.ErrorDescription)
		mgr.failLogin(c, req.Error)
		return
	}
	if req.Code == "" {
		mgr.failLogin(c, oauthErrNoCode)
		return
	}
	if !mgr.naverWorks.RedirectsToLocalhost() {
		saved, err := c.Cookie(oauthStateCookie)
		if err != nil || saved == "" || saved != req.State {
			klog.Warningf("naver works state mismatch")
			mgr.failLogin(c, oauthErrInvalidState)
			return
		}
		c.SetCookie(oauthStateCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	}

	accessToken, err := mgr.naverWorks.ExchangeToken(c, req.Code)
	if err != nil {
		klog.Errorf("exchange naver works code: %v", err)
		mgr.failLogin(c, oauthErrorCode(err))
		return
	}
	info, err := mgr.naverWorks.UserInfo(c, accessToken)
	if err != nil {
		klog.Errorf("read naver works profile: %v", err)
		mgr.failLogin(c, oauthErrorCode(err))
		return
	}
	if info.Email == "" {
		mgr.failLogin(c, oauthErrNoEmail)
		return
	}

	member, err := mgr.upsertMember(c, info)
	if err != nil {
		klog.Errorf("upsert member %s: %v", naverworks.MaskEmail(info.Email), err)
		mgr.failLogin(c, oauthErrMemberCreation)
		return
	}
	if !member.IsActive {
		mgr.failLogin(c, oauthErrMemberInactive)
		return
	}

	access, refresh, err := mgr.issueTokens(c, member)
	if err != nil {
		mgr.failLogin(c, oauthErrLoginFailed)
		return
	}
	// Tokens travel in the fragment so they never reach server logs
	fragment := url.Values{}
	fragment.Set("accessToken", access)
	fragment.Set("refreshToken", refresh)
	c.Redirect(http.StatusFound, mgr.conf.NaverWorks.SuccessRedirect+"#"+fragment.Encode())
}

func oauthErrorCode(err error) string {
	switch {
	case errors.Is(err, naverworks.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, naverworks.ErrUnavailable):
		return "provider_unavailable"
	default:
		return oauthErrLoginFailed
	}
}

func (mgr *AuthMgr) failLogin(c *gin.Context, code string) {
	target := mgr.conf.NaverWorks.FailureRedirect + "?error=" + url.QueryEscape(code)
	c.Redirect(http.StatusFound, target)
}

// upsertMember creates an active user for an unknown email, or refreshes the
// profile fields NAVER WORKS owns
func (mgr *AuthMgr) upsertMember(ctx context.Context, info *naverworks.UserInfo) (*model.Member, error) {
	member, err := mgr.members.FindByEmail(ctx, info.Email)
	created := false
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		member = &model.Member{
			Email:    info.Email,
			Role:     model.RoleUser,
			IsActive: true,
		}
		created = true
	}

	if info.Name != "" {
		member.Name = info.Name
	}
	if info.Phone != "" {
		member.Phone = info.Phone
	}
	if info.EmployeeNumber != "" {
		member.EmployeeNumber = info.EmployeeNumber
	}
	if info.Position != "" {
		member.Position = info.Position
	}
	if info.UserID != "" {
		member.ExternalID = ptr.To(info.UserID)
	}
	if info.Department != "" {
		dept, err := mgr.members.FindOrCreateDepartment(ctx, info.Department)
		if err != nil {
			return nil, err
		}
		member.DepartmentID = &dept.ID
		member.Department = dept
	}
	if member.Name == "" {
		member.Name = strings.Split(info.Email, "@")[0]
	}

	if created {
		if err := mgr.members.Create(ctx, member); err != nil {
			return nil, err
		}
		logutils.Log.WithField("member", member.ID).Info("member created from naver works")
		return member, nil
	}
	if err := mgr.members.Save(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (mgr *AuthMgr) issueTokens(ctx context.Context, member *model.Member) (access, refresh string, err error) {
	access, refresh, err = mgr.tokenMgr.CreateTokens(util.NewJWTMessage(member))
	if err != nil {
		return "", "", err
	}
	if err := mgr.members.UpdateLastLogin(ctx, member.ID, time.Now()); err != nil {
		klog.Warningf("update last login of member %d: %v", member.ID, err)
	}
	return access, refresh, nil
}
