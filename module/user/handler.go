package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	usersvc "ChatRelay/module/user/service"
	"ChatRelay/tools/errs"
	"ChatRelay/tools/security"
)

type signupReq struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type Handler struct {
	store usersvc.Store
	jwt   security.Options
}

func NewHandler(store usersvc.Store, jwt security.Options) *Handler {
	return &Handler{store: store, jwt: jwt}
}

// Register mounts the account routes on the gin engine.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/user/signup", h.Signup)
	r.POST("/user/login", h.Login)
}

func (h *Handler) Signup(c *gin.Context) {
	var req signupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrArgs.WithDetail(err.Error()))
		return
	}
	u, err := usersvc.Signup(c.Request.Context(), h.store, usersvc.SignupParams{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeCodeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrArgs.WithDetail(err.Error()))
		return
	}
	res, err := usersvc.Login(c.Request.Context(), h.store, h.jwt, usersvc.LoginParams{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeCodeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func writeCodeError(c *gin.Context, err error) {
	var status int
	switch {
	case errs.ErrUnauthorized.Is(err):
		status = http.StatusUnauthorized
	case errs.ErrDuplicateKey.Is(err):
		status = http.StatusConflict
	case errs.ErrArgs.Is(err):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}
	if ce, ok := err.(*errs.CodeError); ok {
		c.JSON(status, ce)
		return
	}
	c.JSON(status, errs.ErrInternalServer)
}
