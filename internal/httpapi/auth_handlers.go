package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sujalkunwar22/backend/internal/account"
	"github.com/sujalkunwar22/backend/internal/auth"
	"github.com/sujalkunwar22/backend/internal/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func issueSession(d Deps, user *models.User) (*session, error) {
	token, err := d.Issuer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &session{Token: token, User: user}, nil
}

func handleRegister(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in account.RegisterInput
		if !bind(c, &in) {
			return
		}
		user, err := account.Register(c.Request.Context(), d.DB, in)
		if err != nil {
			fail(c, err)
			return
		}
		s, err := issueSession(d, user)
		if err != nil {
			fail(c, err)
			return
		}
		okMessage(c, http.StatusCreated, "User registered successfully", s)
	}
}

func handleLogin(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in loginRequest
		if !bind(c, &in) {
			return
		}
		user, err := account.Login(c.Request.Context(), d.DB, in.Email, in.Password)
		if err != nil {
			fail(c, err)
			return
		}
		s, err := issueSession(d, user)
		if err != nil {
			fail(c, err)
			return
		}
		okMessage(c, http.StatusOK, "Login successful", s)
	}
}

func handleMe(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := account.Get(c.Request.Context(), d.DB, auth.CurrentUser(c).ID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, gin.H{"user": user})
	}
}
