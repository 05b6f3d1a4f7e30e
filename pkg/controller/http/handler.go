package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/newsdesk/pkg/model"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	model.User
	Token string `json:"token,omitempty"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type deleteArticleRequest struct {
	ID model.ArticleID `json:"id"`
}

type generateRequest struct {
	Topic string `json:"topic"`
}

var success = gin.H{"success": true}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, model.WrapError(err, model.KindInvalidInput, "Invalid request body."))
		return
	}

	user, err := s.auth.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	resp := loginResponse{User: *user}
	if s.issuer != nil {
		token, err := s.issuer.Sign(user)
		if err != nil {
			s.abortWithError(c, err)
			return
		}
		resp.Token = token
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, model.WrapError(err, model.KindInvalidInput, "Invalid request body."))
		return
	}

	if err := s.auth.ChangePassword(c.Request.Context(), req.OldPassword, req.NewPassword); err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, success)
}

func (s *Server) listArticles(c *gin.Context) {
	articles, err := s.articles.List(c.Request.Context())
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, articles)
}

func (s *Server) saveArticle(c *gin.Context) {
	var article model.Article
	if err := c.ShouldBindJSON(&article); err != nil {
		s.abortWithError(c, model.WrapError(err, model.KindInvalidInput, "Invalid article data"))
		return
	}

	if err := s.articles.Save(c.Request.Context(), &article); err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, success)
}

func (s *Server) deleteArticle(c *gin.Context) {
	var req deleteArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, model.WrapError(err, model.KindInvalidInput, "Article ID is required"))
		return
	}

	if err := s.articles.Delete(c.Request.Context(), req.ID); err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, success)
}

func (s *Server) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Topic) == "" {
		s.abortWithError(c, model.NewError(model.KindInvalidInput, "Topic is required"))
		return
	}

	article, err := s.articles.Generate(c.Request.Context(), req.Topic)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, article)
}
