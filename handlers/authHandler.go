package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/disaster_backend/models"
	"github.com/mmdatafocus/disaster_backend/utils"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) bindUser(c *gin.Context) (*models.NewUser, bool) {
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "All fields are required")
		return nil, false
	}
	if err := h.validator().Struct(input); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "All fields are required",
			"fields": utils.ProcessValidationErrors(err),
		})
		return nil, false
	}
	return &input, true
}

func (h *Handler) issueToken(c *gin.Context, user *models.User) {
	token, err := utils.JwtGenerate(user.ID, user.Name, string(user.Role))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.LoginInfo{Token: token, Role: user.Role, User: user})
}

// signup registers citizens and organizations; admin accounts are created by admins only.
func (h *Handler) signup(c *gin.Context) {
	input, ok := h.bindUser(c)
	if !ok {
		return
	}
	if input.Role.IsAdmin() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	user, err := h.Users.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	h.issueToken(c, user)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || h.validator().Struct(req) != nil {
		badRequest(c, "All fields are required")
		return
	}
	user, err := h.Users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.issueToken(c, user)
}

func (h *Handler) me(c *gin.Context) {
	userId, _ := utils.GetUserIdFromContext(c.Request.Context())
	user, err := h.Users.GetById(c.Request.Context(), userId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) allUsers(c *gin.Context) {
	users, err := h.Users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) addUser(c *gin.Context) {
	input, ok := h.bindUser(c)
	if !ok {
		return
	}
	if input.Role == "" {
		badRequest(c, "All fields are required")
		return
	}
	user, err := h.Users.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User added successfully", "user": user})
}

func (h *Handler) removeUser(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if self, _ := utils.GetUserIdFromContext(c.Request.Context()); self == id {
		badRequest(c, "You cannot remove your own account")
		return
	}
	user, err := h.Users.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User removed successfully", "user": user})
}
