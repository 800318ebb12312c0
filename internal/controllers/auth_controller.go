package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"bus_ticketing/internal/models"
	"bus_ticketing/internal/store"
)

type signupInput struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	Phone        string `json:"phone"`
	Role         string `json:"role"`
	OperatorName string `json:"operator_name"`
	Address      string `json:"address"`
}

var errOperatorNameRequired = errors.New("operator_name is required for operator role")

// SignupUser registers a passenger, or an operator together with its
// pending operator record.
func (ctl *Controller) SignupUser(c *gin.Context) {
	var input signupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := validateAndNormalizeRole(input.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.Role = role
	input.Email = normalizeEmail(input.Email)
	if role == models.RoleOperator && strings.TrimSpace(input.OperatorName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errOperatorNameRequired.Error()})
		return
	}

	hashedPassword, err := HashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash password"})
		return
	}

	var user models.User
	err = ctl.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		user = models.User{
			Name:     input.Name,
			Email:    input.Email,
			Password: hashedPassword,
			Phone:    input.Phone,
			Role:     input.Role,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if user.Role != models.RoleOperator {
			return nil
		}
		op := models.Operator{
			UserID:  &user.ID,
			Name:    strings.TrimSpace(input.OperatorName),
			Email:   input.Email,
			Phone:   input.Phone,
			Address: input.Address,
			Status:  models.OperatorPending,
		}
		if err := tx.Create(&op).Error; err != nil {
			return err
		}
		user.Operator = &op
		return nil
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
			return
		}
		logrus.WithError(err).WithField("email", input.Email).Error("SignupUser: could not create account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}

	token, err := ctl.auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User signed up")
	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  prepareUserResponse(user),
	})
}

func (ctl *Controller) LoginUser(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := ctl.db.WithContext(c.Request.Context()).
		Preload("Operator").
		Where("email = ?", normalizeEmail(body.Email)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		} else {
			logrus.WithError(err).Error("LoginUser: database error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		}
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(body.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := ctl.auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  prepareUserResponse(user),
	})
}

// ListUsers lists accounts, optionally filtered by ?role=.
func (ctl *Controller) ListUsers(c *gin.Context) {
	q := ctl.db.WithContext(c.Request.Context()).Order("id asc")
	if role := c.Query("role"); role != "" {
		q = q.Where("role = ?", role)
	}

	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		logrus.WithError(err).Error("ListUsers: database error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

// validateAndNormalizeRole accepts the roles open to self-service signup.
func validateAndNormalizeRole(roleInput string) (string, error) {
	role := strings.ToLower(strings.TrimSpace(roleInput))
	if role == "" {
		role = models.RolePassenger
	}
	switch role {
	case models.RolePassenger, models.RoleOperator:
		return role, nil
	default:
		return "", errors.New("invalid role")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword bcrypts a password with the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func prepareUserResponse(user models.User) gin.H {
	responseUser := gin.H{
		"ID":        user.ID,
		"CreatedAt": user.CreatedAt,
		"UpdatedAt": user.UpdatedAt,
		"name":      user.Name,
		"email":     user.Email,
		"phone":     user.Phone,
		"role":      user.Role,
	}

	if user.Operator != nil {
		responseUser["operator"] = gin.H{
			"ID":     user.Operator.ID,
			"name":   user.Operator.Name,
			"status": user.Operator.Status,
		}
		responseUser["operator_id"] = user.Operator.ID
	}
	return responseUser
}
