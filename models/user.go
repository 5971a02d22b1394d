package models

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/mmdatafocus/disaster_backend/config"
	"github.com/mmdatafocus/disaster_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;not null;unique" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      UserRole  `gorm:"type:enum('user','admin','organization');not null;default:user;index" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name     string   `json:"name" validate:"required,max=100"`
	Email    string   `json:"email" validate:"required,email,max=100"`
	Password string   `json:"password" validate:"required,min=6"`
	Role     UserRole `json:"role" validate:"omitempty,oneof=user admin organization"`
}

type LoginInfo struct {
	Token string   `json:"token"`
	Role  UserRole `json:"role"`
	User  *User    `json:"user"`
}

/*
caches:
	User:$id
*/

const userCacheLifespan = time.Hour

func userCacheKey(id int) string {
	return fmt.Sprintf("User:%d", id)
}

// UserStore persists accounts. Lookups by id go through the Redis cache when it is connected.
type UserStore struct {
	DB *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{DB: db}
}

func (s *UserStore) Create(ctx context.Context, input *NewUser) (*User, error) {
	email := utils.NormalizeEmail(input.Email)
	if !utils.IsValidEmail(email) {
		return nil, errors.New("invalid email address")
	}
	role := input.Role
	if role == "" {
		role = UserRoleUser
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.ErrorDuplicateEmail
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		Name:     html.EscapeString(strings.TrimSpace(input.Name)),
		Email:    email,
		Password: hashedPassword,
		Role:     role,
	}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if IsDuplicateKeyErr(err) {
			return nil, utils.ErrorDuplicateEmail
		}
		return nil, err
	}
	return &user, nil
}

// Authenticate checks credentials and returns utils.ErrorUnauthorized on any mismatch.
func (s *UserStore) Authenticate(ctx context.Context, email string, password string) (*User, error) {
	var user User
	err := s.DB.WithContext(ctx).Where("email = ?", utils.NormalizeEmail(email)).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorUnauthorized
		}
		return nil, err
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, utils.ErrorUnauthorized
	}
	return &user, nil
}

func (s *UserStore) GetById(ctx context.Context, id int) (*User, error) {
	var user User
	exists, err := config.GetRedisObject(ctx, userCacheKey(id), &user)
	if err != nil {
		config.GetLogger().WithField("user_id", id).Warn("user cache read failed: " + err.Error())
	}
	if exists {
		return &user, nil
	}

	if err := s.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	// Password is not serialized, so the cached copy cannot authenticate.
	if err := config.SetRedisObject(ctx, userCacheKey(id), &user, userCacheLifespan); err != nil {
		config.GetLogger().WithField("user_id", id).Warn("user cache write failed: " + err.Error())
	}
	return &user, nil
}

// GetByIds returns the users found for ids in no particular order.
func (s *UserStore) GetByIds(ctx context.Context, ids []int) ([]*User, error) {
	var users []*User
	if len(ids) == 0 {
		return users, nil
	}
	err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (s *UserStore) List(ctx context.Context) ([]*User, error) {
	var users []*User
	err := s.DB.WithContext(ctx).Order("id ASC").Find(&users).Error
	return users, err
}

func (s *UserStore) FindUsersByRole(ctx context.Context, role UserRole) ([]*User, error) {
	var users []*User
	err := s.DB.WithContext(ctx).Where("role = ?", role).Order("id ASC").Find(&users).Error
	return users, err
}

func (s *UserStore) Delete(ctx context.Context, id int) (*User, error) {
	var user User
	if err := s.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	if err := s.DB.WithContext(ctx).Delete(&user).Error; err != nil {
		return nil, err
	}
	if err := config.RemoveRedisKey(ctx, userCacheKey(id)); err != nil {
		config.GetLogger().WithField("user_id", id).Warn("user cache invalidation failed: " + err.Error())
	}
	return &user, nil
}

// UpsertByEmail creates the account or resets its name, password and role.
func (s *UserStore) UpsertByEmail(ctx context.Context, input *NewUser) (*User, bool, error) {
	email := utils.NormalizeEmail(input.Email)
	var existing User
	err := s.DB.WithContext(ctx).Where("email = ?", email).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err := s.Create(ctx, input)
		return user, true, err
	}
	if err != nil {
		return nil, false, err
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, false, err
	}
	if err := s.DB.WithContext(ctx).Model(&existing).Updates(User{
		Name:     html.EscapeString(strings.TrimSpace(input.Name)),
		Password: hashedPassword,
		Role:     input.Role,
	}).Error; err != nil {
		return nil, false, err
	}
	if err := config.RemoveRedisKey(ctx, userCacheKey(existing.ID)); err != nil {
		config.GetLogger().WithField("user_id", existing.ID).Warn("user cache invalidation failed: " + err.Error())
	}
	return &existing, false, nil
}
