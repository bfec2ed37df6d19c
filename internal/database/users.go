package database

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/xelth-com/shopvidgo/internal/models"
	"gorm.io/gorm"
)

// UserByEmail loads an active reviewer account
func (db *DB) UserByEmail(ctx context.Context, email string) (*models.UserAuth, error) {
	var user models.UserAuth
	err := db.WithContext(ctx).
		Where("email = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(email)), true).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// TouchLogin records a successful login
func (db *DB) TouchLogin(ctx context.Context, user *models.UserAuth) error {
	now := time.Now().UTC()
	user.LastLogin = &now
	return db.WithContext(ctx).Model(user).Update("last_login", now).Error
}

// EnsureUser creates the bootstrap reviewer when no account with that email
// exists yet
func (db *DB) EnsureUser(ctx context.Context, email, passwordHash string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	var existing models.UserAuth
	err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	user := models.UserAuth{Email: email, Password: passwordHash, Role: "reviewer", IsActive: true}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return err
	}
	log.Printf("👤 Created reviewer account %s", email)
	return nil
}
