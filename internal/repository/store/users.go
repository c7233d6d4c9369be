package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
)

// ErrInactiveUser is returned when a disabled account tries to act.
var ErrInactiveUser = errors.New("user is inactive")

// Users resolves accounts and their farm assignments.
type Users struct {
	*Repository[models.User]
	db *gorm.DB
}

// NewUsers creates the user store.
func NewUsers(db *gorm.DB) *Users {
	return &Users{Repository: New[models.User](db), db: db}
}

// ByEmail finds a user by email, case-insensitively.
func (u *Users) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return u.FindBy(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

// ByPhone finds a user by phone, ignoring a leading "+".
func (u *Users) ByPhone(ctx context.Context, phone string) (*models.User, error) {
	phone = strings.TrimPrefix(strings.TrimSpace(phone), "+")
	var user models.User
	err := u.db.WithContext(ctx).
		Where("phone = ? OR phone = ?", phone, "+"+phone).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by phone: %w", err)
	}
	return &user, nil
}

// FarmIDs lists the farms assigned to a user.
func (u *Users) FarmIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := u.db.WithContext(ctx).Model(&models.FarmOperator{}).
		Where("user_id = ?", userID).
		Order("farm_id").
		Pluck("farm_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list farms of user %d: %w", userID, err)
	}
	return ids, nil
}

// AssignOperators replaces the users assigned to a farm.
func (u *Users) AssignOperators(ctx context.Context, farmID uint, userIDs []uint) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("farm_id = ?", farmID).Delete(&models.FarmOperator{}).Error; err != nil {
			return fmt.Errorf("clear operators of farm %d: %w", farmID, err)
		}
		for _, id := range userIDs {
			if err := tx.Create(&models.FarmOperator{FarmID: farmID, UserID: id}).Error; err != nil {
				return fmt.Errorf("assign user %d to farm %d: %w", id, farmID, err)
			}
		}
		return nil
	})
}

// Principal builds the acting principal of a user.
func (u *Users) Principal(ctx context.Context, user *models.User) (access.Principal, error) {
	if !user.Active {
		return access.Principal{}, ErrInactiveUser
	}
	role, err := access.ParseRole(user.Role)
	if err != nil {
		return access.Principal{}, err
	}
	p := access.Principal{UserID: user.ID, Name: user.Name, Role: role}
	if !p.AllFarms() {
		if p.FarmIDs, err = u.FarmIDs(ctx, user.ID); err != nil {
			return access.Principal{}, err
		}
	}
	return p, nil
}

// PrincipalByID loads a user and builds its principal.
func (u *Users) PrincipalByID(ctx context.Context, userID uint) (access.Principal, error) {
	user, err := u.Get(ctx, userID)
	if err != nil {
		return access.Principal{}, err
	}
	return u.Principal(ctx, user)
}
