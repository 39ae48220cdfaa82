package repository

import (
	"context"
	"encoding/json"
	"errors"

	"brokerdesk/internal/domain/user"
	apperrors "brokerdesk/pkg/errors"

	"gorm.io/gorm"
)

// GormIdentityRepository reads the users and agent_profiles tables owned by
// the external identity collaborator. An agent's resolved area set is the
// primary area code unioned with the profile's configured areas.
type GormIdentityRepository struct {
	db *gorm.DB
}

func NewIdentityRepository(db *gorm.DB) IdentityRepository {
	return &GormIdentityRepository{db: db}
}

func (r *GormIdentityRepository) Resolve(ctx context.Context, userID uint) (user.Identity, error) {
	var u user.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		return user.Identity{}, apperrors.FromDB(err)
	}

	identity := user.Identity{
		ID:    u.ID,
		Email: u.Email,
		Role:  u.Role,
	}

	var profile user.AgentProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err == nil && len(profile.AreaCodes) > 0 {
		var areas []string
		if jsonErr := json.Unmarshal(profile.AreaCodes, &areas); jsonErr == nil {
			identity.AreaCodes = areas
		}
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return user.Identity{}, apperrors.FromDB(err)
	}

	if u.PrimaryAreaCode.Valid && u.PrimaryAreaCode.String != "" && !identity.ServesArea(u.PrimaryAreaCode.String) {
		identity.AreaCodes = append(identity.AreaCodes, u.PrimaryAreaCode.String)
	}
	return identity, nil
}

func (r *GormIdentityRepository) AgentsInArea(ctx context.Context, areaCode string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&user.User{}).
		Joins("LEFT JOIN agent_profiles ap ON ap.user_id = users.id").
		Where("users.role = ?", user.RoleAgent).
		Where("users.primary_area_code = ? OR (ap.area_codes IS NOT NULL AND ap.area_codes @> ?)",
			areaCode, jsonArray(areaCode)).
		Distinct().
		Pluck("users.id", &ids).Error
	if err != nil {
		return nil, apperrors.FromDB(err)
	}
	return ids, nil
}

func jsonArray(value string) string {
	b, _ := json.Marshal([]string{value})
	return string(b)
}
