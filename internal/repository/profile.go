package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"giveaway-referrals/internal/models"
)

// DefaultProfilePic is shown for referrers without an uploaded picture.
const DefaultProfilePic = "https://i.ibb.co/FLSgNhW9/Free.png"

// profileLookupBatch bounds the IN list of one lookup, well under the bind
// parameter limits of sqlite (32766) and postgres (65535).
const profileLookupBatch = 500

// ProfileImages maps each username to its display picture, falling back to
// DefaultProfilePic. Names without a user account get the default too.
func (r *Repository) ProfileImages(ctx context.Context, usernames []string) (map[string]string, error) {
	images := make(map[string]string, len(usernames))
	for _, name := range usernames {
		images[name] = DefaultProfilePic
	}

	for start := 0; start < len(usernames); start += profileLookupBatch {
		end := min(start+profileLookupBatch, len(usernames))

		var users []models.User
		if err := r.db.WithContext(ctx).
			Select("username", "profile_pic").
			Where("username IN ?", usernames[start:end]).
			Find(&users).Error; err != nil {
			return nil, storeFailure("profile images", err)
		}
		for _, u := range users {
			if u.ProfilePic != nil && *u.ProfilePic != "" {
				images[u.Username] = *u.ProfilePic
			}
		}
	}
	return images, nil
}

// ErrUserNotFound is returned when no profile exists for a user id.
var ErrUserNotFound = errors.New("user not found")

// GetUser loads a user profile by id
func (r *Repository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storeFailure("get user", err)
	}
	return &user, nil
}
