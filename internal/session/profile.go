package session

import "instagram-backend/internal/models"

// ProfileUpdate is a partial profile edit. Nil fields keep their previous value.
type ProfileUpdate struct {
	Name     *string `json:"name,omitempty"`
	Username *string `json:"username,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
}

// Empty reports whether no field is supplied
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Username == nil && u.Bio == nil && u.ImageURL == nil
}

// Fields returns the supplied fields keyed by their stored document names
func (u ProfileUpdate) Fields() map[string]any {
	fields := make(map[string]any, 4)
	if u.Name != nil {
		fields["name"] = *u.Name
	}
	if u.Username != nil {
		fields["userName"] = *u.Username
	}
	if u.Bio != nil {
		fields["bio"] = *u.Bio
	}
	if u.ImageURL != nil {
		fields["imageUrl"] = *u.ImageURL
	}
	return fields
}

// MergeProfile builds the profile for userID by applying update over prev.
// prev may be nil. Neither argument is modified.
func MergeProfile(userID string, prev *models.UserProfile, update ProfileUpdate) models.UserProfile {
	var merged models.UserProfile
	if prev != nil {
		merged = *prev
		merged.Following = append([]string(nil), prev.Following...)
	}
	merged.UserID = userID

	if update.Name != nil {
		merged.Name = *update.Name
	}
	if update.Username != nil {
		merged.UserName = *update.Username
	}
	if update.Bio != nil {
		merged.Bio = *update.Bio
	}
	if update.ImageURL != nil {
		merged.ImageURL = *update.ImageURL
	}
	return merged
}
