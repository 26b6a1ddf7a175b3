package domain

import (
	"strings"
	"time"
)

// Profile is the user-facing account record. ActiveRole must always match an
// active RoleAssignment of the same user.
type Profile struct {
	UserID       string    `json:"user_id" bson:"_id"`
	Role         Role      `json:"role" bson:"role"`
	ActiveRole   Role      `json:"active_role" bson:"active_role"`
	FullName     string    `json:"full_name,omitempty" bson:"full_name,omitempty"`
	Phone        string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Location     string    `json:"location,omitempty" bson:"location,omitempty"`
	Bio          string    `json:"bio,omitempty" bson:"bio,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty" bson:"avatar_url,omitempty"`
	BusinessName string    `json:"business_name,omitempty" bson:"business_name,omitempty"`
	Complete     bool      `json:"is_profile_complete" bson:"is_profile_complete"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// EffectiveRole is the role that governs the UI: the active role when set,
// otherwise the role declared at onboarding.
func (p *Profile) EffectiveRole() Role {
	if p.ActiveRole.Valid() {
		return p.ActiveRole
	}
	return p.Role
}

// ProfileUpdate carries a partial profile update. Nil fields are left as is.
type ProfileUpdate struct {
	FullName     *string `json:"full_name,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Location     *string `json:"location,omitempty"`
	Bio          *string `json:"bio,omitempty"`
	AvatarURL    *string `json:"avatar_url,omitempty"`
	BusinessName *string `json:"business_name,omitempty"`
	Complete     *bool   `json:"is_profile_complete,omitempty"`
}

// Apply merges u into p and reports ErrProfileIncomplete when u marks the
// profile complete without the fields a complete profile needs.
func (u ProfileUpdate) Apply(p *Profile) error {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&p.FullName, u.FullName)
	set(&p.Phone, u.Phone)
	set(&p.Location, u.Location)
	set(&p.Bio, u.Bio)
	set(&p.AvatarURL, u.AvatarURL)
	set(&p.BusinessName, u.BusinessName)

	if u.Complete != nil {
		if *u.Complete {
			if p.FullName == "" || p.Phone == "" {
				return ErrProfileIncomplete
			}
			if p.EffectiveRole() == RoleProvider && p.BusinessName == "" {
				return ErrProfileIncomplete
			}
		}
		p.Complete = *u.Complete
	}
	return nil
}
