package handler

import (
	"time"

	"github.com/lastslot/account-service/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

type signUpRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type signInRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type sessionInfoResponse struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
}

type onboardRequest struct {
	Role         string `json:"role"          validate:"required,oneof=customer provider"`
	BusinessName string `json:"business_name" validate:"required_if=Role provider"`
}

type addRoleRequest struct {
	Role         string `json:"role"          validate:"required,oneof=customer provider"`
	BusinessName string `json:"business_name" validate:"required_if=Role provider"`
}

type switchRoleRequest struct {
	TargetRole   string `json:"target_role"   validate:"required"`
	BusinessName string `json:"business_name"`
}

type updateProfileRequest struct {
	FullName     *string `json:"full_name"           validate:"omitempty,max=120"`
	Phone        *string `json:"phone"               validate:"omitempty,max=32"`
	Location     *string `json:"location"            validate:"omitempty,max=120"`
	Bio          *string `json:"bio"                 validate:"omitempty,max=1000"`
	AvatarURL    *string `json:"avatar_url"          validate:"omitempty,url"`
	BusinessName *string `json:"business_name"       validate:"omitempty,max=120"`
	Complete     *bool   `json:"is_profile_complete"`
}

func (r updateProfileRequest) toDomain() domain.ProfileUpdate {
	return domain.ProfileUpdate{
		FullName:     r.FullName,
		Phone:        r.Phone,
		Location:     r.Location,
		Bio:          r.Bio,
		AvatarURL:    r.AvatarURL,
		BusinessName: r.BusinessName,
		Complete:     r.Complete,
	}
}

type rolesResponse struct {
	Roles []domain.RoleAssignment `json:"roles"`
}

type businessResponse struct {
	UserID       string    `json:"user_id"`
	BusinessName string    `json:"business_name"`
	CreatedAt    time.Time `json:"created_at"`
}

type routeResponse struct {
	State    string `json:"state"`
	Redirect bool   `json:"redirect"`
	To       string `json:"to,omitempty"`
}
