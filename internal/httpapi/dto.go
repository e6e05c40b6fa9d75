package httpapi

import "geoloc/internal/auth"

type signUpRequest struct {
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	DisplayName     string `json:"display_name"`
}

func (r signUpRequest) toSignUp() auth.SignUp {
	return auth.SignUp{
		Email:           r.Email,
		Password:        r.Password,
		ConfirmPassword: r.ConfirmPassword,
		DisplayName:     r.DisplayName,
	}
}
