package domain

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type CreateReviewRequest struct {
	Review string  `json:"review"`
	Rating float64 `json:"rating"`
	Tour   string  `json:"tour,omitempty"`
	User   string  `json:"user,omitempty"`
}
