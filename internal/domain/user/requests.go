package user

type RegisterRequest struct {
	Username  string `json:"username" binding:"required,alphanum,min=3,max=30"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6,strongpassword"`
	Role      string `json:"role" binding:"omitempty,oneof=user admin"`
	AdminCode string `json:"adminCode" binding:"omitempty,max=200"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest edits username and/or email; absent fields are kept.
type UpdateProfileRequest struct {
	Username *string `json:"username" binding:"omitnil,alphanum,min=3,max=30"`
	Email    *string `json:"email" binding:"omitnil,email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6,strongpassword"`
}
