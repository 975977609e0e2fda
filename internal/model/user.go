package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account statuses
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User document fields
const (
	UserFieldName       = "name"
	UserFieldEmail      = "email"
	UserFieldPhone      = "phone"
	UserFieldProfileImg = "profile_img"
	UserFieldStatus     = "status"
)

// Common document fields
const (
	FieldID        = "_id"
	FieldUpdatedAt = "updated_at"
	FieldVersion   = "version"
)

// User represents a user account. It carries no password material, so any
// read decoding into it cannot leak the stored hash.
type User struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name       string             `json:"name" bson:"name"`
	Email      string             `json:"email" bson:"email"`
	Phone      string             `json:"phone,omitempty" bson:"phone,omitempty"`
	ProfileImg string             `json:"profile_img,omitempty" bson:"profile_img,omitempty"`
	Status     string             `json:"status" bson:"status"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at" bson:"updated_at"`
	Version    int64              `json:"-" bson:"version"`
}

// UserCredentials is the login-only view of a user that includes the hash.
type UserCredentials struct {
	User         `bson:",inline"`
	PasswordHash string `bson:"password"`
}

// CreateUserRequest is the payload for registering a user.
type CreateUserRequest struct {
	Name     string `json:"name" form:"name" validate:"required"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Phone    string `json:"phone" form:"phone"`
	Password string `json:"password" form:"password" validate:"required"`
	Status   string `json:"status" form:"status" validate:"omitempty,oneof=active inactive"`
}

// LoginRequest is the payload for password login.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// UserUpdate is a typed, validated partial update of a user.
type UserUpdate struct {
	Name       Optional[string] `json:"name"`
	Email      Optional[string] `json:"email"`
	Phone      Optional[string] `json:"phone"`
	ProfileImg Optional[string] `json:"profile_img"`
	Status     Optional[string] `json:"status"`
}

// Normalize applies the no-op rule for blank values and validates the
// remaining fields. Profile images only arrive through uploads, so a client
// may clear one but never point it somewhere.
func (u *UserUpdate) Normalize() error {
	u.Name = blankAsAbsent(u.Name)
	u.Email = blankAsAbsent(u.Email)
	u.Phone = blankAsAbsent(u.Phone)
	u.ProfileImg = blankAsAbsent(u.ProfileImg)
	u.Status = blankAsAbsent(u.Status)

	var err error
	err = appendErr(err, requireNotNull("name", u.Name))
	err = appendErr(err, requireNotNull("email", u.Email))
	err = appendErr(err, requireNotNull("status", u.Status))
	if email, ok := u.Email.Get(); ok {
		err = appendErr(err, validateVar("email", email, "email"))
	}
	if status, ok := u.Status.Get(); ok {
		err = appendErr(err, validateVar("status", status, "oneof=active inactive"))
	}
	if _, ok := u.ProfileImg.Get(); ok {
		err = appendErr(err, invalid("profile_img", "can only be set by uploading a file"))
	}
	return err
}

// ParseUserUpdateForm builds a UserUpdate from form values. Missing and empty
// fields are no-ops.
func ParseUserUpdateForm(values map[string][]string) (UserUpdate, error) {
	u := UserUpdate{
		Name:   formString(values, "name"),
		Email:  formString(values, "email"),
		Phone:  formString(values, "phone"),
		Status: formString(values, "status"),
	}
	if err := u.Normalize(); err != nil {
		return UserUpdate{}, err
	}
	return u, nil
}
