// Package users implements the identity core: the user record model, the
// field redactor, the store adapter over the abstract table, the identity
// repository, and the identity service.
package users

import (
	"authkeeper/internal/server/auth"
	"authkeeper/internal/server/table"
)

// Field names of the stored user record. The email is the sole lookup key;
// exactly one record exists per email.
const (
	FieldEmail        = "email"
	FieldUsername     = "username"
	FieldPassword     = "password"
	FieldPasswordHash = "passwordHash"
	FieldPasswordSalt = "passwordSalt"
	FieldBio          = "bio"
	FieldImage        = "image"
	FieldToken        = "token"
)

// Record is a user item as it travels through the table.
type Record = table.Item

// Profile is the public view of a user record. Token is populated only
// after login, register, update, and getUserByToken.
type Profile struct {
	Email      string  `json:"email"`
	Username   string  `json:"username"`
	Bio        *string `json:"bio"`
	Image      *string `json:"image"`
	Token      *string `json:"token"`
	CreateTime int64   `json:"createTime,omitempty"`
	UpdateTime int64   `json:"updateTime,omitempty"`
}

// Credentials is the authentication input. Password is plaintext and is
// never stored; Username is only required for registration.
type Credentials struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// AuthBody is the request wrapper for register and login.
type AuthBody struct {
	User *Credentials `json:"user"`
}

// ProfileBody is the response wrapper for every profile-returning operation.
type ProfileBody struct {
	User *Profile `json:"user"`
}

// UpdateBody is the request wrapper for update. The patch is kept as a raw
// map so that fields absent from the patch can be told apart from fields
// explicitly set to an empty value.
type UpdateBody struct {
	User map[string]any `json:"user"`
}

func recordToProfile(rec Record) *Profile {
	p := &Profile{
		Email:    table.ItemString(rec, FieldEmail),
		Username: table.ItemString(rec, FieldUsername),
	}
	if bio, ok := rec[FieldBio].(string); ok {
		p.Bio = &bio
	}
	if image, ok := rec[FieldImage].(string); ok {
		p.Image = &image
	}
	if token, ok := rec[FieldToken].(string); ok {
		p.Token = &token
	}
	p.CreateTime, _ = table.ItemInt64(rec, table.FieldCreateTime)
	p.UpdateTime, _ = table.ItemInt64(rec, table.FieldUpdateTime)
	return p
}

func claimsFor(p *Profile) auth.Claims {
	return auth.Claims{
		Email:      p.Email,
		Username:   p.Username,
		Bio:        p.Bio,
		Image:      p.Image,
		CreateTime: p.CreateTime,
		UpdateTime: p.UpdateTime,
	}
}
