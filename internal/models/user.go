package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	FullName string `bson:"full_name" json:"fullName"`
	Username string `bson:"username" json:"username"`
	Email    string `bson:"email" json:"email"`
	Password string `bson:"password" json:"-"` // Don't return password in JSON

	IsVerified             bool       `bson:"is_verified" json:"isVerified"`
	VerificationOTP        *string    `bson:"verification_otp,omitempty" json:"-"`
	VerificationOTPExpires *time.Time `bson:"verification_otp_expires,omitempty" json:"-"`

	ResetPasswordOTP        *string    `bson:"reset_password_otp,omitempty" json:"-"`
	ResetPasswordOTPExpires *time.Time `bson:"reset_password_otp_expires,omitempty" json:"-"`

	// Farm profile fields
	ProfileImage   string   `bson:"profile_image,omitempty" json:"profileImage,omitempty"`
	Location       string   `bson:"location,omitempty" json:"location,omitempty"`
	FarmSize       string   `bson:"farm_size,omitempty" json:"farmSize,omitempty"`
	Experience     string   `bson:"experience,omitempty" json:"experience,omitempty"`
	SoilType       string   `bson:"soil_type,omitempty" json:"soilType,omitempty"`
	IrrigationType string   `bson:"irrigation_type,omitempty" json:"irrigationType,omitempty"`
	FarmingType    string   `bson:"farming_type,omitempty" json:"farmingType,omitempty"`
	Devices        []string `bson:"devices,omitempty" json:"devices,omitempty"`
}

// PublicView returns the fields safe to send to the client after
// verification or login. The password hash and OTP state never leave
// the server.
func (u *User) PublicView() map[string]interface{} {
	return map[string]interface{}{
		"id":             u.ID.Hex(),
		"fullName":       u.FullName,
		"username":       u.Username,
		"email":          u.Email,
		"profileImage":   u.ProfileImage,
		"location":       u.Location,
		"farmSize":       u.FarmSize,
		"experience":     u.Experience,
		"soilType":       u.SoilType,
		"irrigationType": u.IrrigationType,
		"farmingType":    u.FarmingType,
		"devices":        u.Devices,
		"createdAt":      u.CreatedAt,
	}
}
