package services

import (
	"errors"
	"regexp"

	"github.com/dmitrijs2005/communitykeeper/internal/common"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

var (
	reLower   = regexp.MustCompile(`[a-z]`)
	reUpper   = regexp.MustCompile(`[A-Z]`)
	reDigit   = regexp.MustCompile(`[0-9]`)
	reSpecial = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
	reNoSpace = regexp.MustCompile(`^\S+$`)
)

// passwordRules is shared by signup and password change.
func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("password is required"),
		validation.RuneLength(8, 20).Error("password must be 8 to 20 characters"),
		validation.Match(reLower).Error("password needs a lowercase letter"),
		validation.Match(reUpper).Error("password needs an uppercase letter"),
		validation.Match(reDigit).Error("password needs a digit"),
		validation.Match(reSpecial).Error("password needs a special character"),
	}
}

func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email,
			validation.Required.Error("email is required"),
			validation.Length(1, 254).Error("email must be at most 254 characters"),
			is.Email.Error("email is not a valid address"),
		),
		validation.Field(&r.Password, passwordRules()...),
		validation.Field(&r.Nickname,
			validation.Required.Error("nickname is required"),
			validation.RuneLength(1, 10).Error("nickname must be at most 10 characters"),
			validation.Match(reNoSpace).Error("nickname must not contain spaces"),
		),
		validation.Field(&r.ProfileImageURL,
			validation.Required.Error("profile image is required"),
			validation.RuneLength(1, 500).Error("profile image url must be at most 500 characters"),
		),
	)
}

func (r ProfileUpdate) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Nickname,
			validation.NilOrNotEmpty.Error("nickname must not be empty"),
			validation.RuneLength(2, 10).Error("nickname must be 2 to 10 characters"),
			validation.Match(reNoSpace).Error("nickname must not contain spaces"),
		),
		validation.Field(&r.ProfileImageURL,
			validation.NilOrNotEmpty.Error("profile image url must not be empty"),
			validation.RuneLength(1, 500).Error("profile image url must be at most 500 characters"),
		),
	)
}

type passwordChange struct {
	Password string `json:"password"`
	Confirm  string `json:"confirm_password"`
}

func (r passwordChange) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, passwordRules()...),
		validation.Field(&r.Confirm,
			validation.Required.Error("confirmation is required"),
			validation.In(r.Password).Error("passwords do not match"),
		),
	)
}

// validationError turns an ozzo result into a BadRequest carrying the
// field-specific message. Rule errors that are not validation failures are internal.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var ie validation.InternalError
	if errors.As(err, &ie) {
		return common.Internal(err)
	}
	return common.BadRequest(err.Error())
}
