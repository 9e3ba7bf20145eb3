package library

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Publication year must fall between year 0 and next year. Zero means
	// "unknown" and is skipped via omitempty on the field tag.
	_ = v.RegisterValidation("pubyear", func(fl validator.FieldLevel) bool {
		year := int(fl.Field().Int())
		return year >= 0 && year <= time.Now().Year()+1
	})
	return v
}

// bookRules mirrors the save-time validation of the catalog: every
// violated rule yields one message in the resulting ValidationError.
type bookRules struct {
	Title           string `validate:"required"`
	Author          string `validate:"required"`
	PublicationYear int    `validate:"omitempty,pubyear"`
	TotalCopies     int    `validate:"gt=0"`
	AvailableCopies int    `validate:"gte=0,ltefield=TotalCopies"`
}

// registrationRules covers the user-registration checks.
type registrationRules struct {
	Username string `validate:"min=3"`
	FullName string `validate:"min=2"`
	Email    string `validate:"required,email"`
	Password string `validate:"min=8"`
	UserType string `validate:"oneof=reader librarian"`
}

// fieldMessages maps StructField.Tag to the message shown to the user.
var fieldMessages = map[string]string{
	"Title.required":            "Book title is required",
	"Author.required":           "Author name is required",
	"PublicationYear.pubyear":   "Invalid publication year",
	"TotalCopies.gt":            "Total copies must be greater than 0",
	"AvailableCopies.gte":       "Available copies cannot be negative",
	"AvailableCopies.ltefield":  "Available copies cannot exceed total copies",
	"Username.min":              "Username must be at least 3 characters long",
	"FullName.min":              "Full name must be at least 2 characters long",
	"Email.required":            "Valid email address is required",
	"Email.email":               "Valid email address is required",
	"Password.min":              "Password must be at least 8 characters long",
	"UserType.oneof":            "User type must be 'reader' or 'librarian'",
}

func validationMessages(err error) *ValidationError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationError{Messages: []string{err.Error()}}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if msg, ok := fieldMessages[fe.StructField()+"."+fe.Tag()]; ok {
			msgs = append(msgs, msg)
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.StructField()))
		}
	}
	return &ValidationError{Messages: msgs}
}

// validateBook checks a book before it is saved.
func validateBook(b *Book) error {
	rules := bookRules{
		Title:           strings.TrimSpace(b.Title),
		Author:          strings.TrimSpace(b.Author),
		PublicationYear: b.PublicationYear,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
	}
	if err := validate.Struct(rules); err != nil {
		return validationMessages(err)
	}
	return nil
}

// validateRegistration checks a user plus plaintext password before
// registration or update.
func validateRegistration(u *User, password string) error {
	rules := registrationRules{
		Username: strings.TrimSpace(u.Username),
		FullName: strings.TrimSpace(u.FullName),
		Email:    u.Email,
		Password: password,
		UserType: string(u.UserType),
	}
	if err := validate.Struct(rules); err != nil {
		return validationMessages(err)
	}
	return nil
}
