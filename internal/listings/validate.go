package listings

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lostfound/community/internal/feed"
)

// Field limits for new listings
const (
	MinTitleLength       = 3
	MinDescriptionLength = 10
)

var validate = validator.New()

// Validate checks a new listing before anything is uploaded or stored.
// It returns the first *feed.ValidationError found.
func Validate(in *CreateInput) error {
	if !in.Kind.Valid() {
		return feed.NewValidationError("type", feed.ReasonInvalid, "type must be lost or found")
	}
	if len([]rune(strings.TrimSpace(in.Title))) < MinTitleLength {
		return feed.NewValidationError("title", feed.ReasonTooShort, "title must be at least 3 characters")
	}
	if len([]rune(strings.TrimSpace(in.Description))) < MinDescriptionLength {
		return feed.NewValidationError("description", feed.ReasonTooShort, "description must be at least 10 characters")
	}
	if len(in.Images) > feed.MaxImages {
		return feed.NewValidationError("images", feed.ReasonTooMany, "at most 5 images")
	}
	if email := strings.TrimSpace(in.ContactEmail); email != "" {
		if err := validate.Var(email, "email"); err != nil {
			return feed.NewValidationError("contact_email", feed.ReasonInvalid, "contact email is not a valid address")
		}
	}
	if in.RewardOffered != nil && *in.RewardOffered < 0 {
		return feed.NewValidationError("reward_offered", feed.ReasonInvalid, "reward must not be negative")
	}
	return nil
}

// SplitTags splits a comma separated tag list, dropping blanks
func SplitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
