package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/portfolio-blog-api/internal/models"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	slugRegex  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

const (
	maxSlugLength     = 255
	maxTitleLength    = 500
	minPasswordLength = 6
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ToError folds validation errors into a single BAD_INPUT error, or nil when errs is empty
func ToError(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return models.NewBadInputError(strings.Join(msgs, "; "))
}

// Validator checks typed request bodies before they reach the store
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateSlug checks the URL-safe kebab-case slug format
func (v *Validator) ValidateSlug(slug string) []ValidationError {
	switch {
	case slug == "":
		return []ValidationError{{Field: "slug", Message: "slug is required"}}
	case len(slug) > maxSlugLength:
		return []ValidationError{{Field: "slug", Message: fmt.Sprintf("slug must be at most %d characters", maxSlugLength)}}
	case !slugRegex.MatchString(slug):
		return []ValidationError{{Field: "slug", Message: "slug must be kebab-case (lowercase letters, digits and single dashes)", Value: slug}}
	}
	return nil
}

// ValidateArticle validates the fields of a create or update request
func (v *Validator) ValidateArticle(in *models.ArticleInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(in.Title) == "" {
		errors = append(errors, ValidationError{Field: "title", Message: "title is required"})
	} else if utf8.RuneCountInString(in.Title) > maxTitleLength {
		errors = append(errors, ValidationError{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", maxTitleLength)})
	}

	errors = append(errors, v.ValidateSlug(in.Slug)...)

	if strings.TrimSpace(in.Author) == "" {
		errors = append(errors, ValidationError{Field: "author", Message: "author is required"})
	}

	if len(in.Content) == 0 {
		errors = append(errors, ValidationError{Field: "content", Message: "content is required"})
	}
	for i, block := range in.Content {
		if msg := validateBlock(block); msg != "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("content[%d]", i),
				Message: fmt.Sprintf("content[%d]: %s", i, msg),
				Value:   block.Type,
			})
		}
	}

	if in.PublishedDate != nil && *in.PublishedDate != "" {
		if _, err := time.Parse(models.PublishedDateLayout, *in.PublishedDate); err != nil {
			errors = append(errors, ValidationError{Field: "publishedDate", Message: "publishedDate must be YYYY-MM-DD", Value: *in.PublishedDate})
		}
	}

	return errors
}

func validateBlock(b models.ContentBlock) string {
	if !models.ValidBlockTypes[b.Type] {
		return fmt.Sprintf("unknown block type %q", b.Type)
	}

	switch b.Type {
	case models.BlockHeading:
		if b.Level < 1 || b.Level > 6 {
			return "heading level must be between 1 and 6"
		}
		if strings.TrimSpace(b.Text) == "" {
			return "heading text is required"
		}
	case models.BlockParagraph, models.BlockQuote, models.BlockNote, models.BlockTLDR, models.BlockCode:
		if strings.TrimSpace(b.Text) == "" {
			return b.Type + " text is required"
		}
	case models.BlockList, models.BlockTags:
		if len(b.Items) == 0 {
			return b.Type + " items are required"
		}
	case models.BlockImage:
		if strings.TrimSpace(b.Src) == "" {
			return "image src is required"
		}
	case models.BlockFAQ:
		if strings.TrimSpace(b.Question) == "" || strings.TrimSpace(b.Answer) == "" {
			return "faq question and answer are required"
		}
	}
	return ""
}

// ValidateComment validates a new comment. Author fields are checked after the
// handler has filled them from the session.
func (v *Validator) ValidateComment(req *models.CreateCommentRequest) []ValidationError {
	errors := v.ValidateCommentContent(req.Content)

	if strings.TrimSpace(req.UserID) == "" {
		errors = append(errors, ValidationError{Field: "userId", Message: "userId is required"})
	}
	if strings.TrimSpace(req.UserName) == "" {
		errors = append(errors, ValidationError{Field: "userName", Message: "userName is required"})
	}
	if req.ParentID != nil && strings.TrimSpace(*req.ParentID) == "" {
		errors = append(errors, ValidationError{Field: "parentId", Message: "parentId must not be empty when present"})
	}

	return errors
}

// ValidateCommentContent checks comment text on create and edit
func (v *Validator) ValidateCommentContent(content string) []ValidationError {
	if strings.TrimSpace(content) == "" {
		return []ValidationError{{Field: "content", Message: "content is required"}}
	}
	if n := utf8.RuneCountInString(content); n > models.MaxCommentLength {
		return []ValidationError{{
			Field:   "content",
			Message: fmt.Sprintf("content must be at most %d characters", models.MaxCommentLength),
			Value:   n,
		}}
	}
	return nil
}

// ValidateRole checks a role against the allowed set
func (v *Validator) ValidateRole(role models.Role) []ValidationError {
	if role == "" {
		return []ValidationError{{Field: "role", Message: "role is required"}}
	}
	if !models.ValidRoles[role] {
		return []ValidationError{{Field: "role", Message: "invalid role, must be one of: admin, editor, viewer", Value: role}}
	}
	return nil
}

// ValidateRoleUpdate validates PUT /admin/users/role
func (v *Validator) ValidateRoleUpdate(req *models.UpdateRoleRequest) []ValidationError {
	var errors []ValidationError
	if strings.TrimSpace(req.UserID) == "" {
		errors = append(errors, ValidationError{Field: "userId", Message: "userId is required"})
	}
	return append(errors, v.ValidateRole(req.Role)...)
}

// ValidateCreateUser validates POST /admin/users. An empty role means the default role.
func (v *Validator) ValidateCreateUser(req *models.CreateUserRequest) []ValidationError {
	var errors []ValidationError

	if req.Email == "" {
		errors = append(errors, ValidationError{Field: "email", Message: "email is required"})
	} else if !emailRegex.MatchString(req.Email) {
		errors = append(errors, ValidationError{Field: "email", Message: "invalid email format", Value: req.Email})
	}

	if len(req.Password) < minPasswordLength {
		errors = append(errors, ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)})
	}

	if req.Role != "" {
		errors = append(errors, v.ValidateRole(req.Role)...)
	}

	return errors
}

// ValidateReactionType checks a single reaction key and action
func (v *Validator) ValidateReactionType(reactionType, action string) []ValidationError {
	var errors []ValidationError
	if !models.ValidReactions[reactionType] {
		errors = append(errors, ValidationError{
			Field:   "reactionType",
			Message: "invalid reactionType, must be one of: likes, hearts, laughs, dislikes",
			Value:   reactionType,
		})
	}
	if action != "" && action != models.ReactionActionAdd && action != models.ReactionActionRemove {
		errors = append(errors, ValidationError{Field: "action", Message: "action must be 'add' or 'remove'", Value: action})
	}
	return errors
}
