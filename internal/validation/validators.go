package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("dialogue_phase", validateDialoguePhase); err != nil {
		panic(fmt.Sprintf("failed to register dialogue_phase validator: %v", err))
	}
	if err := Validate.RegisterValidation("travel_style", validateTravelStyle); err != nil {
		panic(fmt.Sprintf("failed to register travel_style validator: %v", err))
	}
	if err := Validate.RegisterValidation("feedback_type", validateFeedbackType); err != nil {
		panic(fmt.Sprintf("failed to register feedback_type validator: %v", err))
	}
}

// validateDialoguePhase validates that a string is a valid Phase enum value
func validateDialoguePhase(fl validator.FieldLevel) bool {
	return models.Phase(fl.Field().String()).IsValid()
}

// validateTravelStyle validates that a string is a valid TravelStyle enum value
func validateTravelStyle(fl validator.FieldLevel) bool {
	return models.TravelStyle(fl.Field().String()).IsValid()
}

// validateFeedbackType validates that a string is a valid FeedbackType enum value
func validateFeedbackType(fl validator.FieldLevel) bool {
	return models.FeedbackType(fl.Field().String()).IsValid()
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateDialoguePhase validates a Phase string value
func ValidateDialoguePhase(value string) error {
	if !models.Phase(value).IsValid() {
		return fmt.Errorf("invalid phase: %s", value)
	}
	return nil
}

// ValidateFeedbackType validates a FeedbackType string value
func ValidateFeedbackType(value string) error {
	if !models.FeedbackType(value).IsValid() {
		return fmt.Errorf("invalid feedback_type: %s (must be 'helpful', 'irrelevant', 'incorrect', or 'other')", value)
	}
	return nil
}
