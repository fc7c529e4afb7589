// Package refscript manages the reference scripts practiced against: paired
// source and target texts with optional key points, loaded from YAML deck
// files and served to the practice coordinator.
//
// A unit's Primary text is written in the unit's Language; the Opposite text
// is its counterpart in the paired language. The practitioner listens to or
// reads the primary and speaks the opposite.
//
// All store operations are safe for concurrent use.
package refscript

import (
	"errors"
	"fmt"
)

// Unit is one practice item in a deck.
type Unit struct {
	// ID is a unique identifier. Auto-generated if empty during import.
	ID string `yaml:"id" json:"id"`

	// Title is a short display name for the unit.
	Title string `yaml:"title" json:"title"`

	// Language is the base language code of the primary script ("ko", "zh").
	Language string `yaml:"language" json:"language"`

	// Primary is the script in the unit's own language.
	Primary string `yaml:"primary" json:"primary"`

	// Opposite is the counterpart script in the paired language.
	Opposite string `yaml:"opposite,omitempty" json:"opposite,omitempty"`

	// KeyPoints lists the facts an interpretation must preserve.
	KeyPoints []string `yaml:"key_points,omitempty" json:"key_points,omitempty"`

	// Tags are searchable labels for categorization.
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// supportedLanguages are the base codes a deck may declare for a unit.
var supportedLanguages = map[string]bool{
	"ko": true,
	"zh": true,
	"en": true,
	"ja": true,
}

// LanguageSupported reports whether code is a recognised base language code.
func LanguageSupported(code string) bool {
	return supportedLanguages[code]
}

// ContentReference returns the text the content evaluation compares against.
// The primary script wins; the opposite script is the fallback when no
// primary exists.
func (u Unit) ContentReference() string {
	if u.Primary != "" {
		return u.Primary
	}
	return u.Opposite
}

// Validate checks a [Unit] for required fields.
//
// Rules:
//   - Language must be a supported base code.
//   - At least one of Primary and Opposite must be non-empty.
func Validate(unit Unit) error {
	var errs []error

	if !LanguageSupported(unit.Language) {
		errs = append(errs, fmt.Errorf("language %q is not supported", unit.Language))
	}

	if unit.Primary == "" && unit.Opposite == "" {
		errs = append(errs, errors.New("unit must carry a primary or opposite script"))
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
