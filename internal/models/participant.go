package models

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"attblink/internal/utils"

	"gopkg.in/yaml.v3"
)

// Gender codes stored with every trial.
const (
	GenderWoman = 0
	GenderOther = 1
)

// Participant holds the identity fields collected before the experiment starts.
type Participant struct {
	Name      string `yaml:"name" json:"name"`
	Age       int    `yaml:"age" json:"age"`
	Gender    string `yaml:"gender" json:"gender"` // woman, man or other
	Education string `yaml:"education" json:"education"`
	Email     string `yaml:"email" json:"email"`
}

// LoadParticipant reads and validates a participant file.
func LoadParticipant(path string) (*Participant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read participant file: %w", err)
	}

	var p Participant
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal participant YAML: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate reports every missing or invalid field at once.
func (p Participant) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	switch {
	case p.Age == 0:
		errs = append(errs, errors.New("age is required"))
	case !utils.IsAdult(p.Age):
		errs = append(errs, fmt.Errorf("participant must be at least %d years old", utils.MinimumAge))
	}
	if strings.TrimSpace(p.Education) == "" {
		errs = append(errs, errors.New("education is required"))
	}
	switch strings.ToLower(p.Gender) {
	case "woman", "man", "other":
	default:
		errs = append(errs, fmt.Errorf("gender must be woman, man or other, got %q", p.Gender))
	}
	switch {
	case p.Email == "":
		errs = append(errs, errors.New("email is required"))
	case !utils.IsValidEmail(p.Email):
		errs = append(errs, errors.New("email address is not valid"))
	}
	return errors.Join(errs...)
}

// GenderCode is 0 for women and 1 for everyone else.
func (p Participant) GenderCode() int {
	if strings.EqualFold(p.Gender, "woman") {
		return GenderWoman
	}
	return GenderOther
}
