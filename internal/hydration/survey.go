package hydration

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Activity levels accepted by the survey.
const (
	ActivityLow    = "low"
	ActivityMedium = "medium"
	ActivityHigh   = "high"
)

// SurveyInput captures the onboarding answers used to derive a daily goal.
type SurveyInput struct {
	Name          string  `json:"name" validate:"required,max=100"`
	Gender        string  `json:"gender" validate:"required,oneof=male female other"`
	Age           int     `json:"age" validate:"required,gt=0,lte=120"`
	WeightLbs     float64 `json:"weight_lbs" validate:"required,gt=0,lte=1500"`
	ActivityLevel string  `json:"activity_level" validate:"required,oneof=low medium high"`
	BottleSizeOz  float64 `json:"bottle_size_oz" validate:"required,gt=0,lte=256"`
}

func (i *SurveyInput) normalize() {
	i.Name = strings.TrimSpace(i.Name)
	i.Gender = strings.ToLower(strings.TrimSpace(i.Gender))
	i.ActivityLevel = strings.ToLower(strings.TrimSpace(i.ActivityLevel))
}

// Validate ensures the survey answers meet the domain constraints.
func (i SurveyInput) Validate() error {
	if err := validate.Struct(i); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, describeValidation(err))
	}
	return nil
}

// CalculateDailyGoal derives the recommended daily intake in ounces.
// Weight is in pounds; younger users get +5 oz and users over 55 get -5 oz.
func CalculateDailyGoal(weightLbs float64, age int, activityLevel string) float64 {
	intake := weightLbs * 0.67
	switch {
	case age < 30:
		intake += 5
	case age > 55:
		intake -= 5
	}

	switch activityLevel {
	case ActivityMedium:
		intake += 12
	case ActivityHigh:
		intake += 24
	}
	return math.Round(intake)
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(problems, "; ")
}
