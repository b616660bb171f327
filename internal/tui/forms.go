package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/placebolab/coach/internal/constants"
)

type LoginFormModel struct {
	Email    string
	Password string
}

type RegisterFormModel struct {
	Email    string
	Password string
	Confirm  string
	Terms    bool
}

type AssessmentFormModel struct {
	Mood         int
	Lightness    int
	Satisfaction int
	Nervousness  int
}

type PromptFormModel struct {
	Prompt string
}

type DurationFormModel struct {
	Seconds string
}

func newLoginForm(fm *LoginFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&fm.Email),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&fm.Password),
		),
	).WithTheme(huh.ThemeDracula())
}

func newRegisterForm(fm *RegisterFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&fm.Email).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("email cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&fm.Password).
				Validate(func(s string) error {
					if len(s) < constants.MinPasswordLen {
						return fmt.Errorf("at least %d characters", constants.MinPasswordLen)
					}
					return nil
				}),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&fm.Confirm),
			huh.NewConfirm().
				Title("Accept the terms?").
				Description("N=1 experiment, not medical advice.").
				Value(&fm.Terms),
		),
	).WithTheme(huh.ThemeDracula())
}

func ratingOptions() []huh.Option[int] {
	opts := make([]huh.Option[int], 0, constants.RatingMax+1)
	for v := constants.RatingMin; v <= constants.RatingMax; v++ {
		opts = append(opts, huh.NewOption(strconv.Itoa(v), v))
	}
	return opts
}

// newAssessmentForm builds the post-slot rating form: four 0-10 scales,
// default 5.
func newAssessmentForm(fm *AssessmentFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Mood").
				Options(ratingOptions()...).
				Value(&fm.Mood),
			huh.NewSelect[int]().
				Title("Lightness").
				Options(ratingOptions()...).
				Value(&fm.Lightness),
			huh.NewSelect[int]().
				Title("Satisfaction").
				Options(ratingOptions()...).
				Value(&fm.Satisfaction),
			huh.NewSelect[int]().
				Title("Nervousness").
				Options(ratingOptions()...).
				Value(&fm.Nervousness),
		),
	).WithTheme(huh.ThemeDracula())
}

func newPromptForm(fm *PromptFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Describe the practices you want").
				Placeholder("e.g. short breathing and stretching breaks").
				Value(&fm.Prompt).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("prompt cannot be empty")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula())
}

func newDurationForm(fm *DurationFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Duration (seconds)").
				Value(&fm.Seconds).
				Validate(func(s string) error {
					i, err := strconv.Atoi(s)
					if err != nil {
						return err
					}
					if i <= 0 {
						return fmt.Errorf("duration must be a positive number of seconds")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula())
}
