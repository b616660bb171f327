package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/placebolab/coach/internal/validation"
)

// LoginCmd signs in from the terminal so the TUI starts authenticated.
type LoginCmd struct {
	Email string `help:"Account email." short:"e"`
}

func (c *LoginCmd) Run(appCtx *Context) error {
	email := c.Email
	var password string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&email),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&password),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if err := validation.Login(email, password); err != nil {
		return err
	}

	client := appCtx.NewClient()
	if err := client.Login(context.Background(), email, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Printf("Signed in as %s.\n", email)
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(appCtx *Context) error {
	client := appCtx.NewClient()
	if !client.HasSession() {
		fmt.Println("No stored session.")
		return nil
	}
	client.Logout(context.Background())
	fmt.Println("Signed out.")
	return nil
}
