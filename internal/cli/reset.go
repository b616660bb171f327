package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/placebolab/coach/internal/keyring"
)

// ResetCmd erases local state only: the mirror database, the saved timer and
// the stored tokens. Server-side data is untouched; the in-app danger zone
// handles full erasure.
type ResetCmd struct {
	Yes bool `help:"Skip the confirmation prompt." short:"y"`
}

func (c *ResetCmd) Run(appCtx *Context) error {
	if !c.Yes {
		var confirmed bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Erase local data and stored tokens?").
					Value(&confirmed),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return nil
		}
	}

	for _, path := range []string{appCtx.MirrorPath(), appCtx.TimerPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("could not remove %s: %w", path, err)
		}
	}
	if err := keyring.DeleteTokens(); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("could not clear keyring: %w", err)
	}
	fmt.Println("Local data erased.")
	return nil
}
