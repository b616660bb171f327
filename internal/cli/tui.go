package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/placebolab/coach/internal/controller"
	"github.com/placebolab/coach/internal/mirror"
	"github.com/placebolab/coach/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(appCtx *Context) error {
	if err := appCtx.EnsureDirs(); err != nil {
		return fmt.Errorf("could not create config dir: %w", err)
	}

	store, err := mirror.Open(appCtx.MirrorPath())
	if err != nil {
		return fmt.Errorf("could not open local mirror: %w", err)
	}
	defer store.Close()

	ctrl := controller.New(appCtx.NewClient(), store, mirror.NewTimerFile(appCtx.TimerPath()))
	ctrl.Bootstrap(context.Background())

	p := tea.NewProgram(tui.NewModel(ctrl),
		tea.WithAltScreen(),
		tea.WithReportFocus(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}
