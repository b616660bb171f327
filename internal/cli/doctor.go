package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/placebolab/coach/internal/keyring"
	"github.com/placebolab/coach/internal/mirror"
)

// DoctorCmd checks the pieces the app depends on and reports each one.
type DoctorCmd struct{}

func (c *DoctorCmd) Run(appCtx *Context) error {
	ok := true
	report := func(name string, err error) {
		if err != nil {
			ok = false
			fmt.Printf("  ✗ %-16s %v\n", name, err)
			return
		}
		fmt.Printf("  ✓ %s\n", name)
	}

	fmt.Printf("coach doctor (%s)\n", appCtx.APIURL)

	report("config dir", appCtx.EnsureDirs())

	if keyring.IsAvailable() {
		report("keyring", nil)
	} else {
		report("keyring", fmt.Errorf("no OS keyring backend available"))
	}

	store, err := mirror.Open(appCtx.MirrorPath())
	report("local mirror", err)
	if err == nil {
		store.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	report("server", appCtx.NewClient().Ping(ctx))

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	return nil
}
