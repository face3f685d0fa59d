package main

import (
	"context"
	"io"

	"github.com/Cyclone1070/conanws/internal/overlay"
)

// cliHost tells the user how to pick up a changed environment. A CLI cannot
// change its parent shell, so new shells are started through conanws.
type cliHost struct {
	out io.Writer
}

func (h *cliHost) Refresh(_ context.Context, marker overlay.Marker) error {
	printInfo(h.out, "Conan %s environment is active (%d variables). Start a shell with it using 'conanws env shell'.",
		marker.Kind, len(marker.Overlay))
	return nil
}
