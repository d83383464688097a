package cli

import (
	"context"
	"fmt"

	"github.com/cruciblehq/compd/internal"
)

// Represents the 'compd version' command.
type VersionCmd struct{}

// Executes the version command.
func (c *VersionCmd) Run(ctx context.Context) error {
	fmt.Println(internal.VersionString())
	fmt.Println("compiler", internal.CompilerHash())
	return nil
}
