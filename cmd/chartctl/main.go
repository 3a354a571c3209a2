package main

import (
	"context"
	"spotify-charts/cmd/chartctl/commands"
	"spotify-charts/lib/osutil"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
