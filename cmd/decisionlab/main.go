// Command decisionlab evaluates classifiers that predict how developers
// resolve merge-conflict chunks, project by project.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/decisionlab/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.GetLogger().Error("decisionlab failed", log.ErrAttrKey, err)
		stop()
		os.Exit(1)
	}
}
