package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lepinkainen/videoenhance/types"
	"github.com/lepinkainen/videoenhance/web"
)

// ServeCmd runs the browser front-end
type ServeCmd struct {
	Addr      string `help:"Listen address, overrides VIDEOENHANCE_ADDR"`
	Endpoint  string `help:"Enhancement service URL, overrides VIDEOENHANCE_ENDPOINT"`
	NoCompare bool   `name:"no-compare" help:"Skip the before/after comparison"`
}

func (cmd *ServeCmd) Run(appCtx *types.AppContext) error {
	cfg, err := appConfig(appCtx)
	if err != nil {
		return err
	}
	logger := appCtx.Log()

	svc, err := newServices(cfg, cmd.Endpoint, logger, !cmd.NoCompare)
	if err != nil {
		return err
	}

	server, err := web.New(web.Options{
		Config:    cfg,
		Enhancer:  svc.enhancer,
		Prober:    svc.prober,
		Comparer:  svc.comparer,
		Logger:    logger,
		AuthDelay: web.DefaultAuthDelay,
	})
	if err != nil {
		return err
	}

	addr := cfg.Addr
	if cmd.Addr != "" {
		addr = cmd.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Run(ctx, addr)
}
