package cmd

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lepinkainen/videoenhance/config"
	"github.com/lepinkainen/videoenhance/enhance"
	"github.com/lepinkainen/videoenhance/types"
	"github.com/lepinkainen/videoenhance/utils"
	"github.com/lepinkainen/videoenhance/video"
)

// services are the collaborators every workflow needs
type services struct {
	enhancer *enhance.Client
	prober   *video.FFProbe
	comparer video.Comparer // nil when comparison is off or ffmpeg is missing
}

// appConfig returns the configuration main loaded, or loads it when the command runs
// on its own
func appConfig(appCtx *types.AppContext) (*config.Config, error) {
	if appCtx != nil && appCtx.Config != nil {
		return appCtx.Config, nil
	}
	return config.Load()
}

// newServices wires the enhancement client and the ffprobe-based validation. An
// endpoint flag overrides the configured one.
func newServices(cfg *config.Config, endpoint string, logger *logrus.Logger, compare bool) (*services, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = cfg.Endpoint
	}
	if endpoint == "" {
		return nil, fmt.Errorf("%w: pass --endpoint or set VIDEOENHANCE_ENDPOINT", enhance.ErrNoEndpoint)
	}

	missing, err := utils.CheckTools(utils.MediaTools("ffprobe", "ffmpeg"))
	if err != nil {
		return nil, err
	}

	prober := video.NewFFProbe(logger)
	svc := &services{
		enhancer: enhance.NewClient(enhance.Options{
			Endpoint: endpoint,
			Timeout:  cfg.RequestTimeout,
			Logger:   logger,
		}),
		prober: prober,
	}

	switch {
	case !compare:
	case len(missing) > 0:
		logger.WithField("tool", missing[0].Binary).Warn("Comparison disabled, tool not found")
	default:
		svc.comparer = prober
	}
	return svc, nil
}
