package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/lepinkainen/videoenhance/types"
	"github.com/lepinkainen/videoenhance/ui"
	"github.com/lepinkainen/videoenhance/utils"
	"github.com/lepinkainen/videoenhance/video"
	"github.com/lepinkainen/videoenhance/workflow"
)

// ProbeCmd runs the playability check used on enhanced videos against local files
type ProbeCmd struct {
	Files   []string      `arg:"" name:"files" help:"Video files to check" type:"existingfile"`
	Timeout time.Duration `help:"How long loading the metadata of one file may take" default:"5s"`
}

func (cmd *ProbeCmd) Run(appCtx *types.AppContext) error {
	if _, err := utils.CheckTools(utils.MediaTools("ffprobe", "ffmpeg")); err != nil {
		return err
	}
	prober := video.NewFFProbe(appCtx.Log())
	if cmd.Timeout <= 0 {
		cmd.Timeout = workflow.DefaultValidationTimeout
	}

	fmt.Printf("%s\n", ui.InfoStyle.Render(fmt.Sprintf("Checking %d files...", len(cmd.Files))))

	var playable, failed int
	for _, videoFile := range cmd.Files {
		if !video.IsVideoFile(videoFile) {
			fmt.Printf("⚠️  %s is not a video file, skipping\n", videoFile)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
		meta, err := prober.ProbeFile(ctx, videoFile)
		cancel()
		if err != nil {
			fmt.Printf("%s\n", ui.ErrorStyle.Render(fmt.Sprintf("❌ %s: %v", videoFile, err)))
			failed++
			continue
		}

		fmt.Printf("%s\n", ui.SuccessStyle.Render(fmt.Sprintf("✅ %s (%s)", videoFile, ui.MetadataSummary(meta))))
		playable++
	}

	fmt.Printf("\n%s\n", ui.InfoStyle.Render(fmt.Sprintf("✅ Playable: %d, ❌ Unplayable: %d", playable, failed)))
	return nil
}
