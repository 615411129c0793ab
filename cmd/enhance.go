package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/lepinkainen/videoenhance/config"
	"github.com/lepinkainen/videoenhance/types"
	"github.com/lepinkainen/videoenhance/ui"
	"github.com/lepinkainen/videoenhance/workflow"
)

// EnhanceCmd sends one local video to the enhancement service, proves the answer is
// playable and saves it.
type EnhanceCmd struct {
	File      string `arg:"" name:"file" help:"Video file to enhance" type:"existingfile"`
	Endpoint  string `help:"Enhancement service URL, overrides VIDEOENHANCE_ENDPOINT"`
	Output    string `short:"o" help:"Where to save the enhanced video" default:"enhanced_video.mp4" type:"path"`
	NoTUI     bool   `name:"no-tui" help:"Print a progress bar instead of the interactive screen"`
	NoCompare bool   `name:"no-compare" help:"Skip the before/after comparison"`
	LogFile   string `name:"log-file" help:"Write logs to this file while the interactive screen is shown" type:"path"`
}

func (cmd *EnhanceCmd) Run(appCtx *types.AppContext) error {
	cfg, err := appConfig(appCtx)
	if err != nil {
		return err
	}
	logger := appCtx.Log()

	file, err := workflow.FileFromPath(cmd.File)
	if err != nil {
		return err
	}

	svc, err := newServices(cfg, cmd.Endpoint, logger, !cmd.NoCompare)
	if err != nil {
		return err
	}

	if cmd.NoTUI {
		return cmd.runPlain(cfg, svc, logger, file)
	}
	return cmd.runTUI(cfg, svc, logger, file, appCtx.VersionOrDefault())
}

func (cmd *EnhanceCmd) options(cfg *config.Config, logger *logrus.Logger) workflow.Options {
	return workflow.Options{
		TickInterval:      cfg.TickInterval,
		ValidationTimeout: cfg.ValidationTimeout,
		MaxFileSize:       cfg.MaxUploadBytes(),
		Logger:            logger,
	}
}

// runTUI hosts the workflow in the bubbletea screen. Logs would corrupt the screen,
// so they go to --log-file or nowhere.
func (cmd *EnhanceCmd) runTUI(cfg *config.Config, svc *services, logger *logrus.Logger, file workflow.SelectedFile, version string) error {
	var logOut io.Writer = io.Discard
	if cmd.LogFile != "" {
		f, err := os.OpenFile(cmd.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger.SetOutput(logOut)
	defer logger.SetOutput(os.Stderr)

	feed := ui.NewFeed()
	opts := cmd.options(cfg, logger)
	opts.Comparer = svc.comparer
	opts.OnChange = feed.Publish
	ctrl := workflow.New(svc.enhancer, svc.prober, opts)
	// quitting mid-upload aborts it and releases every object URL
	defer ctrl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := ui.NewUploadModel(ctx, ctrl, feed, file, cmd.Output, version, true)
	p := tea.NewProgram(model)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// runPlain prints a progress bar, saves the result and compares it afterwards
func (cmd *EnhanceCmd) runPlain(cfg *config.Config, svc *services, logger *logrus.Logger, file workflow.SelectedFile) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription(fmt.Sprintf("Enhancing %s", file.Name)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
	)

	finished := make(chan workflow.Snapshot, 1)
	opts := cmd.options(cfg, logger)
	opts.OnChange = func(s workflow.Snapshot) {
		_ = bar.Set(int(s.Progress))
		if s.State == workflow.Succeeded || s.State == workflow.Failed {
			select {
			case finished <- s:
			default:
			}
		}
	}
	ctrl := workflow.New(svc.enhancer, svc.prober, opts)
	defer ctrl.Close()

	fmt.Println(ui.HeaderStyle.Render("Video Enhance"))
	fmt.Println(ui.ProcessingStyle.Render(fmt.Sprintf("Uploading %s (%s)", file.Name, ui.FormatSize(file.Size))))

	if err := ctrl.Submit(ctx, file); err != nil {
		return workflow.Explain(err)
	}

	snap := <-finished
	_ = bar.Finish()
	fmt.Println()

	if snap.State == workflow.Failed {
		failure := snap.Err
		if failure == nil {
			failure = &workflow.Error{Kind: workflow.KindUnknown, Message: workflow.MsgGeneric}
		}
		fmt.Printf("%s\n", ui.ErrorStyle.Render(fmt.Sprintf("❌ %s", failure.Message)))
		return failure
	}

	if err := ui.SaveResult(ctrl, cmd.Output); err != nil {
		return fmt.Errorf("failed to save enhanced video: %w", err)
	}
	fmt.Printf("%s\n", ui.SuccessStyle.Render(fmt.Sprintf("✅ Saved enhanced video to %s", cmd.Output)))
	if meta := snap.Result.Metadata; meta != nil {
		fmt.Printf("%s\n", ui.InfoStyle.Render(fmt.Sprintf("Enhanced: %s", ui.MetadataSummary(meta))))
	}

	if svc.comparer != nil {
		cmd.printComparison(ctx, svc, snap.Result)
	}
	return nil
}

func (cmd *EnhanceCmd) printComparison(ctx context.Context, svc *services, result *workflow.Result) {
	before, err := result.Before.Open()
	if err != nil {
		return
	}
	after, err := result.After.Open()
	if err != nil {
		return
	}

	cmp, err := svc.comparer.Compare(ctx, before, after)
	if err != nil {
		fmt.Printf("⚠️  Could not compare videos: %v\n", err)
		return
	}

	if cmp.Before != nil && cmp.After != nil {
		change := "same resolution"
		if cmp.Upscaled() {
			change = "upscaled"
		}
		fmt.Printf("%s\n", ui.InfoStyle.Render(fmt.Sprintf("Resolution: %s → %s (%s)", cmp.Before.Resolution(), cmp.After.Resolution(), change)))
	}
	if cmp.FrameDistance >= 0 {
		fmt.Printf("%s\n", ui.InfoStyle.Render(fmt.Sprintf("Frame distance: %d/64", cmp.FrameDistance)))
	}
}
