package cmd

import (
	"fmt"
	"strings"

	"github.com/lepinkainen/videoenhance/types"
	"github.com/lepinkainen/videoenhance/ui"
	"github.com/lepinkainen/videoenhance/web"
)

// PlansCmd prints the subscription tiers shown on the subscribe page
type PlansCmd struct {
	Yearly bool `help:"Show yearly prices"`
}

func (cmd *PlansCmd) Run(appCtx *types.AppContext) error {
	fmt.Println(ui.HeaderStyle.Render(fmt.Sprintf("Video Enhance %s", appCtx.VersionOrDefault())))
	fmt.Print(cmd.render(web.Plans))
	return nil
}

func (cmd *PlansCmd) render(plans []web.Plan) string {
	var b strings.Builder
	for _, p := range plans {
		price := fmt.Sprintf("$%d / month", p.Monthly)
		if cmd.Yearly {
			price = fmt.Sprintf("$%d / year (save $%d)", p.Yearly, p.YearlySavings())
		}

		title := ui.InfoStyle.Render(p.Title)
		if p.ID == web.DefaultPlanID {
			title = ui.SuccessStyle.Render(p.Title + " ★")
		}
		fmt.Fprintf(&b, "%s  %s\n", title, price)
		for _, f := range p.Features {
			fmt.Fprintf(&b, "  • %s\n", f)
		}
		b.WriteString("\n")
	}
	return b.String()
}
