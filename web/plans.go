package web

// Plan is one subscription tier. Plans are display only, nothing is billed.
type Plan struct {
	ID       int
	Title    string
	Monthly  int // USD
	Yearly   int // USD
	Features []string
}

// YearlySavings is what paying yearly saves over twelve monthly payments
func (p Plan) YearlySavings() int {
	return p.Monthly*12 - p.Yearly
}

// Plans lists the tiers offered on the subscribe page and by the plans command
var Plans = []Plan{
	{
		ID:       1,
		Title:    "Basic",
		Monthly:  10,
		Yearly:   100,
		Features: []string{"4K Video Enhancement", "Audio Noise Reduction", "24/7 Support", "Cloud Storage"},
	},
	{
		ID:       2,
		Title:    "Pro",
		Monthly:  20,
		Yearly:   200,
		Features: []string{"8K Video Enhancement", "Advanced Audio Processing", "Priority Support", "Unlimited Storage"},
	},
	{
		ID:       3,
		Title:    "Enterprise",
		Monthly:  30,
		Yearly:   300,
		Features: []string{"Custom Resolution", "Real-time Processing", "Dedicated Support", "Private Cloud"},
	},
}

// DefaultPlanID is the tier highlighted when nothing was picked
const DefaultPlanID = 2
