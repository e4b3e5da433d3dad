// freedayctl is an offline calculator for the free-day budget plus a helper
// that mints session tokens against a local store.
// Usage: go run ./cmd/freedayctl --help
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lg/free-day-go-api/internal/freeday"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "freedayctl",
		Short:         "freedayctl computes free-day budgets and classifies free days",
		Long:          "freedayctl runs the free-day calculations from the terminal and issues session tokens for local testing.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPlanCmd(), newClassifyCmd(), newPreviewCmd(), newTokenCmd())
	return root
}

// profileFlags are the body-stat flags shared by plan and preview.
type profileFlags struct {
	weight   float64
	height   float64
	age      int
	sex      string
	activity string
	goal     float64
	policy   string
}

func (f *profileFlags) bind(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.weight, "weight", 0, "Body weight in kg")
	cmd.Flags().Float64Var(&f.height, "height", 0, "Height in cm")
	cmd.Flags().IntVar(&f.age, "age", 0, "Age in years")
	cmd.Flags().StringVar(&f.sex, "sex", "", "male or female")
	cmd.Flags().StringVar(&f.activity, "activity", "", "sedentary, light, moderate or active")
	cmd.Flags().Float64Var(&f.goal, "goal", 0.5, "Weekly loss goal in kg: 0.25, 0.5 or 0.75")
	cmd.Flags().StringVar(&f.policy, "policy", string(freeday.PolicyQualityScaled), "Margin policy: quality_scaled or flat")
	for _, name := range []string{"weight", "height", "age", "sex", "activity"} {
		cmd.MarkFlagRequired(name)
	}
}

func (f *profileFlags) profile() (freeday.Profile, error) {
	p := freeday.Profile{
		WeightKG:      f.weight,
		HeightCM:      f.height,
		Age:           f.age,
		Sex:           freeday.Sex(f.sex),
		ActivityLevel: freeday.ActivityLevel(f.activity),
		WeeklyGoal:    freeday.WeeklyGoal(f.goal),
	}
	return p, p.Validate()
}

func (f *profileFlags) marginPolicy() (freeday.MarginPolicy, error) {
	return freeday.ParseMarginPolicy(f.policy)
}

var qualities = []freeday.WeekQuality{freeday.QualityFollowed, freeday.QualitySmallDeviations, freeday.QualityLostControl}
