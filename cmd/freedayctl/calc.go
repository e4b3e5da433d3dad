package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lg/free-day-go-api/internal/freeday"
)

func newPlanCmd() *cobra.Command {
	var pf profileFlags
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the weekly budget for a profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pf.profile()
			if err != nil {
				return err
			}
			policy, err := pf.marginPolicy()
			if err != nil {
				return err
			}

			s := freeday.ComputeBudget(p).Summary()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "BMR: %d kcal\nTDEE: %d kcal\nWeekly deficit: %d kcal\nWeekly target: %d kcal\n",
				s.BMR, s.TDEE, s.WeeklyDeficit, s.WeeklyTarget)
			fmt.Fprintf(out, "Routine day: %d kcal (x5)\nFree day: %d kcal\n", s.RoutineDay, s.FreeDay)
			fmt.Fprintf(out, "\nMARGIN (%s)\n", policy)
			for _, q := range qualities {
				fmt.Fprintf(out, "%s\t%d\n", q, policy.Margin(s.FreeDay, q))
			}
			return nil
		},
	}
	pf.bind(cmd)
	return cmd
}

func newClassifyCmd() *cobra.Command {
	var consumed, margin int
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a free day's intake against its margin",
		RunE: func(cmd *cobra.Command, args []string) error {
			if consumed < 0 || margin < 0 {
				return fmt.Errorf("--consumed and --margin must be >= 0")
			}
			tier := freeday.Classify(consumed, margin)
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%+d kcal)\n", tier, consumed-margin)
			if advice := tier.Advice(); advice != "" {
				fmt.Fprintln(cmd.OutOrStdout(), advice)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&consumed, "consumed", 0, "Total kcal consumed on the free day")
	cmd.Flags().IntVar(&margin, "margin", 0, "Free-day margin in kcal")
	cmd.MarkFlagRequired("consumed")
	cmd.MarkFlagRequired("margin")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	var (
		pf                       profileFlags
		breakfast, lunch, dinner string
		items                    []string
		extra, quality           string
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Evaluate a free-day log against a profile's budget",
		Example: `  freedayctl preview --weight 75 --height 175 --age 30 --sex male --activity moderate \
    --lunch moderate --item "Pizza slice:300:2" --extra 150 --quality small_deviations`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pf.profile()
			if err != nil {
				return err
			}
			policy, err := pf.marginPolicy()
			if err != nil {
				return err
			}
			q := freeday.WeekQuality(quality)
			if !q.Valid() {
				return freeday.ErrInvalidWeekQuality
			}

			meals := freeday.MealsData{
				Breakfast:    freeday.MealIntensity(breakfast),
				Lunch:        freeday.MealIntensity(lunch),
				DinnerBefore: freeday.MealIntensity(dinner),
				CustomKcal:   freeday.ParseSupplementalKcal(extra),
			}
			for _, m := range []freeday.MealIntensity{meals.Breakfast, meals.Lunch, meals.DinnerBefore} {
				if !validIntensity(m) {
					return fmt.Errorf("unknown meal intensity %q", m)
				}
			}
			for _, raw := range items {
				it, err := parseItem(raw)
				if err != nil {
					return err
				}
				meals.Items = append(meals.Items, it)
			}

			freeDay := freeday.ComputeBudget(p).Summary().FreeDay
			pv := freeday.BuildPreview(freeDay, policy, meals, q)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Meals: %d kcal\nItems: %d kcal\nExtra: %d kcal\nTotal: %d kcal\n",
				pv.Breakdown.MealsKcal, pv.Breakdown.ItemsKcal, pv.Breakdown.ExtraKcal, pv.Breakdown.Total)
			fmt.Fprintf(out, "Margin: %d kcal (free day %d, -%d for quality)\n", pv.Margin, pv.FreeDayBudget, pv.MarginReduction)
			fmt.Fprintf(out, "Remaining: %d kcal\nUsage: %d%%\nResult: %s\n", pv.Remaining, pv.UsagePercent, pv.Classification)
			if pv.Advice != "" {
				fmt.Fprintln(out, pv.Advice)
			}
			return nil
		},
	}
	pf.bind(cmd)
	cmd.Flags().StringVar(&breakfast, "breakfast", string(freeday.MealNotConsumed), "Breakfast: not_consumed, light, moderate or high")
	cmd.Flags().StringVar(&lunch, "lunch", string(freeday.MealNotConsumed), "Lunch: not_consumed, light, moderate or high")
	cmd.Flags().StringVar(&dinner, "dinner", string(freeday.MealNotConsumed), "Dinner before the event: not_consumed, light, moderate or high")
	cmd.Flags().StringArrayVar(&items, "item", nil, "Food item as name:kcal_each:quantity (repeatable)")
	cmd.Flags().StringVar(&extra, "extra", "", "Extra kcal, e.g. 350 or 120,5")
	cmd.Flags().StringVar(&quality, "quality", string(freeday.QualityFollowed), "Week quality: followed, small_deviations or lost_control")
	return cmd
}

func validIntensity(m freeday.MealIntensity) bool {
	switch m {
	case freeday.MealNotConsumed, freeday.MealLight, freeday.MealModerate, freeday.MealHigh:
		return true
	}
	return false
}

// parseItem reads "name:kcal_each:quantity". The name may itself contain colons.
func parseItem(raw string) (freeday.FoodItem, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 {
		return freeday.FoodItem{}, fmt.Errorf("invalid --item %q (expected name:kcal_each:quantity)", raw)
	}
	n := len(parts)
	kcal, err := strconv.Atoi(strings.TrimSpace(parts[n-2]))
	if err != nil || kcal < 0 {
		return freeday.FoodItem{}, fmt.Errorf("invalid kcal_each in --item %q", raw)
	}
	qty, err := strconv.Atoi(strings.TrimSpace(parts[n-1]))
	if err != nil || qty < 0 {
		return freeday.FoodItem{}, fmt.Errorf("invalid quantity in --item %q", raw)
	}
	name := strings.TrimSpace(strings.Join(parts[:n-2], ":"))
	if name == "" {
		return freeday.FoodItem{}, fmt.Errorf("missing name in --item %q", raw)
	}
	return freeday.FoodItem{Name: name, KcalEach: kcal, Quantity: qty}, nil
}
