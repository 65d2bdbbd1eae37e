package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/validation"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
)

func newAssessCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Classify a single reading as normal, warning or danger",
	}

	var postMeal bool
	sugar := &cobra.Command{
		Use:   "sugar <mg/dL>",
		Short: "Assess a blood sugar reading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseValues(args)
			if err != nil {
				return err
			}
			reading := validation.BloodSugar{MgDL: v[0], Context: model.BloodSugarFasting}
			if postMeal {
				reading.Context = model.BloodSugarPostMeal
			}
			return printReading(cmd, reading)
		},
	}
	sugar.Flags().BoolVar(&postMeal, "post-meal", false, "The reading was taken after a meal")

	var heightCM float64
	weight := &cobra.Command{
		Use:   "weight <kg>",
		Short: "Assess a body weight through BMI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseValues(args)
			if err != nil {
				return err
			}
			return printReading(cmd, validation.Weight{KG: v[0], HeightCM: heightCM})
		},
	}
	weight.Flags().Float64Var(&heightCM, "height", 0, "Height in cm, needed for the BMI")

	cmd.AddCommand(
		&cobra.Command{
			Use:     "bp <systolic> <diastolic>",
			Aliases: []string{"blood-pressure"},
			Short:   "Assess a blood pressure reading in mmHg",
			Args:    cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := parseValues(args)
				if err != nil {
					return err
				}
				return printReading(cmd, validation.BloodPressure{Systolic: v[0], Diastolic: v[1]})
			},
		},
		sugar,
		&cobra.Command{
			Use:     "hr <bpm>",
			Aliases: []string{"heart-rate"},
			Short:   "Assess a heart rate",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := parseValues(args)
				if err != nil {
					return err
				}
				return printReading(cmd, validation.HeartRate{BPM: v[0]})
			},
		},
		weight,
	)
	return cmd
}

func parseValues(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", a)
		}
		out[i] = v
	}
	return out, nil
}

func printReading(cmd *cobra.Command, r validation.Reading) error {
	res := r.Assess()
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s: %s (normal %s)\n", r.Label(), r.Value(), r.NormalRange())
	fmt.Fprintf(w, "level: %s\n", res.Level)
	for _, msg := range res.Warnings {
		fmt.Fprintf(w, "- %s\n", msg)
	}
	return nil
}
