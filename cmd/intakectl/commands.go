package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/liamcoop/prospects/intake"
	"github.com/liamcoop/prospects/policy"
)

const dateLayout = "2006-01-02"

// errInvalid marks a payload that was read fine but failed validation.
var errInvalid = errors.New("payload is invalid")

func parseDate(flag, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be YYYY-MM-DD: %w", flag, err)
	}
	return t, nil
}

func readPayload(path string) (intake.SubmissionPayload, error) {
	var payload intake.SubmissionPayload

	data, err := os.ReadFile(path)
	if err != nil {
		return payload, fmt.Errorf("failed to read payload: %w", err)
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("failed to parse payload %s: %w", path, err)
	}
	return payload, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newDueDateCmd(opts *rootOptions) *cobra.Command {
	var (
		from string
		days int
	)

	cmd := &cobra.Command{
		Use:   "due-date",
		Short: "Print the default due date",
		Long:  `Prints the date a number of business days after --from (today in the business location by default). Weekends are skipped; there is no holiday calendar.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			start := time.Now().In(cfg.Location())
			if from != "" {
				if start, err = parseDate("from", from); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("days") {
				days = cfg.Intake.DueDays
			}

			fmt.Fprintln(cmd.OutOrStdout(), intake.AddBusinessDays(start, days).Format(dateLayout))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&days, "days", intake.DefaultDueDateBusinessDays, "Business days to add (defaults to intake.due_days)")

	return cmd
}

func newRushCmd(_ *rootOptions) *cobra.Command {
	var created, due string

	cmd := &cobra.Command{
		Use:   "rush",
		Short: "Report whether a due date makes a request rush",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			createdAt, err := parseDate("created", created)
			if err != nil {
				return err
			}
			dueDate, err := parseDate("due", due)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"rush":         intake.IsRush(createdAt, &dueDate),
				"businessDays": intake.BusinessDaysBetween(createdAt, dueDate),
			})
		},
	}

	cmd.Flags().StringVar(&created, "created", "", "Creation date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("created")
	_ = cmd.MarkFlagRequired("due")

	return cmd
}

type validateResult struct {
	Valid            bool             `json:"valid"`
	Field            string           `json:"field,omitempty"`
	Message          string           `json:"message,omitempty"`
	DefaultDueDate   string           `json:"defaultDueDate"`
	BlendedOOPFamily *decimal.Decimal `json:"blendedOopFamily,omitempty"`
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var today string

	cmd := &cobra.Command{
		Use:   "validate <payload.json>",
		Short: "Validate a submission payload without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			validatorOpts := []intake.ValidatorOption{
				intake.WithLocation(cfg.Location()),
				intake.WithDueDays(cfg.Intake.DueDays),
			}
			if today != "" {
				day, err := parseDate("today", today)
				if err != nil {
					return err
				}
				validatorOpts = append(validatorOpts, intake.WithClock(func() time.Time { return day }))
			}

			engine, err := policy.NewDefaultEngine(cfg.Intake.Rules...)
			if err != nil {
				return fmt.Errorf("failed to compile policy rules: %w", err)
			}
			validator := intake.NewValidator(engine, validatorOpts...)

			payload, err := readPayload(args[0])
			if err != nil {
				return err
			}

			result := validateResult{
				Valid:          true,
				DefaultDueDate: validator.DefaultDueDate().Format(dateLayout),
			}

			candidate, err := intake.NewCandidate(payload)
			if err == nil {
				err = validator.Validate(candidate)
			}

			var validationErr *intake.ValidationError
			switch {
			case err == nil:
				if blended := intake.BlendedOOPFamily(candidate.Record().HealthPlans); blended.Valid {
					result.BlendedOOPFamily = &blended.Decimal
				}
			case errors.As(err, &validationErr):
				result.Valid = false
				result.Field = validationErr.Field
				result.Message = validationErr.Message
			default:
				result.Valid = false
				result.Field = "healthPlans"
				result.Message = err.Error()
			}

			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Valid {
				return errInvalid
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&today, "today", "", "Pin today's date (YYYY-MM-DD)")

	return cmd
}

func newCheckDuplicateCmd(opts *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check-duplicate <payload.json>",
		Short: "Look up a payload's duplicate in the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("DATABASE_URL environment variable is required")
			}

			payload, err := readPayload(args[0])
			if err != nil {
				return err
			}
			candidate, err := intake.NewCandidate(payload)
			if err != nil {
				return err
			}

			db, err := sql.Open("postgres", cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			match, err := intake.NewDuplicateDetector(intake.NewPostgresRepository(db)).Find(ctx, candidate.Record())
			if err != nil {
				return err
			}

			out := map[string]any{"duplicate": match != nil}
			if match != nil {
				out["matchId"] = match.ID
				out["createdAt"] = match.CreatedAt
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Lookup timeout")

	return cmd
}
