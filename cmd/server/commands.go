package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gymadmin/internal/adapters/storage"
	"gymadmin/internal/application/orchestrators"
)

var (
	// import flags
	importDryRun bool
	importUpdate bool

	// remind flags
	remindDays   int
	remindDryRun bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		version, err := storage.SchemaVersion(a.db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed trainers, plus synthetic members outside production",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, now := cmd.Context(), time.Now()
		trainers, err := orchestrators.ExecuteSeedTrainers(ctx, orchestrators.SeedTrainersDeps{TrainerStore: a.trainers}, now)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "trainers seeded: %d\n", trainers)

		if a.cfg.IsProduction() {
			return nil
		}
		members, err := orchestrators.ExecuteSeedSynthetic(ctx, orchestrators.SyntheticSeedDeps{
			Write:    a.writeDeps(),
			Trainers: a.trainers,
		}, now)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "synthetic members seeded: %d\n", members)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import members from a CSV file",
	Long: `Import members from a CSV file with a header row.

Examples:
  gymadmin import members.csv --dry-run   # Validate every row without writing
  gymadmin import members.csv --update    # Replace members whose email already exists`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		result, err := orchestrators.ExecuteImportMembers(cmd.Context(), orchestrators.ImportMembersInput{
			Reader:     f,
			DryRun:     importDryRun,
			UpdateMode: importUpdate,
		}, orchestrators.ImportMembersDeps{
			Write:    a.writeDeps(),
			Trainers: a.trainers,
		}, time.Now())
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send renewal reminders for memberships expiring soon",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		days := remindDays
		if !cmd.Flags().Changed("days") {
			days = a.cfg.ReminderDays
		}
		result, err := orchestrators.ExecuteSendRenewalReminders(cmd.Context(), orchestrators.SendRenewalRemindersInput{
			Days:   days,
			DryRun: remindDryRun,
		}, a.reminderDeps(), time.Now())
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate rows without writing")
	importCmd.Flags().BoolVar(&importUpdate, "update", false, "Update members whose email already exists")

	remindCmd.Flags().IntVar(&remindDays, "days", 0, "Reminder window in days (default GYM_REMINDER_DAYS)")
	remindCmd.Flags().BoolVar(&remindDryRun, "dry-run", false, "Count candidates without sending")
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
