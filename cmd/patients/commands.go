package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/internal/service/notification"
	"github.com/jwalitptl/patient-records/internal/service/patient"
	"github.com/jwalitptl/patient-records/internal/service/patientlist"
	"github.com/jwalitptl/patient-records/pkg/messaging"
)

func (a *app) controller() *patientlist.Controller {
	return patientlist.NewController(patientlist.Dependencies{
		Repository: a.repo,
		Notifier:   a.notifier,
		Navigator:  a.history,
		Confirmer:  &promptConfirmer{a: a},
		Logger:     a.log,
	})
}

func (a *app) form() *patient.Form {
	return patient.NewCreateForm(patient.Dependencies{
		Repository: a.repo,
		Notifier:   a.notifier,
		Navigator:  a.history,
		Logger:     a.log,
	})
}

func listCmd(a *app) *cobra.Command {
	var (
		search string
		group  string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List patients, optionally searched or filtered by blood group",
		RunE: func(cmd *cobra.Command, args []string) error {
			if search != "" && group != "" {
				return errors.New("--search and --blood-group are separate modes, use one")
			}
			ctx := cmd.Context()
			c := a.controller()

			var err error
			switch {
			case search != "":
				err = c.Search(ctx, search)
			case group != "":
				err = c.FilterByBloodGroup(ctx, model.BloodGroup(group))
			default:
				err = c.Load(ctx)
			}
			a.printNotices()
			if err != nil {
				return err
			}
			return a.printTable(c.Patients())
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "free text search over every field")
	cmd.Flags().StringVarP(&group, "blood-group", "b", "", `blood group filter, "All Blood Groups" for none`)
	return cmd
}

func getCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := a.controller().View(cmd.Context(), &model.Patient{ID: id})
			a.printNotices()
			if err != nil {
				return err
			}
			return a.printJSON(p)
		},
	}
}

// patientFlags are the editable fields as flags; only changed flags are
// applied to the form.
var patientFlags = []struct {
	flag  string
	field string
	usage string
}{
	{"name", "name", "full name, at least 3 characters"},
	{"uid", "uid", "11 digit national identifier"},
	{"phone", "phone", "10 digit phone number"},
	{"age", "age", "age in years, 0 to 120"},
	{"gender", "gender", "Male, Female or Other"},
	{"blood-group", "bloodGroup", "A+, A-, B+, B-, AB+, AB-, O+ or O-"},
	{"address", "address", "postal address"},
	{"medical-history", "medicalHistory", "free text medical history"},
	{"photo-url", "photoUrl", "photo url"},
}

func addPatientFlags(cmd *cobra.Command) {
	for _, f := range patientFlags {
		cmd.Flags().String(f.flag, "", f.usage)
	}
}

func applyPatientFlags(ctx context.Context, cmd *cobra.Command, form *patient.Form) error {
	for _, f := range patientFlags {
		if !cmd.Flags().Changed(f.flag) {
			continue
		}
		value, err := cmd.Flags().GetString(f.flag)
		if err != nil {
			return err
		}
		if err := form.SetField(ctx, f.field, value); err != nil {
			return err
		}
	}
	return nil
}

func addCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			form := a.form()
			if err := applyPatientFlags(ctx, cmd, form); err != nil {
				return err
			}
			return a.submit(ctx, form)
		},
	}
	addPatientFlags(cmd)
	return cmd
}

func updateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a patient, only the given fields change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			form := a.form()
			if err := form.OpenEdit(ctx, args[0]); err != nil {
				a.printNotices()
				return err
			}
			if err := applyPatientFlags(ctx, cmd, form); err != nil {
				return err
			}
			return a.submit(ctx, form)
		},
	}
	addPatientFlags(cmd)
	return cmd
}

func (a *app) submit(ctx context.Context, form *patient.Form) error {
	err := form.Submit(ctx)
	a.printNotices()
	if errors.Is(err, patient.ErrInvalidForm) {
		a.printFieldErrors(form)
	}
	return err
}

func deleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a patient after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c := a.controller()
			ctx := cmd.Context()

			if yes {
				err = c.ConfirmDelete(ctx, id)
			} else {
				_, err = c.Delete(ctx, &model.Patient{ID: id})
			}
			a.printNotices()
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the existence check and confirmation")
	return cmd
}

func exportCmd(a *app) *cobra.Command {
	var (
		output string
		search string
		group  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the listed patients as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := a.controller()

			var err error
			switch {
			case search != "":
				err = c.Search(ctx, search)
			case group != "":
				err = c.FilterByBloodGroup(ctx, model.BloodGroup(group))
			default:
				err = c.Load(ctx)
			}
			a.printNotices()
			if err != nil {
				return err
			}

			if output == "-" {
				return c.WriteCSV(a.out)
			}
			doc := c.Export()
			if output == "" {
				output = doc.Filename
			}
			if err := os.WriteFile(output, doc.Content, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(a.out, "wrote %d patients to %s (%s)\n", len(c.Patients()), output, doc.MIMEType)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default patients.csv)`)
	cmd.Flags().StringVarP(&search, "search", "s", "", "export search results")
	cmd.Flags().StringVarP(&group, "blood-group", "b", "", "export one blood group")
	return cmd
}

func checkUIDCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-uid <uid>",
		Short: "List the patients holding a uid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			holders, err := a.repo.CheckUIDExists(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(holders) == 0 {
				fmt.Fprintf(a.out, "uid %s is free\n", args[0])
				return nil
			}
			return a.printTable(holders)
		},
	}
}

func noticesCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "notices",
		Short: "Follow the notices published on the notice channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			broker, err := a.connectBroker(ctx)
			if err != nil {
				return err
			}
			sub, err := messaging.NewChannelSubscriber(broker, a.cfg.Notifications.Channel)
			if err != nil {
				return err
			}

			seen := 0
			err = notification.Follow(ctx, sub, func(n *model.Notice) bool {
				a.printNotice(n)
				seen++
				return limit <= 0 || seen < limit
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after this many notices, 0 follows until interrupted")
	return cmd
}

func parseID(raw string) (model.PatientID, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid patient id %q", raw)
	}
	return model.PatientID(n), nil
}

type promptConfirmer struct {
	a *app
}

func (p *promptConfirmer) ConfirmDelete(_ context.Context, pt *model.Patient) (bool, error) {
	fmt.Fprintf(p.a.out, "Delete patient %d (%s, uid %s)? [y/N] ", pt.ID, pt.Name, pt.UID)
	line, err := bufio.NewReader(p.a.in).ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
