package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/common/expfmt"

	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/internal/service/patient"
)

// printNotices drains the notice board to stderr.
func (a *app) printNotices() {
	for _, n := range a.board.Active() {
		fmt.Fprintf(a.errOut, "%s: %s\n", n.Severity, n.Message)
		a.board.Dismiss(n.ID)
	}
}

func (a *app) printTable(patients []*model.Patient) error {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tUID\tPHONE\tAGE\tGENDER\tBLOOD GROUP")
	for _, p := range patients {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			p.ID, p.Name, p.UID, p.Phone, p.Age, p.Gender, p.BloodGroup)
	}
	return w.Flush()
}

func (a *app) printFieldErrors(form *patient.Form) {
	errs := form.Errors()
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		fmt.Fprintf(a.errOut, "  %s: %s\n", field, strings.Join(errs[field], ", "))
	}
}

func (a *app) printNotice(n *model.Notice) {
	fmt.Fprintf(a.out, "%s %s: %s\n", n.CreatedAt.Format(time.RFC3339), n.Severity, n.Message)
}

// dumpMetrics writes the store client metrics in the Prometheus text format.
func (a *app) dumpMetrics() error {
	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(a.errOut, mf); err != nil {
			return err
		}
	}
	return nil
}
