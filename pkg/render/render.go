// Package render draws dashboard snapshots as plain text for a terminal.
package render

import (
	"fmt"
	"io"
	"text/tabwriter"

	"soxmon/pkg/dashboard"
	"soxmon/pkg/models"
)

const retryHint = "Run the command again to retry."

// Snapshot writes the cards and the compliance table. Fields left nil by a
// session expiry are skipped.
func Snapshot(w io.Writer, snap *models.Snapshot) error {
	if snap == nil {
		return nil
	}

	p := &printer{w: w}
	if info := snap.SystemInfo; info != nil {
		p.card("System")
		p.line("Hostname", info.Hostname)
		p.line("Platform", info.Platform)
		p.line("Python", info.PythonVersion)
		if info.RequestedBy != "" {
			p.line("Requested by", info.RequestedBy)
		}
	}
	if cpu := snap.CPU; cpu != nil {
		p.card("CPU")
		p.line("Usage", fmt.Sprintf("%.1f%%", cpu.Percent))
		p.line("Cores", fmt.Sprintf("%d", cpu.Cores))
	}
	if mem := snap.Memory; mem != nil {
		p.usage("Memory", mem.Percent, mem.TotalGB, mem.UsedGB, mem.FreeGB)
	}
	if disk := snap.Disk; disk != nil {
		p.usage("Disk", disk.Percent, disk.TotalGB, disk.UsedGB, disk.FreeGB)
	}
	if p.err != nil {
		return p.err
	}

	if snap.Compliance != nil {
		return Compliance(w, snap.Compliance)
	}
	return nil
}

// Compliance writes the verdict banner followed by the checks in the order
// the backend returned them.
func Compliance(w io.Writer, report *models.ComplianceReport) error {
	p := &printer{w: w}
	p.printf("\n%s  score %s\n", report.Overall.Label(), report.Score)
	if report.ReportTime != "" {
		p.printf("Report time: %s\n", report.ReportTime)
	}
	if p.err != nil {
		return p.err
	}
	if len(report.Checks) == 0 {
		return nil
	}

	table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(table, "CHECK\tVALUE\tTHRESHOLD\tSTATUS")
	for _, check := range report.Checks {
		fmt.Fprintf(table, "%s\t%s\t%s\t%s\n", check.Check, check.Value, check.Threshold, check.Status)
	}
	return table.Flush()
}

// LoadFailure writes the single message shown for a failed cycle.
func LoadFailure(w io.Writer, err error) error {
	_, werr := fmt.Fprintf(w, "%s\n%s\n", dashboard.FailureMessage(err), retryHint)
	return werr
}

// printer keeps the first write error so card code stays linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) card(title string) {
	p.printf("\n[%s]\n", title)
}

func (p *printer) line(label, value string) {
	p.printf("  %-13s %s\n", label+":", value)
}

func (p *printer) usage(title string, percent, total, used, free float64) {
	p.card(title)
	p.line("Usage", fmt.Sprintf("%.1f%%", percent))
	p.line("Total", fmt.Sprintf("%.1f GB", total))
	p.line("Used", fmt.Sprintf("%.1f GB", used))
	p.line("Free", fmt.Sprintf("%.1f GB", free))
}
