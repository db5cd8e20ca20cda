package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/khanhnv2901/domain-insight/internal/application"
	"github.com/khanhnv2901/domain-insight/internal/application/analysis"
	"github.com/khanhnv2901/domain-insight/internal/domain/report"
	"github.com/khanhnv2901/domain-insight/internal/infrastructure/browser"
	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	JSON     bool
	Progress bool
	Strict   bool
}

var analyzeOpts = analyzeOptions{Progress: true}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <domain>",
	Short: "Analyze one domain and print the composite report",
	Example: `  insight analyze example.com
  insight analyze example.com --json
  insight analyze example.com --audit-timeout 90s --no-sandbox`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		container, err := application.NewContainer(appCtx.Config.applicationConfig(), appCtx.Logger)
		if err != nil {
			return err
		}
		defer container.Close()

		return runAnalyze(cmd.Context(), cmd.OutOrStdout(), container.Orchestrator, args[0], analyzeOpts)
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeOpts.JSON, "json", analyzeOpts.JSON, "Print the report as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.Progress, "progress", analyzeOpts.Progress, "Show a live progress line")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.Strict, "strict", analyzeOpts.Strict, "Exit non-zero when any source failed")
}

func runAnalyze(ctx context.Context, out io.Writer, orch *analysis.Orchestrator, domain string, opts analyzeOptions) error {
	var progress *progressPrinter
	if opts.Progress && !opts.JSON {
		progress = newProgressPrinter(out, len(report.SlotNames), strings.TrimSpace(domain))
		orch = orch.WithObserver(func(_ string, slot report.SlotStatus, elapsed time.Duration) {
			progress.Increment(slot.Name, slot.OK, elapsed)
		})
		progress.Start()
	}

	rep, err := orch.Analyze(ctx, analysis.Request{Domain: domain})
	if progress != nil {
		progress.Stop()
	}
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	} else {
		renderReport(out, rep)
	}

	if opts.Strict && rep.FailedCount() > 0 {
		failed := make([]string, 0, rep.FailedCount())
		for _, slot := range rep.Slots() {
			if !slot.OK {
				failed = append(failed, slot.Name)
			}
		}
		return &DegradedReportError{Domain: rep.Domain, Failed: failed}
	}
	return nil
}

func renderReport(out io.Writer, rep *report.CompositeReport) {
	fmt.Fprintf(out, "%s %s\n", colorBold("Domain:"), rep.Domain)
	fmt.Fprintf(out, "%s %s (%dms)\n\n", colorBold("Report:"), rep.ID, rep.DurationMS)

	row := func(label string, failure *report.ErrorDescriptor, detail string) {
		if failure != nil {
			fmt.Fprintf(out, "  %-12s %s  %s\n", label, formatStatusWithColor("FAILED"), colorError(failure.String()))
			return
		}
		fmt.Fprintf(out, "  %-12s %s  %s\n", label, formatStatusWithColor("OK"), detail)
	}

	reg, _ := rep.Registry.Value()
	row("Registry", rep.Registry.Failure(), describeRegistry(reg))

	cert, _ := rep.Certificate.Value()
	row("Certificate", rep.Certificate.Failure(), describeCertificate(cert))

	info, _ := rep.Resolution.Value()
	row("Server", rep.Resolution.Failure(), describeServer(info))

	grade, _ := rep.Grade.Value()
	row("Grade", rep.Grade.Failure(), formatGrade(grade))

	audit, _ := rep.Audit.Value()
	row("Performance", rep.Audit.Failure(), describeAudit(audit))

	if cert != nil && len(cert.Issues) > 0 {
		fmt.Fprintf(out, "\n%s\n", colorWarn("TLS findings:"))
		for _, issue := range cert.Issues {
			fmt.Fprintf(out, "  - %s\n", issue)
		}
	}
}

func describeRegistry(rec report.RegistryRecord) string {
	if len(rec) == 0 {
		return ""
	}
	var parts []string
	for _, key := range []string{"registrar", "creationDate", "registryExpiryDate", "registrarRegistrationExpirationDate"} {
		if v := rec[key]; v != "" {
			parts = append(parts, key+"="+v)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d fields", len(rec)))
	}
	return strings.Join(parts, " ")
}

func describeCertificate(cert *report.Certificate) string {
	if cert == nil {
		return ""
	}
	trust := colorSuccess("trusted")
	if !cert.Authorized {
		trust = colorWarn("untrusted")
		if cert.AuthorizationError != "" {
			trust += " (" + cert.AuthorizationError + ")"
		}
	}
	return fmt.Sprintf("CN=%s issuer=%s expires %s (%dd) %s %s",
		cert.Subject["CN"], firstNonEmpty(cert.Issuer["O"], cert.Issuer["CN"]),
		cert.ValidTo, cert.DaysUntilExpiry, cert.TLSVersion, trust)
}

func describeServer(info *report.ServerInfo) string {
	if info == nil {
		return ""
	}
	loc := info.Location
	return fmt.Sprintf("%s (%s, %s)", info.IPAddress, loc.Country, loc.City)
}

func describeAudit(audit *report.AuditReport) string {
	if audit == nil {
		return ""
	}
	keys := make([]string, 0, len(audit.Metrics))
	for _, m := range browser.Metrics {
		if _, ok := audit.Metrics[m.ID]; ok {
			keys = append(keys, m.ID)
		}
	}
	// Keep any metric the scorer does not know about, in stable order.
	var extra []string
	for k := range audit.Metrics {
		if !slices.Contains(keys, k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, audit.Metrics[k]))
	}
	return fmt.Sprintf("score %s  %s", formatScore(audit.Score), strings.Join(parts, " "))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
