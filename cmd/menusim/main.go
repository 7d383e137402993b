// Command menusim runs the menu simulation from the command line and manages
// encryption of the data directory.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"menusim/internal/config"
	"menusim/internal/models"
	"menusim/internal/services/advisor"
	"menusim/internal/services/costs"
	"menusim/internal/services/dataloader"
	"menusim/internal/services/export"
	"menusim/internal/services/simulation"
	"menusim/internal/services/storage"
	"menusim/internal/version"
)

// Exit codes
const (
	exitOK          = 0
	exitError       = 1 // data unavailable or failed run
	exitUsage       = 2
	exitInvalidConf = 3
)

const usage = `Usage: menusim [-version] <command> [flags]

Commands:
  run       simulate the configured sales sheet and print the report
  encrypt   encrypt the data directory with a passphrase
  decrypt   remove encryption from the data directory
`

// passphraseReader prompts for a passphrase; replaced in tests
var passphraseReader = promptPassphrase

func main() {
	log.SetFlags(0)
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("menusim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	showVersion := fs.Bool("version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if *showVersion {
		fmt.Fprintln(stdout, version.Get())
		return exitOK
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error loading configuration: %v\n", err)
		return exitError
	}
	store, err := storage.New(cfg.DataDirectory)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening data directory: %v\n", err)
		return exitError
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "run":
		return runSimulation(cfg, store, rest, stdout, stderr)
	case "encrypt":
		return runEncrypt(cfg, store, stdout, stderr)
	case "decrypt":
		return runDecrypt(cfg, store, stdout, stderr)
	}

	fmt.Fprintf(stderr, "Unknown command %q\n\n", cmd)
	fs.Usage()
	return exitUsage
}

func runSimulation(cfg *config.Config, store *storage.Storage, args []string, stdout, stderr io.Writer) int {
	s := cfg.SessionDefaults()

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mode := fs.String("mode", string(s.Mode), "optimization mode: balanced, weighted or uniform")
	fs.Float64Var(&s.TargetMarginPct, "target", s.TargetMarginPct, "target margin %")
	fs.Float64Var(&s.TaxRate, "tax", s.TaxRate, "tax rate")
	fs.BoolVar(&s.ShowDetails, "details", s.ShowDetails, "include product details")
	fs.BoolVar(&s.ShowSpend, "spend", s.ShowSpend, "include the incremental spend table")
	fs.StringVar(&s.CategoryFilter, "category", "", "restrict details and spend to one category")
	fs.Float64Var(&s.MinSpend, "min-spend", s.MinSpend, "minimum incremental spend shown in the spend table")
	dataFile := fs.String("data", cfg.DataFile, "sales sheet, relative to the data directory")
	xlsxPath := fs.String("xlsx", "", "also write the report as an XLSX workbook to this path")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	s.Mode = models.OptimizationMode(*mode)

	if code := unlock(cfg, store, stderr); code != exitOK {
		return code
	}

	loader := dataloader.New(store, *dataFile)
	products, err := loader.LoadProducts(s.TaxRate)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	report, err := simulation.Run(products, s)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, costs.ErrInvalidConfiguration) {
			return exitInvalidConf
		}
		return exitError
	}

	if *xlsxPath != "" {
		var buf bytes.Buffer
		if err := export.NewExporter().Write(report, &buf); err != nil {
			fmt.Fprintf(stderr, "Error exporting report: %v\n", err)
			return exitError
		}
		if err := store.WriteFile(*xlsxPath, buf.Bytes(), 0600); err != nil {
			fmt.Fprintf(stderr, "Error writing %s: %v\n", *xlsxPath, err)
			return exitError
		}
		fmt.Fprintf(stderr, "Wrote %s (%s)\n", store.Path(*xlsxPath), humanize.Bytes(uint64(buf.Len())))
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(stderr, "Error encoding report: %v\n", err)
			return exitError
		}
		return exitOK
	}

	printReport(stdout, report)
	return exitOK
}

// unlock opens an encrypted data directory with the configured passphrase,
// prompting for one when none is set
func unlock(cfg *config.Config, store *storage.Storage, stderr io.Writer) int {
	if !store.IsEncrypted() {
		return exitOK
	}

	passphrase := cfg.Passphrase
	if passphrase == "" {
		var err error
		if passphrase, err = passphraseReader("Passphrase: "); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
	}
	if err := store.Unlock(passphrase); err != nil {
		fmt.Fprintf(stderr, "Error unlocking data directory: %v\n", err)
		return exitError
	}
	return exitOK
}

func runEncrypt(cfg *config.Config, store *storage.Storage, stdout, stderr io.Writer) int {
	if store.IsEncrypted() {
		fmt.Fprintln(stderr, "Error:", storage.ErrAlreadyEncrypted)
		return exitError
	}

	passphrase := cfg.Passphrase
	if passphrase == "" {
		first, err := passphraseReader("New passphrase: ")
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		second, err := passphraseReader("Repeat passphrase: ")
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		if first != second {
			fmt.Fprintln(stderr, "Error: passphrases do not match")
			return exitError
		}
		passphrase = first
	}

	if err := store.EnableEncryption(passphrase); err != nil {
		fmt.Fprintf(stderr, "Error enabling encryption: %v\n", err)
		return exitError
	}
	fmt.Fprintf(stdout, "Encrypted %s\n", store.BaseDir())
	return exitOK
}

func runDecrypt(cfg *config.Config, store *storage.Storage, stdout, stderr io.Writer) int {
	if !store.IsEncrypted() {
		fmt.Fprintln(stderr, "Error:", storage.ErrNotEncrypted)
		return exitError
	}

	passphrase := cfg.Passphrase
	if passphrase == "" {
		var err error
		if passphrase, err = passphraseReader("Passphrase: "); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
	}

	if err := store.DisableEncryption(passphrase); err != nil {
		fmt.Fprintf(stderr, "Error disabling encryption: %v\n", err)
		return exitError
	}
	fmt.Fprintf(stdout, "Decrypted %s\n", store.BaseDir())
	return exitOK
}

// promptPassphrase reads a passphrase from the terminal without echo
func promptPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no passphrase: set MENUSIM_PASSPHRASE or run from a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

func printReport(w io.Writer, r *models.Report) {
	money := advisor.Money

	fmt.Fprintf(w, "Report %s (%s mode, target margin %s%%)\n\n",
		r.ID, r.Settings.Mode.Label(), humanize.Ftoa(r.Settings.TargetMarginPct))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\tCurrent\tOptimized\t")
	rows := []struct {
		label    string
		cur, opt string
	}{
		{"Revenue", money(r.Current.Revenue), money(r.Optimized.Revenue)},
		{"Gross margin", money(r.Current.GrossMargin), money(r.Optimized.GrossMargin)},
		{"Gross margin %", pct(r.Current.GrossMarginPct), pct(r.Optimized.GrossMarginPct)},
		{"Material cost", money(r.Current.MaterialCost), money(r.Optimized.MaterialCost)},
		{"Total charges", money(r.Current.TotalCharges), money(r.Optimized.TotalCharges)},
		{"Net result", money(r.Current.NetResult), money(r.Optimized.NetResult)},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", row.label, row.cur, row.opt)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nFixed costs: %s today, %s projected\n", money(r.FixedCostsCurrent), money(r.FixedCostsProjected))
	fmt.Fprintf(w, "Breakeven: %s (gap %s)\n", money(r.Breakeven), money(r.Comparison.BreakevenGap))
	fmt.Fprintln(w, r.Comparison.Message)
	if r.Comparison.Advice != "" {
		fmt.Fprintln(w, r.Comparison.Advice)
	}

	if len(r.Recommendations.Prioritize) > 0 {
		fmt.Fprintln(w, "\nPrioritize:")
		for _, item := range r.Recommendations.Prioritize {
			fmt.Fprintf(w, "  %s (%s): +%s margin\n", item.Product.Name, item.Product.Category, money(item.MarginGain))
		}
	}
	if len(r.Recommendations.Review) > 0 {
		fmt.Fprintln(w, "\nReview prices:")
		for _, item := range r.Recommendations.Review {
			fmt.Fprintf(w, "  %s: %s -> %s\n", item.Product.Name,
				money(item.Product.PriceInclusive), money(item.SuggestedPriceInclusive))
		}
	}

	fmt.Fprintf(w, "\nIncremental procurement budget: %s\n", money(r.IncrementalSpend))
	for _, week := range r.Plan.Calendar {
		fmt.Fprintf(w, "  Week %d: %s  %s\n", week.Week, money(week.Budget), week.Actions)
	}
}

func pct(v float64) string {
	return humanize.FormatFloat("#,###.#", v) + "%"
}
