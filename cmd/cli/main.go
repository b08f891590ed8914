package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dvloznov/fintrack/internal/config"
	"github.com/dvloznov/fintrack/internal/domain"
	"github.com/dvloznov/fintrack/internal/export"
	"github.com/dvloznov/fintrack/internal/fuel"
	"github.com/dvloznov/fintrack/internal/gcs"
	"github.com/dvloznov/fintrack/internal/gcsuploader"
	infraBQ "github.com/dvloznov/fintrack/internal/infra/bigquery"
	"github.com/dvloznov/fintrack/internal/importer"
	"github.com/dvloznov/fintrack/internal/insights"
	"github.com/dvloznov/fintrack/internal/lent"
	"github.com/dvloznov/fintrack/internal/logger"
	"github.com/dvloznov/fintrack/internal/notionsync"
	"github.com/dvloznov/fintrack/internal/stats"
	"github.com/dvloznov/fintrack/internal/store"
	"github.com/rs/zerolog"
)

// app bundles what every subcommand needs.
type app struct {
	ctx   context.Context
	cfg   *config.Config
	log   zerolog.Logger
	store *store.Store
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	commands := map[string]func(*app, []string){
		"import":      runImport,
		"fuel":        runFuel,
		"lent":        runLent,
		"stats":       runStats,
		"export":      runExport,
		"insights":    runInsights,
		"scan":        runScan,
		"sync-notion": runSyncNotion,
		"reset":       runReset,
	}
	run, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	a, closeFn := newApp()
	defer closeFn()
	run(a, os.Args[2:])
}

func printUsage() {
	fmt.Println("fintrack CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  fintrack <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  import       Import a legacy tab-separated export (local path or gs:// URI)")
	fmt.Println("  fuel         Show fuel efficiency derived from expense notes")
	fmt.Println("  lent         List lent money, toggle returned state or record a partial return")
	fmt.Println("  stats        Show balance, category breakdown and recent transactions")
	fmt.Println("  export       Export to json, csv or BigQuery")
	fmt.Println("  insights     Refresh saving tips from Gemini")
	fmt.Println("  scan         Record an expense from a receipt image")
	fmt.Println("  sync-notion  Mirror the lent ledger into a Notion database")
	fmt.Println("  reset        Delete all transactions and insights")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nRun 'fintrack <command> -h' for more information on a command.")
}

func newApp() (*app, func()) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx := logger.WithContext(context.Background(), log)

	kv, closeKV, err := store.OpenBackend(ctx, cfg.DataDir, cfg.GCSBucket, cfg.GCSPrefix)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage backend")
	}

	st, err := store.Open(ctx, kv)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load data")
	}

	return &app{ctx: ctx, cfg: cfg, log: log, store: st}, func() {
		if err := closeKV(); err != nil {
			log.Warn().Err(err).Msg("Failed to close storage backend")
		}
	}
}

func runImport(a *app, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	source := fs.String("file", "", "Path or gs:// URI of the export")
	fs.Parse(args)

	if *source == "" && fs.NArg() > 0 {
		*source = fs.Arg(0)
	}
	if *source == "" {
		a.log.Fatal().Msg("Usage: fintrack import -file PATH|gs://bucket/object")
	}

	ctx, cancel := context.WithTimeout(a.ctx, 5*time.Minute)
	defer cancel()

	im := importer.New(a.store, gcsuploader.NewGCSStorageService(), importer.Options{})
	res, err := im.ImportSource(ctx, *source)
	if err != nil {
		a.log.Fatal().Err(err).Str("source", *source).Msg("Import failed")
	}

	fmt.Printf("Imported %d transactions (%d lines skipped).\n", len(res.Transactions), len(res.Skipped))
	for _, s := range res.Skipped {
		fmt.Printf("  skipped %s\n", s.Error())
	}
}

func runFuel(a *app, args []string) {
	fs := flag.NewFlagSet("fuel", flag.ExitOnError)
	fs.Parse(args)

	res := fuel.Analyze(a.store.Transactions())
	if res == nil {
		fmt.Println("Not enough fuel entries. Add notes like \"Petrol 10L 45200km\" to two or more expenses.")
		return
	}

	fmt.Printf("Average mileage:   %.2f km/L\n", res.AvgMileage)
	fmt.Printf("Average cost/km:   %.2f\n", res.AvgCostPerKm)
	fmt.Printf("Distance tracked:  %.0f km\n", res.TotalKmTracked)
	fmt.Println(res.EfficiencySummary)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nDATE\tODOMETER\tLITERS\tKM/L\tPRICE/L")
	for _, p := range res.LogPoints {
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%.2f\n", p.Date.Format(time.DateOnly), p.Odometer, p.Liters, p.Mileage, p.PricePerLiter)
	}
	w.Flush()
}

func runLent(a *app, args []string) {
	fs := flag.NewFlagSet("lent", flag.ExitOnError)
	filter := fs.String("filter", "all", "all, pending or returned")
	toggle := fs.String("toggle", "", "Transaction ID to flip between returned and outstanding")
	partialID := fs.String("partial", "", "Transaction ID to record a partial return against")
	amount := fs.Float64("amount", 0, "Partial return amount")
	dateStr := fs.String("date", "", "Partial return date (YYYY-MM-DD, default today)")
	fs.Parse(args)

	switch {
	case *toggle != "":
		tx, err := a.store.Mutate(a.ctx, *toggle, func(tx *domain.Transaction) error {
			return lent.ToggleReturned(tx, time.Now())
		})
		if err != nil {
			a.log.Fatal().Err(err).Str("transaction_id", *toggle).Msg("Toggle failed")
		}
		fmt.Printf("%s is now %s.\n", tx.Note, lent.StatusOf(&tx).State)

	case *partialID != "":
		date := time.Now()
		if *dateStr != "" {
			d, err := time.ParseInLocation(time.DateOnly, *dateStr, time.Local)
			if err != nil {
				a.log.Fatal().Err(err).Str("date", *dateStr).Msg("Error: invalid date format, expected YYYY-MM-DD")
			}
			date = d
		}
		tx, err := a.store.Mutate(a.ctx, *partialID, func(tx *domain.Transaction) error {
			_, err := lent.AddPartialReturn(tx, *amount, date)
			return err
		})
		if err != nil {
			a.log.Fatal().Err(err).Str("transaction_id", *partialID).Msg("Partial return failed")
		}
		st := lent.StatusOf(&tx)
		fmt.Printf("%s: returned %s, remaining %s (%s).\n", tx.Note, st.Returned, st.Remaining, st.State)

	default:
		txs := a.store.Transactions()
		list := lent.List(txs, lent.ParseFilter(*filter))
		sum := lent.Summarize(txs)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDATE\tCOUNTERPARTY\tAMOUNT\tRETURNED\tREMAINING\tSTATUS")
		for i := range list {
			tx := &list[i]
			st := lent.StatusOf(tx)
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\t%s\n",
				tx.ID, tx.Date.Format(time.DateOnly), tx.Note, tx.Amount, st.Returned.StringFixed(2), st.Remaining.StringFixed(2), st.State)
		}
		w.Flush()
		fmt.Printf("\n%d lent, total %s, returned %s, pending %s\n",
			sum.Count, sum.Total.StringFixed(2), sum.Returned.StringFixed(2), sum.Pending.StringFixed(2))
	}
}

func runStats(a *app, args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	period := fs.String("period", "month", "day, week, month, year or all")
	recent := fs.Int("recent", 5, "Number of recent transactions to show")
	fs.Parse(args)

	p := stats.ParsePeriod(*period)
	categories, methods := a.store.Dictionaries()
	txs := stats.FilterByPeriod(a.store.Transactions(), p, time.Now())
	sum := stats.Summarize(txs)

	fmt.Printf("Period: %s\n", p)
	fmt.Printf("Income:       %s\n", sum.Income.StringFixed(2))
	fmt.Printf("Expenses:     %s\n", sum.Expenses.StringFixed(2))
	fmt.Printf("Lent pending: %s\n", sum.LentPending.StringFixed(2))
	fmt.Printf("Balance:      %s\n", sum.Balance.StringFixed(2))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nCATEGORY\tAMOUNT\tSHARE")
	for _, c := range stats.CategoryBreakdown(txs, categories, domain.TypeExpense) {
		fmt.Fprintf(w, "%s %s\t%s\t%.1f%%\n", c.Icon, c.Name, c.Value.StringFixed(2), c.Percentage)
	}
	w.Flush()

	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nDATE\tTYPE\tCATEGORY\tASSET\tAMOUNT\tNOTE")
	for _, tx := range stats.Recent(txs, "", *recent) {
		name, _ := domain.CategoryLabel(categories, tx.CategoryID)
		if tx.IsLent() {
			name = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\n",
			tx.Date.Format(time.DateOnly), domain.NormalizeType(tx.Type), name,
			domain.PaymentMethodLabel(methods, tx.PaymentMethodID), tx.Amount, tx.Note)
	}
	w.Flush()
}

func runExport(a *app, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", "json", "json, csv or bigquery")
	out := fs.String("out", "", "Output path or gs:// URI (default: dated file name in the current directory)")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(a.ctx, 10*time.Minute)
	defer cancel()

	now := time.Now()
	categories, methods := a.store.Dictionaries()
	txs := a.store.Transactions()

	var (
		buf         bytes.Buffer
		name        string
		contentType string
		err         error
	)
	switch *format {
	case "json":
		name, contentType = export.BackupFileName(now), "application/json"
		err = export.WriteJSON(&buf, export.NewBundle(txs, categories, methods, now))
	case "csv":
		name, contentType = export.LogFileName(now), "text/csv"
		err = export.WriteCSV(&buf, txs, categories, methods, time.Local)
	case "bigquery":
		exportBigQuery(ctx, a, txs, categories, methods)
		return
	default:
		a.log.Fatal().Str("format", *format).Msg("Error: --format must be json, csv or bigquery")
	}
	if err != nil {
		a.log.Fatal().Err(err).Msg("Export failed")
	}

	dest := *out
	if dest == "" {
		dest = name
	}

	if gcs.IsGCSURI(dest) {
		if err := gcsuploader.UploadBytes(ctx, dest, buf.Bytes(), contentType); err != nil {
			a.log.Fatal().Err(err).Str("uri", dest).Msg("Upload failed")
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			a.log.Fatal().Err(err).Msg("Failed to create output directory")
		}
		if err := os.WriteFile(dest, buf.Bytes(), 0o644); err != nil {
			a.log.Fatal().Err(err).Str("path", dest).Msg("Failed to write export")
		}
	}

	fmt.Printf("Exported %d transactions to %s\n", len(txs), dest)
}

func exportBigQuery(ctx context.Context, a *app, txs []domain.Transaction, categories []domain.Category, methods []domain.PaymentMethod) {
	if a.cfg.BigQueryProject == "" {
		a.log.Fatal().Msg("Error: BIGQUERY_PROJECT is required for BigQuery export")
	}

	repo, err := infraBQ.NewBigQueryTransactionRepository(ctx, a.cfg.BigQueryProject, a.cfg.BigQueryDataset)
	if err != nil {
		a.log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}
	defer repo.Close()

	report, err := export.NewBigQueryExporter(repo).Export(ctx, txs, categories, methods)
	if err != nil {
		a.log.Fatal().Err(err).Msg("BigQuery export failed")
	}
	fmt.Printf("BigQuery: inserted %d, already exported %d\n", report.Inserted, report.Skipped)
}

func newInsightsService(a *app) *insights.Service {
	client, err := insights.NewGeminiClient(a.ctx, a.cfg.GeminiAPIKey, a.cfg.GeminiModel)
	if err != nil {
		a.log.Fatal().Err(err).Msg("Failed to create Gemini client (set GEMINI_API_KEY)")
	}
	return insights.NewService(client, a.store)
}

func runInsights(a *app, args []string) {
	fs := flag.NewFlagSet("insights", flag.ExitOnError)
	show := fs.Bool("show", false, "Print stored insights without refreshing")
	fs.Parse(args)

	out := a.store.Insights()
	if !*show {
		ctx, cancel := context.WithTimeout(a.ctx, 2*time.Minute)
		defer cancel()

		var err error
		out, err = newInsightsService(a).RefreshInsights(ctx)
		if err != nil {
			a.log.Fatal().Err(err).Msg("Insight refresh failed")
		}
	}

	if len(out) == 0 {
		fmt.Println("No insights yet. Run 'fintrack insights' to generate some.")
		return
	}
	for _, in := range out {
		fmt.Printf("[%s] %s\n    %s\n", in.Severity, in.Title, in.Description)
	}
}

func runScan(a *app, args []string) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	filePath := fs.String("file", "", "Receipt image path or gs:// URI")
	fs.Parse(args)

	if *filePath == "" {
		a.log.Fatal().Msg("Usage: fintrack scan -file PATH")
	}

	ctx, cancel := context.WithTimeout(a.ctx, 2*time.Minute)
	defer cancel()

	var (
		image []byte
		err   error
	)
	if gcs.IsGCSURI(*filePath) {
		image, err = gcsuploader.FetchFromGCS(ctx, *filePath)
	} else {
		image, err = os.ReadFile(*filePath)
	}
	if err != nil {
		a.log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read receipt")
	}

	tx, err := newInsightsService(a).ScanReceipt(ctx, image, http.DetectContentType(image))
	if err != nil {
		a.log.Fatal().Err(err).Msg("Receipt scan failed")
	}

	name, _ := domain.CategoryLabel(a.store.Categories(), tx.CategoryID)
	fmt.Printf("Recorded %.2f in %s on %s (%s)\n", tx.Amount, name, tx.Date.Format(time.DateOnly), tx.Note)
}

func runSyncNotion(a *app, args []string) {
	fs := flag.NewFlagSet("sync-notion", flag.ExitOnError)
	notionToken := fs.String("notion-token", a.cfg.NotionToken, "Notion API token (or NOTION_TOKEN)")
	notionDBID := fs.String("notion-db-id", a.cfg.NotionLentDBID, "Notion database ID (or NOTION_LENT_DB_ID)")
	dryRun := fs.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	fs.Parse(args)

	if *notionDBID == "" {
		a.log.Fatal().Msg("Error: --notion-db-id is required")
	}
	client, err := notionsync.NewNotionClient(*notionToken)
	if err != nil {
		a.log.Fatal().Err(err).Msg("Error: --notion-token is required")
	}

	ctx, cancel := context.WithTimeout(a.ctx, 10*time.Minute)
	defer cancel()

	report, err := notionsync.SyncLent(ctx, client, *notionDBID, a.store.Transactions(), a.store.PaymentMethods(), *dryRun)
	if err != nil {
		a.log.Fatal().Err(err).Msg("Notion sync failed")
	}
	fmt.Printf("Notion: created %d, updated %d, archived %d, failed %d\n",
		report.Created, report.Updated, report.Deleted, report.Failed)
}

func runReset(a *app, args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Confirm deletion of all transactions and insights")
	fs.Parse(args)

	if !*yes {
		a.log.Fatal().Msg("Refusing to reset without --yes")
	}
	if err := a.store.Reset(a.ctx); err != nil {
		a.log.Fatal().Err(err).Msg("Reset failed")
	}
	fmt.Println("All transactions and insights deleted.")
}
