// Command finreport prints the dashboard view and the spending reports of a
// bank statement, or serves them over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"finreport/internal/cli"
	"finreport/internal/config"
	"finreport/internal/core"
	apphttp "finreport/internal/http"
	"finreport/internal/log"
	"finreport/internal/views"
)

// separator is followed by a newline when printed.
const separator = "\n###################\n"

func main() {
	cli.LoadEnvFile()

	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(2)
	}
	cmd := os.Args[1]
	switch cmd {
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return
	case "views", "investment", "category", "all", "serve":
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage(os.Stderr)
		os.Exit(2)
	}

	cfg, logger := cli.LoadAndValidateConfig()

	if cmd == "serve" {
		os.Exit(serve(cfg, logger))
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Initialization failed", log.FieldError, err)
		os.Exit(1)
	}

	code := 0
	if err := run(ctx, a, cmd, os.Args[2:], os.Stdout); err != nil {
		logger.Error("Command failed", "command", cmd, log.FieldError, err)
		code = 1
		if errors.Is(err, flag.ErrHelp) {
			code = 0
		}
	}
	if err := a.Close(); err != nil {
		logger.Warn("Cleanup failed", log.FieldError, err)
	}
	os.Exit(code)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "finreport")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  finreport <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  views       Print the dashboard view (greeting, cards, top 5, quotes)")
	fmt.Fprintln(w, "  investment  Print the round-up savings of a month")
	fmt.Fprintln(w, "  category    Print the twelve week spend of a category")
	fmt.Fprintln(w, "  all         Print the view, the investment and the category report")
	fmt.Fprintln(w, "  serve       Serve the JSON API")
	fmt.Fprintln(w, "  help        Show this help message")
	fmt.Fprintln(w, "\nRun 'finreport <command> -h' for more information on a command.")
}

// run executes a reporting subcommand and writes its output to out.
func run(ctx context.Context, a *app, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "views":
		return runViews(ctx, a, args, out)
	case "investment":
		return runInvestment(ctx, a, args, out)
	case "category":
		return runCategory(ctx, a, args, out)
	case "all":
		return runAll(ctx, a, args, out)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runViews(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("views", flag.ContinueOnError)
	date := fs.String("date", time.Now().Format(views.DateLayout), "view timestamp, YYYY-MM-DD HH:MM:SS")
	source := fs.String("source", "", "statement file or sheet tab (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return printView(ctx, a, *date, *source, out)
}

func printView(ctx context.Context, a *app, date, source string, out io.Writer) error {
	view, err := a.views.ComposeFromSource(ctx, date, source)
	if err != nil {
		return err
	}
	body, err := view.JSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, body)
	return err
}

func runInvestment(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("investment", flag.ContinueOnError)
	month := fs.String("month", time.Now().Format(core.MonthLayout), "month, YYYY-MM")
	limit := fs.Int("limit", apphttp.DefaultLimit, "rounding step")
	source := fs.String("source", "", "statement file or sheet tab (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return printInvestment(ctx, a, *month, *limit, *source, out)
}

func printInvestment(ctx context.Context, a *app, month string, limit int, source string, out io.Writer) error {
	txs, err := a.load(ctx, source)
	if err != nil {
		return err
	}
	savings, err := a.reports.Investment(ctx, month, txs, limit)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, savings)
	return err
}

func runCategory(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("category", flag.ContinueOnError)
	category := fs.String("category", "", "category pattern (required)")
	date := fs.String("date", "", "reference date, YYYY-MM-DD (default today)")
	head := fs.Int("head", 0, "print only the first n records; 0 prints all")
	source := fs.String("source", "", "statement file or sheet tab (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *category == "" {
		return errors.New("-category is required")
	}
	return printCategory(ctx, a, *category, *date, *head, *source, out)
}

func printCategory(ctx context.Context, a *app, category, date string, head int, source string, out io.Writer) error {
	txs, err := a.load(ctx, source)
	if err != nil {
		return err
	}
	records, err := a.reports.CategorySpend(ctx, txs, category, date)
	if err != nil {
		return err
	}
	if head > 0 && len(records) > head {
		records = records[:head]
	}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// runAll prints the three outputs in turn, separated by a rule.
func runAll(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("all", flag.ContinueOnError)
	date := fs.String("date", time.Now().Format(views.DateLayout), "view timestamp, YYYY-MM-DD HH:MM:SS")
	month := fs.String("month", time.Now().Format(core.MonthLayout), "investment month, YYYY-MM")
	limit := fs.Int("limit", 100, "investment rounding step")
	category := fs.String("category", "Фастфуд", "category pattern")
	refDate := fs.String("ref-date", "", "category reference date, YYYY-MM-DD (default today)")
	source := fs.String("source", "", "statement file or sheet tab (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := printView(ctx, a, *date, *source, out); err != nil {
		return err
	}
	fmt.Fprint(out, separator+"\n")
	if err := printInvestment(ctx, a, *month, *limit, *source, out); err != nil {
		return err
	}
	fmt.Fprint(out, separator+"\n")
	return printCategory(ctx, a, *category, *refDate, 5, *source, out)
}

// serve runs the HTTP API until SIGINT or SIGTERM and returns the exit code.
func serve(cfg *config.Config, logger *log.Logger) int {
	a, err := newApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Initialization failed", log.FieldError, err)
		return 1
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Loader:            a.loader,
		Views:             a.views,
		Reports:           a.reports,
		DefaultSource:     a.defaultSource(),
		Checks:            a.checks,
		RequestsPerMinute: cfg.RequestsPerMinute,
		TrustedProxies:    cfg.TrustedProxies,
		Logger:            logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting finreport server", "port", cfg.Port, log.FieldSource, cfg.TransactionSource)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		a.Close()
		return 1
	}

	cli.WaitForShutdown(ctx, done)
	if err := a.Close(); err != nil {
		logger.Warn("Cleanup failed", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
	return 0
}
