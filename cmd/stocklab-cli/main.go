package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"stocklab/pkg/stocklab"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: stocklab-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version     Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  health      Check stocklab-server status\n")
		fmt.Fprintf(os.Stderr, "  symbols     List symbols with stored bars\n")
		fmt.Fprintf(os.Stderr, "  backtest    Run a crossover backtest\n")
		fmt.Fprintf(os.Stderr, "  predict     Forecast upcoming closes\n")
		fmt.Fprintf(os.Stderr, "  report      Download a backtest report\n")
		fmt.Fprintf(os.Stderr, "\nServer address comes from STOCKLAB_SERVER (default http://localhost:8080).\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	serverURL := "http://localhost:8080"
	if v := os.Getenv("STOCKLAB_SERVER"); v != "" {
		serverURL = v
	}
	client := stocklab.NewClient(serverURL)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "version":
		fmt.Printf("stocklab-cli %s\n", version)

	case "health":
		if err := client.Health(ctx); err != nil {
			fatalf("server not healthy: %v", err)
		}
		fmt.Println("ok")

	case "symbols":
		symbols, err := client.ListSymbols(ctx)
		if err != nil {
			fatalf("listing symbols: %v", err)
		}
		for _, s := range symbols {
			fmt.Println(s)
		}

	case "backtest":
		runBacktest(ctx, client, os.Args[2:])

	case "predict":
		runPredict(ctx, client, os.Args[2:])

	case "report":
		runReport(ctx, client, os.Args[2:])

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
}

func runBacktest(ctx context.Context, client *stocklab.Client, args []string) {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	symbol := fs.String("symbol", "", "ticker symbol (required)")
	start := fs.String("start", "", "start date YYYY-MM-DD (required)")
	end := fs.String("end", "", "end date YYYY-MM-DD (required)")
	investment := fs.Float64("investment", 10000, "initial investment")
	short := fs.Int("short", 0, "short moving-average window (0 = server default)")
	long := fs.Int("long", 0, "long moving-average window (0 = server default)")
	fs.Parse(args)

	if *symbol == "" || *start == "" || *end == "" {
		fs.Usage()
		os.Exit(1)
	}

	result, err := client.RunBacktest(ctx, stocklab.BacktestRequest{
		Symbol:            *symbol,
		StartDate:         *start,
		EndDate:           *end,
		InitialInvestment: *investment,
		ShortWindow:       *short,
		LongWindow:        *long,
	})
	if err != nil {
		fatalf("backtest: %v", err)
	}

	fmt.Printf("backtest %s\n", result.ID)
	fmt.Printf("  symbol:        %s\n", result.Symbol)
	fmt.Printf("  final value:   %.2f\n", result.FinalValue)
	fmt.Printf("  total return:  %.2f%%\n", result.TotalReturnPct)
	fmt.Printf("  max drawdown:  %.2f%%\n", result.MaxDrawdownPct)
	fmt.Printf("  trades:        %d\n", result.NumTrades)
	for _, tr := range result.Trades {
		fmt.Printf("    %-4s %s @ %.2f\n", tr.Side, tr.Date.Format("2006-01-02"), tr.Price)
	}
}

func runPredict(ctx context.Context, client *stocklab.Client, args []string) {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	symbol := fs.String("symbol", "", "ticker symbol (required)")
	days := fs.Int("days", 7, "trading days to forecast")
	fs.Parse(args)

	if *symbol == "" {
		fs.Usage()
		os.Exit(1)
	}

	preds, err := client.Predict(ctx, *symbol, *days)
	if err != nil {
		fatalf("predict: %v", err)
	}
	for _, p := range preds {
		fmt.Printf("%s  %.2f\n", p.Date.Format("2006-01-02"), p.PredictedPrice)
	}
}

func runReport(ctx context.Context, client *stocklab.Client, args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	id := fs.String("id", "", "backtest id (required)")
	format := fs.String("format", "pdf", "report format: pdf or png")
	out := fs.String("out", "", "output file (default backtest-<id>.<format>)")
	fs.Parse(args)

	if *id == "" {
		fs.Usage()
		os.Exit(1)
	}

	body, err := client.GetReport(ctx, *id, *format)
	if err != nil {
		fatalf("report: %v", err)
	}

	path := *out
	if path == "" {
		path = fmt.Sprintf("backtest-%s.%s", *id, *format)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		fatalf("writing %s: %v", path, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", path, len(body))
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
