// Command fetch resolves a single filing request from the command line
// and prints a Markdown digest. Useful for poking at the pipeline without
// the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"sec_filings/pkg/core/cache"
	"sec_filings/pkg/core/edgar"
	"sec_filings/pkg/core/report"
	"sec_filings/pkg/core/summary"
)

func main() {
	godotenv.Load()

	ticker := flag.String("ticker", "", "ticker symbol, e.g. AAPL")
	cik := flag.String("cik", "", "canonical CIK, leading zeros optional")
	company := flag.String("company", "", "free-text company name")
	form := flag.String("form", edgar.Form10K, "form type: 10-K or 13F-HR")
	year := flag.Int("year", 0, "filing or report year")
	date := flag.String("date", "", "exact filing date, YYYY-MM-DD")
	limit := flag.Int("limit", summary.DefaultHoldingsLimit, "max holdings to print")
	dataDir := flag.String("data-dir", ".cache/filings", "on-disk cache location")
	noCache := flag.Bool("no-cache", false, "disable the on-disk cache")
	flag.Parse()

	if *ticker == "" && *cik == "" && *company == "" {
		fmt.Fprintln(os.Stderr, "need at least one of -ticker, -cik, -company")
		flag.Usage()
		os.Exit(2)
	}

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	client := edgar.NewClient(edgar.WithLogger(log.Named("edgar")))
	directory := edgar.NewDirectory(client, *dataDir, !*noCache, log.Named("directory"))
	resolver := edgar.NewResolver(client, directory, log.Named("resolver"))
	store := cache.New(*dataDir, !*noCache, nil, log.Named("cache"))
	service := summary.NewService(client, resolver, store, log.Named("summary"))

	filing, err := service.Summarize(context.Background(), summary.Request{
		Ticker:        *ticker,
		CIK:           *cik,
		CompanyName:   *company,
		FormType:      *form,
		FilingDate:    *date,
		FilingYear:    *year,
		LimitHoldings: *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	digest, err := report.RenderMarkdown(filing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(digest)
}
