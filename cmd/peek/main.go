package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/bussinfr/viewer/internal/gtfsrt"
)

func main() {
	timeout := flag.Duration("timeout", 20*time.Second, "HTTP timeout for the feed request")
	summary := flag.Bool("summary", false, "Print only the entity counts as JSON")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <gtfs-rt feed url>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	url := flag.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	feed, err := gtfsrt.NewClient(*timeout).Fetch(ctx, url)
	if err != nil {
		log.Fatalf("Failed to fetch feed: %v", err)
	}

	if *summary {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(gtfsrt.Summarize(feed)); err != nil {
			log.Fatalf("Failed to write summary: %v", err)
		}
		return
	}

	if err := gtfsrt.Dump(os.Stdout, feed, url); err != nil {
		log.Fatalf("Failed to dump feed: %v", err)
	}
}
