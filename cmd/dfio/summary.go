package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/basekick-labs/dfio/internal/config"
	"github.com/basekick-labs/dfio/internal/methods"
	"github.com/basekick-labs/dfio/internal/query"
	"github.com/basekick-labs/dfio/internal/report"
	"github.com/basekick-labs/dfio/internal/results"
	"github.com/rs/zerolog/log"
)

// summaryFilter merges the -codename alias into the filter built from the
// other flags. Conflicting values are a usage error.
func summaryFilter(f, alias query.Filter) (query.Filter, error) {
	merged, ok := f.And(alias)
	if !ok {
		return query.Filter{}, fmt.Errorf("%w: -schema %q and -codename %q disagree", errUsage, f.Schema, alias.Schema)
	}
	return merged, nil
}

func summaryCommand(args []string) error {
	var f, alias query.Filter
	cfg, err := loadConfig("summary", args, func(fs *flag.FlagSet, cfg *config.Config) {
		fs.StringVar(&cfg.Bench.ResultsPath, "results", cfg.Bench.ResultsPath, "results log path")
		fs.StringVar(&f.Operation, "operation", "", "only records of this operation")
		fs.StringVar(&f.Schema, "schema", "", "only records of this schema code")
		fs.StringVar(&alias.Schema, "codename", "", "alias for -schema")
		fs.StringVar(&f.Class, "method", "", "only records of this method class")
		fs.Func("length", "only records of this table length", func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("invalid length %q", s)
			}
			f.Length = &n
			return nil
		})
	})
	if err != nil {
		return err
	}
	if f, err = summaryFilter(f, alias); err != nil {
		return err
	}

	store := results.NewStore(cfg.Bench.ResultsPath)
	recs, err := store.Load()
	if err != nil {
		return err
	}

	n, err := report.Render(os.Stdout, f.Apply(query.All(recs)))
	if err != nil {
		return err
	}
	log.Debug().
		Str("results", store.Path()).
		Int("loaded", len(recs)).
		Int("shown", n).
		Bool("filtered", !f.IsEmpty()).
		Msg("Rendered summary")
	return nil
}

func methodsCommand(args []string) error {
	var class string
	var asJSON bool
	cfg, err := loadConfig("methods", args, func(fs *flag.FlagSet, cfg *config.Config) {
		fs.StringVar(&class, "class", "", "only methods of this class")
		fs.BoolVar(&asJSON, "json", false, "print one JSON descriptor per line")
	})
	if err != nil {
		return err
	}

	strategies, err := selectMethods(newCatalog(cfg), class)
	if err != nil {
		return err
	}

	for _, s := range strategies {
		d, err := json.Marshal(s.Descriptor())
		if err != nil {
			return err
		}
		if asJSON {
			fmt.Println(string(d))
			continue
		}
		_, decompress := methods.AsDecompressor(s)
		line := commandStyle.Render(s.String())
		if decompress {
			line += " " + titleStyle.Render("[decompress]")
		}
		fmt.Println(line)
		fmt.Println("  " + descStyle.Render(string(d)))
	}
	return nil
}
