package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pulpqe/pulp-contract-tests/config"
	"github.com/pulpqe/pulp-contract-tests/framework"
)

type commandParams struct {
	cfg         *config.Config
	filters     framework.RegexFilters
	nightly     bool
	noLeftovers bool
	insecure    bool
	debug       bool
	debugAll    bool
}

func (c *commandParams) Read(args []string) bool {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return false
	}
	c.cfg = cfg

	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.StringVar(&cfg.APIURL, "url", cfg.APIURL, "base URL of the Pulp API")
	fs.StringVar(&cfg.FixturesOrigin, "host", cfg.FixturesOrigin, "hostname local fixture servers bind to")
	fs.StringVar(&cfg.FixturesDir, "fixtures-dir", cfg.FixturesDir, "local directory of content fixtures")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.BoolVar(&c.nightly, "nightly", false, "also run nightly-only tests")
	fs.BoolVar(&c.noLeftovers, "no-leftovers", false,
		"check for remote objects left over after each test (tests run serially)")
	fs.BoolVar(&c.insecure, "insecure", false, "skip TLS verification of the Pulp API")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all tests")

	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return false
	}
	return true
}
