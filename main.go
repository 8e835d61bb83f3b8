package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pulpqe/pulp-contract-tests/client"
	"github.com/pulpqe/pulp-contract-tests/framework"
	"github.com/pulpqe/pulp-contract-tests/harness"
	"github.com/pulpqe/pulp-contract-tests/pulptests"
)

const statusQueryTimeout = time.Second * 10

func main() {
	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(1)
	}

	mainDebugLogger := framework.NullLogger()
	if params.debugAll {
		mainDebugLogger = log.New(os.Stdout, "", log.LstdFlags)
	}

	pulp := client.New(client.Options{
		BaseURL:  params.cfg.APIURL,
		Username: params.cfg.Username,
		Password: params.cfg.Password,
		Insecure: params.insecure,
		Logger:   mainDebugLogger,
	})

	if err := awaitAPI(pulp, statusQueryTimeout); err != nil {
		fmt.Fprintf(os.Stderr, "Pulp API error: %s\n", err)
		os.Exit(1)
	}

	var runner harness.CommandRunner = harness.LocalRunner{}
	if params.cfg.ServiceHost != "" {
		runner = harness.SSHRunner{Host: params.cfg.ServiceHost}
	}
	svcMgr := harness.NewServiceManager(runner, pulp, params.cfg.Services, mainDebugLogger)

	fmt.Println()
	framework.PrintFilterDescription(params.filters)

	fmt.Println("Running test suite")

	testLogger := &ConsoleTestLogger{
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}

	results, err := pulptests.RunTestSuite(pulptests.SuiteOptions{
		Config:         params.cfg,
		Pulp:           pulp,
		ServiceManager: svcMgr,
		Filter:         params.filters.AsFilter,
		TestLogger:     testLogger,
		Nightly:        params.nightly,
		CheckLeftovers: params.noLeftovers,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Test suite error: %s\n", err)
		os.Exit(1)
	}

	fmt.Println()
	printResults(results)
	if !results.OK() {
		os.Exit(1)
	}
}

// awaitAPI verifies the deployment is responding before any test runs.
func awaitAPI(pulp *client.PulpClient, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	fmt.Printf("Connecting to Pulp at %s", pulp.BaseURL())
	deadline := time.Now().Add(timeout)
	for {
		fmt.Printf(".")
		status, code, err := pulp.ReadStatus(ctx)
		if err == nil && code == 200 {
			fmt.Println()
			fmt.Printf("Status: %d workers, %d content apps, database connected: %v\n",
				len(status.OnlineWorkers), len(status.OnlineContentApps),
				status.DatabaseConnection.Connected)
			return nil
		}
		if !time.Now().Before(deadline) {
			fmt.Println()
			if err == nil {
				err = fmt.Errorf("status code %d", code)
			}
			return fmt.Errorf("result of last query was: %w", err)
		}
		time.Sleep(time.Millisecond * 500)
	}
}
