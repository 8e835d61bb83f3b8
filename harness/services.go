package harness

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"github.com/cenkalti/backoff/v4"

	"github.com/pulpqe/pulp-contract-tests/client"
	"github.com/pulpqe/pulp-contract-tests/framework"
)

const (
	servicePollInterval = 3 * time.Second
	servicePollAttempts = 10
)

// CommandRunner executes a service-manager command, either locally or on a
// remote host.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// LocalRunner executes commands on the local machine.
type LocalRunner struct{}

func (LocalRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// SSHRunner executes commands on a remote host over ssh. The remote command
// line is shell-quoted argument by argument, since ssh passes it through the
// remote shell.
type SSHRunner struct {
	Host string
}

func (r SSHRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var b commandBuilder
	b.add(name)
	b.add(args...)
	return exec.CommandContext(ctx, "ssh", r.Host, b.String()).CombinedOutput()
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}

// StatusReader is the slice of the API client the poller needs.
type StatusReader interface {
	ReadStatus(ctx context.Context) (*client.Status, int, error)
}

// ServiceManager starts and stops the deployment's service units and polls
// the status endpoint until the requested state is observed.
type ServiceManager struct {
	runner   CommandRunner
	status   StatusReader
	services []string
	logger   framework.Logger

	// Interval and Attempts control the status polling loop. They default to
	// 3 seconds and 10 attempts; tests shrink them.
	Interval time.Duration
	Attempts uint64
}

func NewServiceManager(runner CommandRunner, status StatusReader, services []string, logger framework.Logger) *ServiceManager {
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &ServiceManager{
		runner:   runner,
		status:   status,
		services: services,
		logger:   logger,
		Interval: servicePollInterval,
		Attempts: servicePollAttempts,
	}
}

func (m *ServiceManager) systemctl(ctx context.Context, verb string, services []string) error {
	if len(services) == 0 {
		services = m.services
	}
	args := append([]string{verb}, services...)
	out, err := m.runner.Run(ctx, "systemctl", args...)
	if err != nil {
		return fmt.Errorf("systemctl %s: %w (%s)", verb, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (m *ServiceManager) pollBackOff(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(m.Interval), m.Attempts-1),
		ctx,
	)
}

var errNotReady = errors.New("services not ready yet")
var errStillUp = errors.New("services still responding")

// StartAndCheck issues a start for the services (all configured ones when the
// argument is empty) and polls the status endpoint until it reports HTTP 200
// with at least one online worker, at least one online content app, and a
// connected database. Transient errors during polling are retried; the
// result is a boolean, true only if readiness was observed within the
// attempt budget.
func (m *ServiceManager) StartAndCheck(ctx context.Context, services ...string) bool {
	if err := m.systemctl(ctx, "start", services); err != nil {
		m.logger.Printf("%s", err)
		return false
	}
	check := func() error {
		status, code, err := m.status.ReadStatus(ctx)
		if err != nil {
			// API not responding yet.
			return errNotReady
		}
		if code == 200 &&
			len(status.OnlineWorkers) > 0 &&
			len(status.OnlineContentApps) > 0 &&
			status.DatabaseConnection.Connected {
			return nil
		}
		// Sometimes the content app takes longer to come up than the API.
		return errNotReady
	}
	if err := backoff.Retry(check, m.pollBackOff(ctx)); err != nil {
		m.logger.Printf("services did not become ready: %s", err)
		return false
	}
	return true
}

// StopAndCheck issues a stop for the services and polls until a status read
// fails. Any failure (connection refused, timeout, or API error response) is
// taken as confirmation the service is down. Returns false if the API kept
// responding for the whole attempt budget.
func (m *ServiceManager) StopAndCheck(ctx context.Context, services ...string) bool {
	if err := m.systemctl(ctx, "stop", services); err != nil {
		m.logger.Printf("%s", err)
		return false
	}
	check := func() error {
		if _, _, err := m.status.ReadStatus(ctx); err != nil {
			return nil
		}
		return errStillUp
	}
	return backoff.Retry(check, m.pollBackOff(ctx)) == nil
}
