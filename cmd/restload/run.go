/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/acronis/go-asyncrest/config"
	"github.com/acronis/go-asyncrest/log"
	"github.com/acronis/go-asyncrest/restclient"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const (
	envVarsPrefix   = "RESTLOAD"
	clientKeyPrefix = "client"
	userAgent       = "restload"
)

type options struct {
	configPath    string
	baseURL       string
	path          string
	method        string
	body          string
	headers       headerFlags
	requests      int
	maxConcurrent int
	pacingDelay   time.Duration
	readTimeout   time.Duration
	keyed         bool
	workers       int
	quiet         bool
}

type headerFlags []string

func (h *headerFlags) String() string {
	return strings.Join(*h, ", ")
}

func (h *headerFlags) Set(v string) error {
	if !strings.Contains(v, ":") {
		return fmt.Errorf("header %q should be in \"Name: value\" form", v)
	}
	*h = append(*h, v)
	return nil
}

// sample is the outcome of a single request.
type sample struct {
	key     int
	result  restclient.Result[[]byte]
	latency time.Duration
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("restload", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to a YAML or JSON configuration file")
	fs.StringVar(&opts.baseURL, "url", "", "Base URL of the target server (required)")
	fs.StringVar(&opts.path, "path", "", "Request path appended to the base URL")
	fs.StringVar(&opts.method, "method", "GET", "HTTP method: GET, POST, PUT, PATCH or DELETE")
	fs.StringVar(&opts.body, "body", "", "Request body for POST, PUT and PATCH")
	fs.Var(&opts.headers, "H", "Request header in \"Name: value\" form (may be repeated)")
	fs.IntVar(&opts.requests, "n", 100, "Number of requests")
	fs.IntVar(&opts.maxConcurrent, "max", 0, "Maximum number of in-flight requests (overrides config, 0 = keep)")
	fs.DurationVar(&opts.pacingDelay, "pacing", 0, "Pacing delay (overrides config, 0 = keep)")
	fs.DurationVar(&opts.readTimeout, "timeout", 0, "Read timeout (overrides config, 0 = keep)")
	fs.BoolVar(&opts.keyed, "keyed", false, "Deliver results through a keyed response handler")
	fs.IntVar(&opts.workers, "workers", restclient.DefaultKeyedHandlerWorkers, "Keyed handler pollers")
	fs.BoolVar(&opts.quiet, "quiet", false, "Don't show the progress bar")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.baseURL == "" {
		return options{}, errors.New("-url is required")
	}
	if opts.requests <= 0 {
		return options{}, fmt.Errorf("-n should be positive, got %d", opts.requests)
	}
	return opts, nil
}

func loadConfig(opts options) (*restclient.Config, *log.Config, error) {
	clientCfg := restclient.NewConfigWithKeyPrefix(clientKeyPrefix)
	logCfg := log.NewConfig()
	loader := config.NewDefaultLoader(envVarsPrefix)
	var err error
	if opts.configPath == "" {
		err = loader.LoadFromReader(strings.NewReader(""), config.DataTypeYAML, clientCfg, logCfg)
	} else {
		dataType := config.DataTypeYAML
		if strings.EqualFold(filepath.Ext(opts.configPath), ".json") {
			dataType = config.DataTypeJSON
		}
		err = loader.LoadFromFile(opts.configPath, dataType, clientCfg, logCfg)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if opts.maxConcurrent > 0 {
		clientCfg.MaxConcurrentRequests = opts.maxConcurrent
	}
	if opts.pacingDelay > 0 {
		clientCfg.PacingDelay = opts.pacingDelay
	}
	if opts.readTimeout > 0 {
		clientCfg.ReadTimeout = opts.readTimeout
	}
	if clientCfg.Transport.UserAgent == "" {
		clientCfg.Transport.UserAgent = userAgent
	}
	if err = clientCfg.Validate(); err != nil {
		return nil, nil, err
	}
	return clientCfg, logCfg, nil
}

func parseVerb(method string) (restclient.Verb, error) {
	for _, v := range []restclient.Verb{
		restclient.VerbGet, restclient.VerbPost, restclient.VerbPut, restclient.VerbPatch, restclient.VerbDelete,
	} {
		if strings.EqualFold(method, v.Method()) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unsupported method %q", method)
}

func buildSpec(opts options) (restclient.RequestSpec, error) {
	b := restclient.NewRequestSpec(strings.TrimSuffix(opts.baseURL, "/"))
	if p := strings.Trim(opts.path, "/"); p != "" {
		b.WithPath(strings.Split(p, "/")...)
	}
	for _, h := range opts.headers {
		name, value, _ := strings.Cut(h, ":")
		b.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return b.Build()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintln(stderr, err)
		}
		return exitUsage
	}
	verb, err := parseVerb(opts.method)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return exitUsage
	}
	spec, err := buildSpec(opts)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return exitUsage
	}
	clientCfg, logCfg, err := loadConfig(opts)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return exitUsage
	}

	logger, closeLogger := log.NewLogger(logCfg)
	defer closeLogger()

	client, err := restclient.NewClientWithOpts(clientCfg, restclient.ClientOpts{Logger: logger})
	if err != nil {
		logger.Error("failed to create rest client", log.Error(err))
		return exitError
	}

	var body interface{}
	if opts.body != "" {
		body = []byte(opts.body)
	}

	var bar *progressbar.ProgressBar
	if !opts.quiet {
		bar = newProgressBar(opts.requests, stderr)
	}

	start := time.Now()
	var samples []sample
	if opts.keyed {
		samples, err = runKeyed(ctx, client, verb, spec, body, opts, bar)
	} else {
		samples = runBatch(ctx, client, verb, spec, body, opts.requests, bar)
	}
	elapsed := time.Since(start)
	if bar != nil {
		_ = bar.Finish()
		_, _ = fmt.Fprintln(stderr)
	}
	if closeErr := client.Close(true); closeErr != nil {
		logger.Warn("failed to close rest client gracefully", log.Error(closeErr))
	}
	if err != nil {
		logger.Error("load run failed", log.Error(err))
		return exitError
	}

	if err = renderReport(stdout, newReport(samples, elapsed, clientCfg)); err != nil {
		logger.Error("failed to render report", log.Error(err))
		return exitError
	}
	return exitOK
}

func newProgressBar(n int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Sending requests"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
}

func tick(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Add(1)
	}
}

// runBatch submits all requests at once and resolves them in parallel.
func runBatch(
	ctx context.Context, client *restclient.Client, verb restclient.Verb, spec restclient.RequestSpec,
	body interface{}, n int, bar *progressbar.ProgressBar,
) []sample {
	samples := make([]sample, n)
	started := make([]time.Time, n)
	handles := make([]*restclient.Handle[[]byte], n)
	for i := range handles {
		started[i] = time.Now()
		handles[i] = restclient.Submit[[]byte](ctx, client, verb, spec, body)
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range handles {
		g.Go(func() error {
			res := handles[i].Resolve()
			samples[i] = sample{key: i, result: res, latency: time.Since(started[i])}
			tick(bar)
			return nil
		})
	}
	_ = g.Wait()
	return samples
}

// runKeyed enqueues requests into a keyed handler and collects results from its sink.
func runKeyed(
	ctx context.Context, client *restclient.Client, verb restclient.Verb, spec restclient.RequestSpec,
	body interface{}, opts options, bar *progressbar.ProgressBar,
) ([]sample, error) {
	var mu sync.Mutex
	samples := make([]sample, 0, opts.requests)
	started := make([]time.Time, opts.requests)
	sink := restclient.ResponseSinkFunc[int, []byte](func(key int, res restclient.Result[[]byte]) {
		latency := time.Since(started[key])
		mu.Lock()
		samples = append(samples, sample{key: key, result: res, latency: latency})
		mu.Unlock()
		tick(bar)
	})

	handler, err := restclient.NewKeyedHandler[int, []byte](client, sink, restclient.KeyedHandlerOpts{
		Workers:          opts.workers,
		InactiveInterval: 10 * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	for i := 0; i < opts.requests; i++ {
		started[i] = time.Now()
		if err = handler.Enqueue(i, restclient.Submit[[]byte](ctx, client, verb, spec, body)); err != nil {
			_ = handler.Stop(false)
			return nil, err
		}
	}
	if err = handler.Stop(true); err != nil {
		return nil, err
	}
	return samples, nil
}
