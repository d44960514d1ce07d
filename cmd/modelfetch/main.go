// Modelfetch downloads a model file with resume support. Interrupted
// downloads continue from the bytes already on disk, so a multi-gigabyte
// file survives flaky Wi-Fi and Ctrl+C.
//
// Usage:
//
//	modelfetch http://192.168.1.20:8001/gemma-3n-E4B-it-int4.task
//	modelfetch --discover -o ./assets/models/gemma.task
package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/plantmeet/modelserve/internal/artifact"
	"github.com/plantmeet/modelserve/internal/discovery"
	"github.com/plantmeet/modelserve/internal/fetch"
	"github.com/plantmeet/modelserve/internal/logging"
	"github.com/plantmeet/modelserve/internal/ui"
	"github.com/plantmeet/modelserve/internal/version"
)

var (
	sourceURL    string
	outputPath   string
	token        string
	expectedSize int64
	useDiscovery bool
	scanTimeout  time.Duration
	maxRetries   int
	logLevel     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "modelfetch [url]",
	Short: "Download a model file with resume support",
	Long: `Download one file over HTTP, resuming a partial download when the
output file already exists.

The source can be a modelserve instance on the LAN (found with --discover) or
any server that supports range requests. A token, if given, is sent as a
Bearer token; it defaults to the HF_TOKEN environment variable.`,
	Example: `  # Download from a known server
  modelfetch http://192.168.1.20:8001/gemma-3n-E4B-it-int4.task

  # Find a server over mDNS and save under a chosen name
  modelfetch --discover -o ./assets/models/gemma.task

  # Fetch from a hosted repository and verify the size
  modelfetch https://huggingface.co/org/repo/resolve/main/model.task --expected-size 4405655031`,
	Args:          cobra.MaximumNArgs(1),
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runFetch,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.Flags()
	flags.StringVar(&sourceURL, "url", "", "URL of the file (alternative to the positional argument)")
	flags.StringVarP(&outputPath, "output", "o", "", "Output path (default: file name from the URL)")
	flags.StringVar(&token, "token", os.Getenv("HF_TOKEN"), "Bearer token (default: $HF_TOKEN)")
	flags.Int64Var(&expectedSize, "expected-size", 0, "Required file size in bytes (0 = skip check)")
	flags.BoolVar(&useDiscovery, "discover", false, "Find a modelserve instance over mDNS")
	flags.DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "mDNS discovery timeout")
	flags.IntVar(&maxRetries, "retries", fetch.DefaultMaxRetries, "Retries after a transient failure")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := resolveSource(ctx, args)
	if err != nil {
		return err
	}

	out := outputPath
	if out == "" {
		out, err = outputFromURL(src)
		if err != nil {
			return err
		}
	}

	client := fetch.NewClient()
	client.Token = token
	client.MaxRetries = maxRetries

	req := fetch.Request{URL: src, Output: out, ExpectedSize: expectedSize}
	printer := ui.NewPrinter(os.Stdout)

	var res *fetch.Result
	if printer.Plain() {
		fmt.Printf("Downloading %s\n     -> %s\n", src, out)
		res, err = client.Download(ctx, req, fetch.LineReporter(os.Stdout, fetch.DefaultReportStep))
	} else {
		err = ui.RunWithProgress(ctx, path.Base(out), os.Stdout, func(ctx context.Context, onProgress ui.ProgressFunc) error {
			var derr error
			res, derr = client.Download(ctx, req, fetch.ProgressFunc(onProgress))
			return derr
		})
	}

	if err != nil {
		printer.PrintResult(ui.NewFailureResult("Download failed", err, fetch.Hints(err)...))
		if fetch.IsType(err, fetch.ErrTypeCancelled) {
			return errors.New("interrupted; run the same command again to resume")
		}
		return err
	}

	printer.PrintResult(downloadResult(res))
	return nil
}

// resolveSource picks the download URL from the argument, --url or mDNS.
func resolveSource(ctx context.Context, args []string) (string, error) {
	switch {
	case len(args) == 1 && sourceURL != "":
		return "", errors.New("give the URL either as an argument or with --url, not both")
	case len(args) == 1:
		return args[0], nil
	case sourceURL != "":
		return sourceURL, nil
	case !useDiscovery:
		return "", errors.New("no URL given: pass one or use --discover")
	}

	fmt.Printf("Looking for a model server (timeout: %s)...\n", scanTimeout)
	scanner := &discovery.Scanner{Timeout: scanTimeout}
	ep, err := scanner.FindFirst(ctx)
	if err != nil {
		return "", err
	}
	fmt.Printf("Found %s\n", ep)
	return ep.URL(), nil
}

// outputFromURL derives the file name from the last path segment.
func outputFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("cannot derive a file name from %q, pass --output", raw)
	}
	return name, nil
}

func downloadResult(res *fetch.Result) *ui.Result {
	sizeField := ui.Field{
		Key:   "Size",
		Value: fmt.Sprintf("%s (%d bytes)", artifact.FormatSize(res.Size), res.Size),
	}
	if res.Skipped {
		return ui.NewSuccessResult("Already downloaded", ui.Field{Key: "File", Value: res.Path}, sizeField)
	}

	r := ui.NewSuccessResult("Download complete", ui.Field{Key: "File", Value: res.Path}, sizeField)
	if res.ResumedFrom > 0 && !res.Restarted {
		r.AddDetail("Resumed at", artifact.FormatSize(res.ResumedFrom))
	}
	if res.Restarted {
		r.AddDetail("Restarted", "partial file could not be resumed")
	}
	if res.Attempts > 1 {
		r.AddDetail("Attempts", fmt.Sprint(res.Attempts))
	}
	r.AddDetail("Time", res.Duration.Round(time.Second).String())
	return r
}
