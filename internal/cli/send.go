package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/lighthttp/internal/config"
	"github.com/matzehuels/lighthttp/pkg/cache"
	"github.com/matzehuels/lighthttp/pkg/cached"
	"github.com/matzehuels/lighthttp/pkg/errors"
	"github.com/matzehuels/lighthttp/pkg/request"
)

// requestIDHeader carries a fresh UUID on every request the CLI sends.
const requestIDHeader = "X-Request-Id"

// sendOpts holds the flags shared by send and status.
type sendOpts struct {
	method  string
	headers []string
	data    string
}

func (o *sendOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.method, "request", "X", "GET", "HTTP method")
	cmd.Flags().StringArrayVarP(&o.headers, "header", "H", nil, `request header "Name: value" (repeatable)`)
	cmd.Flags().StringVarP(&o.data, "data", "d", "", "request body, or @file to read it from a file")
}

// callOptions converts the flags into request options.
func (o *sendOpts) callOptions() ([]request.CallOption, error) {
	opts := []request.CallOption{request.WithHeader(requestIDHeader, uuid.NewString())}
	for _, h := range o.headers {
		name, value, err := parseHeader(h)
		if err != nil {
			return nil, err
		}
		opts = append(opts, request.WithHeader(name, value))
	}
	if o.data != "" {
		body, err := readData(o.data)
		if err != nil {
			return nil, err
		}
		opts = append(opts, request.WithBody(bytes.NewReader(body)))
	}
	return opts, nil
}

// parseHeader splits a curl-style "Name: value" header.
func parseHeader(s string) (name, value string, err error) {
	name, value, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", errors.New(errors.ErrCodeInvalidHeader, "header %q must have the form \"Name: value\"", s)
	}
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if err := errors.ValidateHeader(name, value); err != nil {
		return "", "", err
	}
	return name, value, nil
}

func readData(s string) ([]byte, error) {
	path, ok := strings.CutPrefix(s, "@")
	if !ok {
		return []byte(s), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body")
	}
	return data, nil
}

// sendCommand creates the send command.
func (c *CLI) sendCommand() *cobra.Command {
	var (
		opts        sendOpts
		asJSON      bool
		alwaysParse bool
		backend     string
		ttl         time.Duration
		sliding     time.Duration
		repeat      int
	)

	cmd := &cobra.Command{
		Use:   "send [flags] URI",
		Short: "Send a request and print its status and body",
		Long: `Send a request and print its status and body.

URI is resolved against --base (or base_url in the config file) when it is
relative. With --cache, successful responses are stored under the resolved
URI and later sends are answered from the cache.`,
		Example: `  lighthttp send https://api.example.com/v1/items/1
  lighthttp send --base https://api.example.com/v1/ --json items/1
  lighthttp send -X POST -H 'Content-Type: application/json' -d @item.json items
  lighthttp send --cache redis --ttl 10m items/1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("cache") {
				backend = c.cfg.Cache.Backend
			}
			if !slices.Contains(config.Backends, backend) {
				return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q (want one of %v)", backend, config.Backends)
			}
			exp := c.cfg.Cache.Expiration()
			if flags.Changed("ttl") {
				exp.TTL = ttl
			}
			if flags.Changed("sliding") {
				exp.Sliding = sliding
			}
			if repeat < 1 {
				repeat = 1
			}

			client, err := c.newClient()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			fetch, closeStore, err := c.fetcher(ctx, backend, client, opts.method, args[0], exp)
			if err != nil {
				return err
			}
			defer closeStore()

			var failed bool
			for i := 0; i < repeat; i++ {
				// Rebuilt per send: the body reader is consumed and every
				// request gets its own ID.
				callOpts, err := opts.callOptions()
				if err != nil {
					return err
				}
				if alwaysParse {
					callOpts = append(callOpts, request.ParseOnFailure())
				}

				prog := newProgress(loggerFromContext(ctx))
				res, err := fetch(callOpts)
				if err != nil {
					return err
				}
				prog.done(opts.method + " " + args[0])

				printStatus(c.Out, res.Status)
				if res.Status.Success || alwaysParse {
					printBody(c.Out, res.Value, asJSON)
				}
				failed = !res.Status.Success
			}
			if failed {
				return ErrRequestFailed
			}
			return nil
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "pretty-print the body as JSON")
	cmd.Flags().BoolVar(&alwaysParse, "always-parse", false, "print the body of failed responses too")
	cmd.Flags().StringVar(&backend, "cache", config.BackendNone, "cache backend: "+strings.Join(config.Backends, "|"))
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "cache entry lifetime (default from config)")
	cmd.Flags().DurationVar(&sliding, "sliding", 0, "expire cache entries not read for this long")
	cmd.Flags().IntVar(&repeat, "repeat", 1, "send the request this many times")

	return cmd
}

type fetchFunc func(opts []request.CallOption) (request.Result[string], error)

// fetcher picks the send path for backend: uncached, process memory, or a
// shared store. The close function is never nil.
func (c *CLI) fetcher(ctx context.Context, backend string, client *request.Client, method, uri string, exp cache.Expiration) (fetchFunc, func(), error) {
	switch backend {
	case config.BackendNone:
		return func(opts []request.CallOption) (request.Result[string], error) {
			return request.SendWith(ctx, client, request.ReadString, method, uri, opts...)
		}, func() {}, nil

	case config.BackendMemory:
		return func(opts []request.CallOption) (request.Result[string], error) {
			return cached.SendLocalWith(ctx, c.memory, client, request.ReadString, method, uri, exp, opts...)
		}, func() {}, nil
	}

	store, closeStore, err := c.openStore(ctx, backend)
	if err != nil {
		return nil, closeStore, err
	}
	return func(opts []request.CallOption) (request.Result[string], error) {
		return cached.SendDistributedWith(ctx, store, client, request.ReadString, method, uri, exp, opts...)
	}, closeStore, nil
}

// statusCommand creates the status command.
func (c *CLI) statusCommand() *cobra.Command {
	var opts sendOpts

	cmd := &cobra.Command{
		Use:   "status [flags] URI",
		Short: "Send a request and print only its status",
		Long: `Send a request and print only its status. The body is discarded.
The command exits with status 1 when the request did not succeed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			callOpts, err := opts.callOptions()
			if err != nil {
				return err
			}
			client, err := c.newClient()
			if err != nil {
				return err
			}

			status, err := request.Send(cmd.Context(), client, opts.method, args[0], callOpts...)
			if err != nil {
				return err
			}
			printStatus(c.Out, status)
			if !status.Success {
				return ErrRequestFailed
			}
			return nil
		},
	}

	opts.register(cmd)
	return cmd
}

// printBody writes the body, indented when asJSON and the body is JSON.
func printBody(w io.Writer, body string, asJSON bool) {
	if body == "" {
		return
	}
	if asJSON {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(body), "", "  "); err == nil {
			io.WriteString(w, buf.String()+"\n")
			return
		}
		printWarning(w, "body is not valid JSON")
	}
	io.WriteString(w, body)
	if !strings.HasSuffix(body, "\n") {
		io.WriteString(w, "\n")
	}
}
