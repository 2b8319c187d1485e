package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jasonsandlin/xbox-live-api-go/app"
	"github.com/jasonsandlin/xbox-live-api-go/auth"
	"github.com/jasonsandlin/xbox-live-api-go/config"
	"github.com/jasonsandlin/xbox-live-api-go/http"
	"github.com/jasonsandlin/xbox-live-api-go/logger"
)

// EnvToken supplies the token when --token is not given.
const EnvToken = "XBL_TOKEN"

// Configuration keys consulted when the matching flag is not given.
const (
	ConfigKeyAPI             = "call.api"
	ConfigKeyContractVersion = "call.contractversion"
	ConfigKeyCallerContext   = "call.callercontext"
)

// CallOptions holds options for the call command
type CallOptions struct {
	ConfigPath      string
	Method          string
	APIName         string
	Body            string
	ContractVersion string
	CallerContext   string
	Headers         []string
	XboxUserID      string
	UserHash        string
	Token           string
	NoRetry         bool
	Verbose         bool

	// appOptions overrides app construction in tests.
	appOptions *app.Options
}

// NewCallCommand creates the call command
func NewCallCommand() *cobra.Command {
	return newCallCommand(&CallOptions{})
}

func newCallCommand(opts *CallOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call URL",
		Short: "Send one logical call",
		Long: `Sends one logical call and prints the final response.

When a token is given (--token or XBL_TOKEN) the call is authenticated and a
401 triggers one re-authentication. Without a token the call is anonymous.`,
		Example: `  # Anonymous GET
  xblcall call https://title.mgt.xboxlive.com/titles/default/endpoints

  # Authenticated call with a contract version
  xblcall call --contract-version 2 --userhash 1122 --token eyJ... \
    "https://achievements.xboxlive.com/users/xuid(2533274790395904)/achievements"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd.Context(), cmd.OutOrStdout(), opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.ConfigPath, "config", "c", config.DefaultFile, "Configuration file")
	f.StringVarP(&opts.Method, "method", "X", "GET", "HTTP method")
	f.StringVar(&opts.APIName, "api", "", "API name used for throttle tracking (default: call.api, then URL host)")
	f.StringVarP(&opts.Body, "data", "d", "", "Request body; @file reads it from a file")
	f.StringVar(&opts.ContractVersion, "contract-version", "", "x-xbl-contract-version header (default: call.contractversion)")
	f.StringVar(&opts.CallerContext, "caller-context", "", "Text appended to the User-Agent (default: call.callercontext)")
	f.StringArrayVarP(&opts.Headers, "header", "H", nil, "Extra header as 'Name: value' (repeatable)")
	f.StringVar(&opts.XboxUserID, "xuid", "", "Xbox user id of the caller")
	f.StringVar(&opts.UserHash, "userhash", "", "User hash for the XBL3.0 authorization header")
	f.StringVar(&opts.Token, "token", "", "Token to send; falls back to "+EnvToken)
	f.BoolVar(&opts.NoRetry, "no-retry", false, "Disable retries other than the one-time re-authentication")
	f.BoolVar(&opts.Verbose, "verbose", false, "Print response headers")

	return cmd
}

func runCall(ctx context.Context, out io.Writer, opts *CallOptions, url string) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadFile(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyConfigDefaults(opts, cfg)

	req, err := buildRequest(opts, url)
	if err != nil {
		return err
	}

	appOpts := opts.appOptions
	if appOpts == nil {
		appOpts = &app.Options{Logger: logger.New(cfg.Log.Level, true)}
	}
	a, err := app.NewWithConfig(cfg, appOpts)
	if err != nil {
		return err
	}
	defer func() {
		if shutErr := a.Shutdown(context.Background()); shutErr != nil {
			err = errors.Join(err, shutErr)
		}
	}()

	var id auth.Identity
	if token := tokenFor(opts); token != "" {
		id = auth.NewStaticIdentity(opts.XboxUserID, opts.UserHash, token)
	}

	ctx = logger.WithAttemptCounter(ctx)
	resp, callErr := a.Executor().Execute(ctx, req, id)
	if resp != nil {
		printResponse(out, resp, opts.Verbose)
	}
	fmt.Fprintf(out, "attempts: %d\n", logger.GetAttemptCounter(ctx))
	if callErr != nil {
		return fmt.Errorf("call failed: %w", callErr)
	}
	return nil
}

// applyConfigDefaults fills options left empty on the command line from the
// call section of the configuration file.
func applyConfigDefaults(opts *CallOptions, cfg *config.Config) {
	if opts.APIName == "" {
		opts.APIName = cfg.GetString(ConfigKeyAPI)
	}
	if opts.ContractVersion == "" {
		opts.ContractVersion = cfg.GetString(ConfigKeyContractVersion)
	}
	if opts.CallerContext == "" {
		opts.CallerContext = cfg.GetString(ConfigKeyCallerContext)
	}
}

func buildRequest(opts *CallOptions, url string) (*http.Request, error) {
	req := http.NewRequest(strings.ToUpper(opts.Method), url, "")
	req.APIName = opts.APIName
	req.ContractVersion = opts.ContractVersion
	req.CallerContext = opts.CallerContext
	req.RetryAllowed = !opts.NoRetry

	for _, h := range opts.Headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q: expected 'Name: value'", h)
		}
		req.SetCustomHeader(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	if opts.Body != "" {
		body, err := readBody(opts.Body)
		if err != nil {
			return nil, err
		}
		req.Body = body
	}
	return req, nil
}

func readBody(arg string) ([]byte, error) {
	path, ok := strings.CutPrefix(arg, "@")
	if !ok {
		return []byte(arg), nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read body file: %w", err)
	}
	return body, nil
}

func tokenFor(opts *CallOptions) string {
	if opts.Token != "" {
		return opts.Token
	}
	return os.Getenv(EnvToken)
}

func printResponse(w io.Writer, resp *http.Response, verbose bool) {
	if resp.IsNetworkFailure {
		fmt.Fprintf(w, "network failure (attempt %d)\n", resp.Attempt)
		return
	}
	fmt.Fprintf(w, "HTTP %d (attempt %d, %s)\n", resp.StatusCode, resp.Attempt, resp.Elapsed())

	if verbose {
		names := make([]string, 0, len(resp.Headers))
		for name := range resp.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "%s: %s\n", name, strings.Join(resp.Headers[name], ", "))
		}
	}

	if resp.BodyString != "" {
		fmt.Fprintln(w, resp.BodyString)
	}
}
