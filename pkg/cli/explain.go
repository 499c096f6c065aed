package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/intercept/pkg/cli/internal/parse"
	"github.com/getmockd/intercept/pkg/config"
	"github.com/getmockd/intercept/pkg/engine"
	"github.com/getmockd/intercept/pkg/mock"
	"github.com/getmockd/intercept/pkg/mockerr"
	"github.com/getmockd/intercept/pkg/requestlog"
	"github.com/getmockd/intercept/pkg/util"
)

// ErrNoMatch is returned by explain when no expectation answers the request.
var ErrNoMatch = errors.New("no expectation matched")

// ExplainResult describes how a request would be answered.
type ExplainResult struct {
	Matched        bool                      `json:"matched"`
	ExpectationID  string                    `json:"expectationId,omitempty"`
	Expectation    string                    `json:"expectation,omitempty"`
	DeclaredOrigin string                    `json:"declaredOrigin,omitempty"`
	Status         int                       `json:"status,omitempty"`
	Headers        []string                  `json:"headers,omitempty"`
	Body           string                    `json:"body,omitempty"`
	Error          string                    `json:"error,omitempty"`
	NearMisses     []requestlog.NearMissInfo `json:"nearMisses,omitempty"`
}

type explainFlags struct {
	headers    []string
	data       string
	nearMisses int
	timeout    time.Duration
}

func newExplainCmd(g *globalFlags) *cobra.Command {
	f := &explainFlags{}
	cmd := &cobra.Command{
		Use:   "explain <file|glob> METHOD URL",
		Short: "Show which expectation answers a request",
		Long: `Load definitions, send one request through the engine and print the reply.
When nothing matches, the closest expectations are listed with the reason each
one rejected the request. Delays declared on the expectation are honored.`,
		Example: `  interceptctl explain mocks/users.yaml GET https://api.example.com/users/1
  interceptctl explain mocks/users.yaml POST https://api.example.com/users \
      -H "Content-Type: application/json" -d '{"name":"ann"}'
  interceptctl explain mocks/users.yaml POST https://api.example.com/upload -d @payload.json`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := runExplain(cmd.Context(), cmd.ErrOrStderr(), g, f, args[0], args[1], args[2])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if err := printResult(w, g, res, func() { printExplain(w, res) }); err != nil {
				return err
			}
			if !res.Matched {
				return ErrNoMatch
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "Request header as name:value (repeatable)")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "Request body, or @file to read it from a file")
	cmd.Flags().IntVar(&f.nearMisses, "near-misses", 3, "Number of near misses to show when nothing matches")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Second, "Give up on the reply after this long")
	return cmd
}

func runExplain(ctx context.Context, logOut io.Writer, g *globalFlags, f *explainFlags, path, method, rawURL string) (*ExplainResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	defs, err := loadDefinitions(path)
	if err != nil {
		return nil, err
	}
	cfg := g.engineConfig(defs)
	requests := requestlog.NewMemoryStore(16)
	opts := append(cfg.EngineOptions(logOut), engine.WithNearMisses(f.nearMisses), engine.WithRequestLog(requests))
	e := engine.New(opts...)
	if _, err := config.Define(e, defs); err != nil {
		return nil, err
	}

	headers, err := parse.Headers(f.headers)
	if err != nil {
		return nil, err
	}
	body, err := readData(f.data)
	if err != nil {
		return nil, err
	}
	req, err := mock.NewRequest(strings.ToUpper(method), rawURL, headers, body)
	if err != nil {
		return nil, err
	}

	m, err := e.FindAndConsume(ctx, req)
	if errors.Is(err, mockerr.ErrNoMatch) {
		res := &ExplainResult{Error: err.Error()}
		if entries := requests.List(&requestlog.Filter{Event: requestlog.EventNoMatch, Limit: 1}); len(entries) > 0 {
			res.NearMisses = entries[0].NearMisses
		}
		return res, nil
	}
	if err != nil {
		return nil, err
	}

	res := &ExplainResult{
		Matched:        true,
		ExpectationID:  m.Expectation.ID,
		Expectation:    m.Expectation.String(),
		DeclaredOrigin: m.DeclaredOrigin,
	}
	resp, err := e.Playback(ctx, m)
	if err != nil {
		res.Error = err.Error()
		return res, nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Error = err.Error()
	}
	res.Status = resp.Status
	res.Headers = resp.RawHeaders
	res.Body = util.TruncateBody(string(data), util.MaxLogBodySize)
	return res, nil
}

func readData(data string) (string, error) {
	name, ok := strings.CutPrefix(data, "@")
	if !ok {
		return data, nil
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("reading request body: %w", err)
	}
	return string(b), nil
}

func printExplain(w io.Writer, res *ExplainResult) {
	if !res.Matched {
		fmt.Fprintln(w, res.Error)
		if len(res.NearMisses) == 0 {
			return
		}
		fmt.Fprintln(w, "\nClosest expectations:")
		for _, nm := range res.NearMisses {
			fmt.Fprintf(w, "  %3d%%  %s\n        %s\n", nm.MatchPercentage, nm.Expectation, nm.Reason)
		}
		return
	}

	fmt.Fprintf(w, "Matched %s\n", res.Expectation)
	if res.DeclaredOrigin != "" {
		fmt.Fprintf(w, "  via origin filter of %s\n", res.DeclaredOrigin)
	}
	if res.Error != "" {
		fmt.Fprintf(w, "Reply error: %s\n", res.Error)
		return
	}
	fmt.Fprintf(w, "\n%d\n", res.Status)
	for i := 0; i+1 < len(res.Headers); i += 2 {
		fmt.Fprintf(w, "%s: %s\n", res.Headers[i], res.Headers[i+1])
	}
	if res.Body != "" {
		fmt.Fprintf(w, "\n%s\n", res.Body)
	}
}
