// Command recovery-demo walks a two-turn conversation with a pinned
// execution container through an expiry and shows the recovery engine
// healing it.
//
// Point it at a live endpoint, or at cmd/mock-api started with
// -expire-after 1 so the second turn hits an expired container:
//
//	mock-api -expire-after 1 &
//	recovery-demo -base-url http://localhost:9090/v1 -policy default
//
// A .env file in the working directory is loaded first; ANFRAGE_API_KEY
// or OPENAI_API_KEY must be set unless the config file carries a key.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/anfrage-dev/anfrage/pkg/api"
	"github.com/anfrage-dev/anfrage/pkg/classify"
	"github.com/anfrage-dev/anfrage/pkg/client"
	"github.com/anfrage-dev/anfrage/pkg/config"
	"github.com/anfrage-dev/anfrage/pkg/debug"
	"github.com/anfrage-dev/anfrage/pkg/recovery"
)

func main() {
	if err := run(); err != nil {
		slog.Error("demo failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "config file path (empty discovers anfrage.yaml)")
	baseURL := flag.String("base-url", "", "API base URL override, e.g. a local mock-api")
	model := flag.String("model", "", "model override")
	policyName := flag.String("policy", "default", "recovery policy: default, conservative, or aggressive")
	manualPrune := flag.Bool("manual-prune", false, "surface the expiry and prune by hand instead of letting the policy retry")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	policy, err := policyByName(*policyName)
	if err != nil {
		return err
	}
	if *manualPrune {
		policy.AutoRetryOnExpiredContainer = false
	}

	opts := []client.Option{
		client.WithRecovery(policy),
		client.WithRecoveryCallback(func(cerr *classify.Error, attempt int) {
			slog.Info("recovery retry", "class", cerr.Class, "attempt", attempt)
		}),
	}
	if *baseURL != "" {
		opts = append(opts, client.WithBaseURL(*baseURL))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := client.NewFromConfig(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer c.Store().Close()

	// NewFromConfig installed the plain text handler; swap in the colored
	// one at the same level for terminal use.
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      debug.ParseLevel(cfg.Debug.LogLevel),
		TimeFormat: time.Kitchen,
	})))

	modelName := api.Model(*model)
	if modelName == "" {
		modelName = api.Model(cfg.Client.DefaultModel)
	}
	if modelName == "" {
		modelName = api.ModelGPT4oMini
	}

	fmt.Println("=== container recovery walkthrough ===")
	fmt.Printf("policy: %s   manual prune: %v   model: %s\n\n", *policyName, *manualPrune, modelName)

	// Turn 1: let the API provision a container and run some code in it.
	fmt.Println("[1] first turn, auto-provisioned container")
	first := &api.Request{
		Model: modelName,
		Input: api.TextInput("Use Python to compute 7**7 and keep the result in a variable named x."),
		Tools: []api.Tool{api.CodeInterpreterTool(api.AutoContainer())},
	}
	resp, err := c.Responses.Create(ctx, first)
	if err != nil {
		return fmt.Errorf("first turn: %w", err)
	}
	fmt.Printf("    response %s: %s\n", resp.ID, resp.OutputText())

	containerID := containerIDOf(resp)
	if containerID == "" {
		fmt.Println("    no container id in the response output; cannot demonstrate pinning")
		return nil
	}
	fmt.Printf("    container %s\n\n", containerID)

	// Turn 2: pin the container from turn 1. Against mock-api with
	// -expire-after 1 this reference is already stale.
	fmt.Println("[2] follow-up turn, pinned to the same container")
	second := &api.Request{
		Model:              modelName,
		Input:              api.TextInput("Print x * 2."),
		PreviousResponseID: resp.ID,
		Tools:              []api.Tool{api.CodeInterpreterTool(api.ContainerID(containerID))},
	}

	if *manualPrune {
		return manualRecovery(ctx, c, second)
	}

	resp, outcome, err := c.Responses.CreateWithRecovery(ctx, second)
	if err != nil {
		var cerr *classify.Error
		if errors.As(err, &cerr) {
			fmt.Printf("    request failed under the %s policy: %s\n", *policyName, cerr.UserMessage())
			fmt.Println("    (conservative never retries; rerun with -policy default)")
			return nil
		}
		return err
	}

	fmt.Printf("    response %s: %s\n", resp.ID, resp.OutputText())
	if outcome.Attempted {
		fmt.Printf("\n[3] recovery outcome: %d retr%s, recovered from: %s\n",
			outcome.RetryCount, plural(outcome.RetryCount, "y", "ies"), outcome.OriginalError)
		if outcome.ResetMessage != "" {
			fmt.Printf("    user notice: %s\n", outcome.ResetMessage)
		}
	} else {
		fmt.Println("\n[3] no recovery was needed (container still live)")
	}
	return nil
}

// manualRecovery shows the hands-on path: catch the classified error,
// prune the stale pin, resend.
func manualRecovery(ctx context.Context, c *client.Client, req *api.Request) error {
	_, err := c.Responses.Create(ctx, req)
	if err == nil {
		fmt.Println("    container still live, nothing to recover")
		return nil
	}

	var cerr *classify.Error
	if !errors.As(err, &cerr) || !cerr.ContainerRelated() {
		return err
	}
	fmt.Printf("    expiry surfaced: %s\n", cerr.UserMessage())

	fmt.Println("\n[3] pruning the pinned container and resending")
	resp, err := c.Responses.Create(ctx, c.Responses.PruneExpiredContext(req))
	if err != nil {
		return fmt.Errorf("resend after prune: %w", err)
	}
	fmt.Printf("    response %s: %s\n", resp.ID, resp.OutputText())
	return nil
}

func policyByName(name string) (recovery.Policy, error) {
	switch name {
	case "default":
		return recovery.DefaultPolicy(), nil
	case "conservative":
		return recovery.ConservativePolicy(), nil
	case "aggressive":
		return recovery.AggressivePolicy(), nil
	default:
		return recovery.Policy{}, fmt.Errorf("unknown policy %q (want default, conservative, or aggressive)", name)
	}
}

// containerIDOf pulls the execution container id out of the response's
// code interpreter call items.
func containerIDOf(resp *api.Response) string {
	for _, item := range resp.Output {
		if item.Type == api.ItemTypeCodeInterpreterCall && item.ContainerID != "" {
			return item.ContainerID
		}
	}
	return ""
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
