package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/ggame-miniapp/internal/config"
	"github.com/iliyamo/ggame-miniapp/internal/identity"
)

var (
	resolveQuery    string
	resolveHostUser string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the identity and credential a launch query resolves to",
	Long: `Runs the identity resolver against a launch query without starting a
session or touching any credential store. Useful to check what a given
launch URL or init-data payload maps to.`,
	Example: `  ggame-gateway resolve --query 'user_id=42'
  ggame-gateway resolve --host-user 777`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveQuery, "query", "q", "", "raw launch query string")
	resolveCmd.Flags().StringVar(&resolveHostUser, "host-user", "", "simulate a host runtime reporting this user id")
}

type resolveOutput struct {
	Identity   identity.UserIdentity `json:"identity"`
	Credential string                `json:"credential"`
	HostCalls  []identity.HostCall   `json:"host_calls,omitempty"`
	Order      []identity.Source     `json:"order"`
}

func runResolve(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()

	var host identity.HostRuntime
	var snap *identity.HostSnapshot
	if resolveHostUser != "" {
		snap = &identity.HostSnapshot{InitData: identity.InitData{
			User: &identity.InitUser{ID: identity.FlexibleID(resolveHostUser)},
		}}
		host = snap
	}
	env, err := identity.EnvironmentFromQuery(resolveQuery, host)
	if err != nil {
		return err
	}

	r := newResolver(cfg, zap.NewNop())
	res := r.Resolve(env)
	out := resolveOutput{
		Identity:   res.Identity,
		Credential: res.Credential.Value,
		Order:      r.Order(),
	}
	if snap != nil {
		out.HostCalls = snap.Calls()
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
