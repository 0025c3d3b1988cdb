package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openhrm/escalation-engine/pkg/esctl/client"
)

type Config struct {
	Server       string
	OutputWriter io.Writer
}

type runtimeState struct {
	server             string
	outputFormat       string
	timeout            string
	caFile             string
	insecureSkipVerify bool
	writer             io.Writer
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{server: cfg.Server, writer: cfg.OutputWriter}

	root := &cobra.Command{
		Use:   "esctl",
		Short: "Escalation engine CLI",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.server == "" {
				rt.server = os.Getenv("ESCTL_SERVER")
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("ESCTL_OUTPUT")
			}
			if !rt.insecureSkipVerify {
				rt.insecureSkipVerify = strings.EqualFold(os.Getenv("ESCTL_INSECURE"), "true")
			}
			if cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}
			if rt.server == "" {
				return errors.New("server is required (use --server or ESCTL_SERVER)")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&rt.server, "server", "s", "", "Engine API base URL")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: text, json, yaml")
	root.PersistentFlags().StringVar(&rt.timeout, "timeout", "", "Request timeout, e.g. 30s")
	root.PersistentFlags().StringVar(&rt.caFile, "ca-file", "", "CA certificate file for TLS")
	root.PersistentFlags().BoolVar(&rt.insecureSkipVerify, "insecure", false, "Skip TLS certificate verification")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewRunCommand(),
		NewRemindCommand(),
		NewMetricsCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) OutputFormat() string {
	if rt.outputFormat != "" {
		return rt.outputFormat
	}
	return "text"
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func buildClient(rt *runtimeState) (*client.Client, error) {
	options := []client.Option{
		client.WithServer(rt.server),
		client.WithUserAgent("esctl"),
	}
	if rt.timeout != "" {
		timeout, err := time.ParseDuration(rt.timeout)
		if err != nil {
			return nil, err
		}
		options = append(options, client.WithTimeout(timeout))
	}
	if rt.caFile != "" || rt.insecureSkipVerify {
		options = append(options, client.WithTLSConfig(rt.caFile, rt.insecureSkipVerify))
	}
	return client.New(options...)
}
