package cli

import (
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"wkfmanager/internal/client"
)

// EndpointEnvVar is the environment variable name for setting the default endpoint.
const EndpointEnvVar = "WKFMANAGER_ENDPOINT"

// DefaultEndpoint is used when neither --endpoint nor the environment sets one.
const DefaultEndpoint = "http://localhost:8080"

// GetDefaultEndpoint returns the endpoint from the environment, or DefaultEndpoint.
func GetDefaultEndpoint() string {
	if endpoint := os.Getenv(EndpointEnvVar); endpoint != "" {
		return endpoint
	}
	return DefaultEndpoint
}

// CommandFlags holds the flag values shared by the commands that talk to a
// running engine.
type CommandFlags struct {
	// OutputFormat specifies the desired output format (table, json, yaml)
	OutputFormat string
	// NoHeaders suppresses the header row in table output
	NoHeaders bool
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
	// Endpoint is the engine base URL
	Endpoint string
	// Timeout bounds one request
	Timeout time.Duration
}

// RegisterCommonFlags registers the common flags on cmd.
//
// The registered flags are:
//   - --output/-o: Output format (table, json, yaml), default: "table"
//   - --no-headers: Suppress header row in table output
//   - --quiet/-q: Suppress non-essential output
//   - --endpoint: Engine endpoint URL (env: WKFMANAGER_ENDPOINT)
//   - --timeout: Request timeout
func RegisterCommonFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", string(OutputFormatTable), "Output format (table, json, yaml)")
	cmd.Flags().BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress header row in table output")
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	RegisterConnectionFlags(cmd, flags)
}

// RegisterConnectionFlags registers only the endpoint and timeout flags.
func RegisterConnectionFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.Flags().StringVar(&flags.Endpoint, "endpoint", GetDefaultEndpoint(), "Engine endpoint URL (env: "+EndpointEnvVar+")")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", client.DefaultTimeout, "Request timeout")
}

// NewClient validates the output format and creates an engine client.
func (f *CommandFlags) NewClient(encodeTwice bool) (*client.Client, error) {
	if f.OutputFormat != "" {
		if err := ValidateOutputFormat(f.OutputFormat); err != nil {
			return nil, err
		}
	}
	return client.New(f.Endpoint, client.Options{Timeout: f.Timeout, EncodeTwice: encodeTwice})
}

// Printer returns a printer for the selected output format.
func (f *CommandFlags) Printer(cmd *cobra.Command) *Printer {
	return &Printer{
		Format:    OutputFormat(f.OutputFormat),
		NoHeaders: f.NoHeaders,
		Out:       cmd.OutOrStdout(),
	}
}

// DefaultOrigin returns the address notifications should come back to: the
// first non-loopback IPv4 address of this host, or 127.0.0.1.
func DefaultOrigin() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "127.0.0.1"
}
