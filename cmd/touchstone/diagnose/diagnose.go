package diagnose

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alanlang/touchstone/cmd/touchstone/harness"
	"github.com/alanlang/touchstone/internal/stage"
)

var (
	flagStage string
	flagIn    string
	flagList  bool
)

// Cmd implements `touchstone diagnose`: run one registered pipeline stage
// over a JSON envelope, for debugging a run one boundary at a time.
var Cmd = &cobra.Command{
	Use:           "diagnose",
	Short:         "Run a single pipeline stage over a JSON envelope",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagList {
			names := stage.Names()
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		}
		if flagStage == "" {
			return errors.New("missing required flag: --stage")
		}

		env, err := harness.Load(cmd)
		if err != nil {
			return err
		}
		in, err := readEnvelope(env)
		if err != nil {
			return err
		}

		deps := env.Deps(cmd.OutOrStdout(), cmd.ErrOrStderr())
		out, err := stage.Run(context.Background(), flagStage, in, deps)
		if err != nil {
			return err
		}
		if out.Meta == nil {
			out.Meta = &stage.Meta{}
		}
		out.Meta.ContractVersion = "1"
		stage.SortEnvelopeErrors(&out)
		return printOneLine(cmd, out)
	},
}

// readEnvelope loads the input envelope, or derives a fresh one from the
// config so the first stage of a pipeline can be diagnosed without a file.
func readEnvelope(env harness.Env) (stage.Envelope, error) {
	if flagIn == "" {
		return stage.Envelope{
			Records: []stage.Record{},
			Meta:    stage.NewMeta(env.Config, nil, uuid.NewString()),
		}, nil
	}
	b, err := os.ReadFile(flagIn)
	if err != nil {
		return stage.Envelope{}, err
	}
	var in stage.Envelope
	if err := json.Unmarshal(b, &in); err != nil {
		return stage.Envelope{}, fmt.Errorf("invalid envelope %s: %v", flagIn, err)
	}
	return in, nil
}

func printOneLine(cmd *cobra.Command, env stage.Envelope) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return err
	}
	_, err := cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

func init() {
	Cmd.Flags().StringVar(&flagStage, "stage", "", "Registered stage name to run")
	Cmd.Flags().StringVar(&flagIn, "in", "", "Input envelope JSON file (default: fresh envelope from config)")
	Cmd.Flags().BoolVar(&flagList, "list", false, "List registered stage names")
}
