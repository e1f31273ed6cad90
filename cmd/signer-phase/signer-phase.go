package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path"
	"strings"
	"unicode"

	"github.com/Tbaut/manta-signer/internal/observability"
	"github.com/Tbaut/manta-signer/pkg/config"
	"github.com/Tbaut/manta-signer/pkg/setup"
)

const usageFmt = `
Command Usage: %s [Flags]
  Report the bootstrap phase of the signer account file.

Flags:
------
`

type Cmd struct {
	Config  config.Config
	Verbose bool
}

type Report struct {
	Phase    setup.Phase `json:"phase"`
	DataPath string      `json:"data_path"`
}

func parseFlags(progname string, args []string) *Cmd {
	cmd := Cmd{}

	flags := flag.NewFlagSet(progname, flag.ExitOnError)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, usageFmt, path.Base(progname))
		flags.PrintDefaults()
	}

	var cfgPath string
	const cfgDoc = `
	path of a JSON configuration file.
	Defaults are used for the fields it omits.
	`
	flags.StringVar(&cfgPath, "c", "", dedent(cfgDoc))

	var dataPath string
	const dataDoc = `
	path of the account file, overrides the configuration.
	Defaults to %s.
	`
	flags.StringVar(&dataPath, "data", "", dedent(fmt.Sprintf(dataDoc, config.Default().DataPath)))

	flags.BoolVar(&cmd.Verbose, "v", false, `log DEBUG records to stderr`)

	flags.Parse(args)

	// set cmd.Config
	var err error
	cmd.Config = config.Default()
	if "" != cfgPath {
		cmd.Config, err = config.LoadFile(cfgPath)
		if nil != err {
			log.Fatalf("Failed loading configuration, got error %v", err)
		}
	}
	if "" != dataPath {
		cmd.Config.DataPath = dataPath
		err = cmd.Config.Check()
		if nil != err {
			log.Fatalf("Invalid -data %s, got error %v", dataPath, err)
		}
	}

	return &cmd
}

func main() {
	cmd := parseFlags(os.Args[0], os.Args[1:])

	ctx := observability.Quiet(context.Background())
	if cmd.Verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		ctx = observability.SetObservability(context.Background(), &observability.Observability{Logger: logger})
	}
	ctx = observability.With(ctx, "data_path", cmd.Config.DataPath)

	// Inspect has no side effects, the mnemonic is only generated by the signer itself.
	phase, err := setup.Inspect(cmd.Config.DataPath)
	if nil != err {
		log.Fatalf("Failed inspecting %s, got error %v", cmd.Config.DataPath, err)
	}
	observability.GetObservability(ctx).Log().Debug("account file inspected", "phase", phase)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	err = enc.Encode(Report{Phase: phase, DataPath: cmd.Config.DataPath})
	if nil != err {
		log.Fatalf("Failed serializing Report, got error %v", err)
	}
}

func dedent(multilines string) string {
	var sb strings.Builder
	for line := range strings.Lines(strings.TrimRightFunc(multilines, unicode.IsSpace)) {
		sb.WriteString(strings.TrimLeftFunc(line, unicode.IsSpace))
	}
	return sb.String()
}
