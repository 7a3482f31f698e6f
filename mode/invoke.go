package mode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/khaledhikmat/spec-operators/model"
	"github.com/khaledhikmat/spec-operators/pipeline"
	"golang.org/x/xerrors"
)

// Invoke runs a single invocation read from args[0] ("-" for stdin). The
// operator is args[1], else the payload Name, else CosmicRaySpec.
func Invoke(canxCtx context.Context, svcs pipeline.ServicesFactory, args []string) error {
	return invoke(canxCtx, svcs, args, os.Stdin, os.Stdout, os.Stderr)
}

func invoke(canxCtx context.Context, svcs pipeline.ServicesFactory, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return xerrors.New("usage: invoke <payload.json|-> [operator]")
	}

	inv, err := readInvocation(args[0], stdin)
	if err != nil {
		return err
	}

	name := pipeline.CosmicRaySpecName
	if inv.Name != "" {
		name = inv.Name
	}
	if len(args) > 1 {
		name = args[1]
	}

	out, err := pipeline.Invoke(canxCtx, svcs, name, inv)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(out); encErr != nil {
		return xerrors.Errorf("write output: %w", encErr)
	}

	if err != nil {
		procError(svcs.DataSvc, model.GenError("invoke",
			err,
			errorMisc(name, inv, out),
			"operator %s failed",
			name))
		color.New(color.FgRed, color.Bold).Fprintf(stderr, "%s %s: %s\n", name, model.StatusError, out.Diagnostic())
		return err
	}

	color.New(color.FgGreen, color.Bold).Fprintf(stderr, "%s %s", name, out.Status)
	if n, ok := out.MetaData["NumSpecs"]; ok {
		fmt.Fprintf(stderr, " (%v specs)", n)
	}
	fmt.Fprintln(stderr)
	return nil
}

func readInvocation(source string, stdin io.Reader) (model.Invocation, error) {
	var r io.Reader = stdin
	if source != "-" {
		f, err := os.Open(source)
		if err != nil {
			return model.Invocation{}, xerrors.Errorf("open payload: %w", err)
		}
		defer f.Close()
		r = f
	}

	var inv model.Invocation
	if err := json.NewDecoder(r).Decode(&inv); err != nil {
		return model.Invocation{}, xerrors.Errorf("decode payload: %w", err)
	}

	return inv, nil
}
