package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/khaledhikmat/spec-operators/model"
	"github.com/khaledhikmat/spec-operators/service/lgr"
	"github.com/khaledhikmat/spec-operators/service/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/xerrors"
)

// Operator processes
var operatorProcs = map[string]Operator{}

func init() {
	RegisterOperator(CosmicRaySpecName, CosmicRaySpec)
	RegisterOperator(GenericDataLookupName, GenericDataLookup)
}

func RegisterOperator(name string, operator Operator) {
	if _, ok := operatorProcs[name]; ok {
		lgr.Logger.Warn("operator already registered", slog.String("name", name))
		return
	}
	operatorProcs[name] = operator
}

// Operators lists the registered operator names in order.
func Operators() []string {
	names := make([]string, 0, len(operatorProcs))
	for name := range operatorProcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs one operator invocation inside a span and records its outcome.
func Invoke(ctx context.Context, svcs ServicesFactory, name string, inv model.Invocation) (model.OperatorOutput, error) {
	operator, ok := operatorProcs[name]
	if !ok {
		return model.OperatorOutput{}, xerrors.Errorf("operator %s not found", name)
	}

	// The routed name wins over the payload's so results land under the operator that ran
	inv.Name = name

	ctx, span := otel.Tracer("pipeline").Start(ctx, name)
	defer span.End()

	span.SetAttributes(
		attribute.String("asset.id", inv.AssetID),
		attribute.String("workflow.execution_id", inv.WorkflowExecutionID),
	)

	lgr.Logger.Info(
		"operator starting....",
		slog.String("operator", name),
		slog.String("assetId", inv.AssetID),
		slog.String("workflowExecutionId", inv.WorkflowExecutionID),
	)

	start := time.Now()
	out, err := operator(ctx, svcs, inv)
	metrics.StageDuration.WithLabelValues(name, "total").Observe(time.Since(start).Seconds())

	status := out.Status
	if err != nil {
		status = model.StatusError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.InvocationsTotal.WithLabelValues(name, status).Inc()

	lgr.Logger.Info(
		"operator finished",
		slog.String("operator", name),
		slog.String("status", status),
		slog.Duration("elapsed", time.Since(start)),
	)

	return out, err
}
