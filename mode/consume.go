package mode

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/spec-operators/model"
	"github.com/khaledhikmat/spec-operators/pipeline"
	"github.com/khaledhikmat/spec-operators/service/lgr"
)

// Consume runs invocations delivered on the configured AMQP queue and
// publishes each operator output to the result queue. Invocations are not
// retried: failed operators publish their error output and malformed
// deliveries are rejected to the broker's dead-letter handling.
func Consume(canxCtx context.Context, svcs pipeline.ServicesFactory, _ []string) error {
	params := svcs.CfgSvc.GetQueueParameters()

	conn, err := amqp.Dial(params.URL)
	if err != nil {
		return xerrors.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return xerrors.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	for _, q := range []string{params.Queue, params.ResultQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return xerrors.Errorf("declare queue %s: %w", q, err)
		}
	}

	if err := ch.Qos(params.Prefetch, 0, false); err != nil {
		return xerrors.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(canxCtx, params.Queue, "", false, false, false, false, nil)
	if err != nil {
		return xerrors.Errorf("consume %s: %w", params.Queue, err)
	}

	lgr.Logger.Info(
		"consumer started",
		slog.String("queue", params.Queue),
		slog.Int("workers", params.Workers),
	)

	publish := func(ctx context.Context, body []byte) error {
		return ch.PublishWithContext(ctx, "", params.ResultQueue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < params.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			consumeWorker(canxCtx, svcs, id, deliveries, publish)
		}(i)
	}

	<-canxCtx.Done()
	lgr.Logger.Info("consumer context cancelled, waiting for workers")
	wg.Wait()
	return nil
}

type publishFunc func(ctx context.Context, body []byte) error

func consumeWorker(canxCtx context.Context, svcs pipeline.ServicesFactory, id int, deliveries <-chan amqp.Delivery, publish publishFunc) {
	for {
		select {
		case <-canxCtx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				lgr.Logger.Info("delivery channel closed", slog.Int("worker", id))
				return
			}

			// Let an invocation in flight finish after cancellation
			body, err := handleDelivery(context.WithoutCancel(canxCtx), svcs, d.Body)
			if err != nil {
				lgr.Logger.Warn(
					"rejecting delivery",
					slog.Int("worker", id),
					slog.Uint64("deliveryTag", d.DeliveryTag),
					slog.Any("error", err),
				)
				_ = d.Nack(false, false)
				continue
			}

			// Requeueing would run the operator again
			if err := publish(context.WithoutCancel(canxCtx), body); err != nil {
				lgr.Logger.Error(
					"error publishing output, dropping delivery",
					slog.Int("worker", id),
					slog.Uint64("deliveryTag", d.DeliveryTag),
					slog.Any("error", lgr.WithStack(err)),
				)
				_ = d.Nack(false, false)
				continue
			}

			_ = d.Ack(false)
		}
	}
}

// handleDelivery runs the invocation in body and returns the output to
// publish. Operator failures still yield their error output; only payloads
// that name no runnable operator are returned as errors.
func handleDelivery(ctx context.Context, svcs pipeline.ServicesFactory, body []byte) ([]byte, error) {
	var inv model.Invocation
	if err := json.Unmarshal(body, &inv); err != nil {
		return nil, xerrors.Errorf("decode invocation: %w", err)
	}

	name := inv.Name
	if name == "" {
		name = pipeline.CosmicRaySpecName
	}

	out, err := pipeline.Invoke(ctx, svcs, name, inv)
	if err != nil {
		var execErr *model.ExecutionError
		if !errors.As(err, &execErr) {
			return nil, err
		}

		procError(svcs.DataSvc, model.GenError("consume",
			err,
			errorMisc(name, inv, out),
			"operator %s failed",
			name))
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, xerrors.Errorf("encode output: %w", err)
	}

	return data, nil
}
