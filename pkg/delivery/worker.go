package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/newsletter/pkg/constants"
)

const tracerName = "github.com/iota-uz/newsletter/pkg/delivery"

// Worker drains a Queue one task at a time. Every attempted task is retired, whether the send
// succeeded, failed, or the stored address was unusable; failed recipients are not retried.
type Worker struct {
	queue  Queue
	issues IssueSource
	sender Sender
	opts   WorkerOptions

	m      *metrics
	tracer trace.Tracer
}

func NewWorker(queue Queue, issues IssueSource, sender Sender, opts WorkerOptions) (*Worker, error) {
	if queue == nil {
		return nil, invalidConfig("queue is required")
	}
	if issues == nil {
		return nil, invalidConfig("issue source is required")
	}
	if sender == nil {
		return nil, invalidConfig("sender is required")
	}
	if opts.IdleInterval < 0 || opts.ErrorInterval < 0 || opts.SendTimeout < 0 {
		return nil, invalidConfig("intervals must not be negative")
	}
	opts.setDefaults()

	return &Worker{
		queue:  queue,
		issues: issues,
		sender: sender,
		opts:   opts,
		m:      getMetrics(),
		tracer: otel.Tracer(tracerName),
	}, nil
}

// Run loops until ctx is cancelled: straight on after a completed task, IdleInterval after an
// empty queue, ErrorInterval after a failed cycle. It returns ctx.Err().
func (w *Worker) Run(ctx context.Context) error {
	if ctx == nil {
		return invalidConfig("ctx is required")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		outcome, err := w.TryExecuteTask(ctx)

		var wait time.Duration
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.m.cycleTotal.WithLabelValues("error").Inc()
			w.opts.Logger.WithError(err).Warn("delivery: cycle failed")
			wait = w.opts.ErrorInterval
		case outcome == EmptyQueue:
			w.m.cycleTotal.WithLabelValues(outcome.String()).Inc()
			wait = w.opts.IdleInterval
		default:
			w.m.cycleTotal.WithLabelValues(outcome.String()).Inc()
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// TryExecuteTask claims one task, attempts delivery and retires it. Send failures and invalid
// addresses are logged, not returned. An error means the cycle itself failed and the task,
// if one was claimed, is still pending.
func (w *Worker) TryExecuteTask(ctx context.Context) (Outcome, error) {
	claim, err := w.queue.Dequeue(ctx)
	if err != nil {
		return 0, err
	}
	if claim == nil {
		return EmptyQueue, nil
	}

	// A claimed task is finished even if shutdown starts meanwhile; SendTimeout bounds it.
	ctx = context.WithoutCancel(ctx)

	task := claim.Task()
	ctx, span := w.tracer.Start(ctx, "delivery.try_execute_task", trace.WithAttributes(
		attribute.String("newsletter_issue_id", task.IssueID.String()),
	))
	defer span.End()

	logger := w.opts.Logger.WithFields(logrus.Fields{
		"newsletter_issue_id": task.IssueID.String(),
		"subscriber_email":    task.SubscriberEmail,
	})

	if err := constants.Validate.Var(task.SubscriberEmail, "required,email"); err != nil {
		w.m.attemptTotal.WithLabelValues(resultInvalidRecipient).Inc()
		span.SetAttributes(attribute.String("delivery.result", resultInvalidRecipient))
		logger.WithError(err).Error("delivery: skipping a confirmed subscriber, stored contact details are invalid")
	} else {
		content, err := w.issues.Content(ctx, task.IssueID)
		if err != nil {
			_ = claim.Release(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, "load issue")
			return 0, fmt.Errorf("load issue %s: %w", task.IssueID, err)
		}
		w.send(ctx, logger, span, task, content)
	}

	if err := claim.Retire(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retire")
		return 0, err
	}
	return TaskCompleted, nil
}

func (w *Worker) send(ctx context.Context, logger *logrus.Entry, span trace.Span, task Task, content Content) {
	sendCtx, cancel := context.WithTimeout(ctx, w.opts.SendTimeout)
	defer cancel()

	start := time.Now()
	err := w.sender.Send(sendCtx, task.SubscriberEmail, content.Title, content.HTMLContent, content.TextContent)
	latency := time.Since(start)

	result := resultSent
	if err != nil {
		result = resultSendFailed
		span.RecordError(err)
		logger.WithError(err).Error("delivery: failed to deliver issue to a confirmed subscriber, skipping")
	}
	span.SetAttributes(attribute.String("delivery.result", result))
	w.m.attemptTotal.WithLabelValues(result).Inc()
	w.m.sendLatency.WithLabelValues(result).Observe(latency.Seconds())
}
