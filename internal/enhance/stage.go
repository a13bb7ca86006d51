package enhance

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/ppiankov/wisdomgate/internal/model"
)

// stage runs fn inside its own span, converts panics to errors and appends
// a StageReport. Once ctx is done every stage but finalize is skipped.
func (o *Orchestrator) stage(ctx context.Context, res *model.EnhancementResult, name string, fn func(context.Context) error) bool {
	if err := ctx.Err(); err != nil && name != StageFinalize {
		res.Report.Stages = append(res.Report.Stages, model.StageReport{
			Name:    name,
			Skipped: true,
			Error:   err.Error(),
		})
		return false
	}

	sctx, span := o.tracer.Start(ctx, "enhance."+name)
	defer span.End()

	start := time.Now()
	err := protect(sctx, fn)
	report := model.StageReport{
		Name:       name,
		OK:         err == nil,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrStageFailure, name, err)
		report.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Warn("enhancement stage failed",
			zap.String("request_id", res.RequestID),
			zap.String("stage", name),
			zap.Error(err))
	}
	res.Report.Stages = append(res.Report.Stages, report)
	return err == nil
}

func protect(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
