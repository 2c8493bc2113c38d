package compiler

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// CheckReport lists every problem found across the checked documents, in
// source path order.
type CheckReport struct {
	Checked int
	Errors  []*DocumentError
}

// Check transforms and validates paths without emitting or writing. Every
// document is checked; all errors are collected.
func (c *Compiler) Check(ctx context.Context, paths []string) (*CheckReport, error) {
	ctx, span := c.tracer.Start(ctx, "promptc.check",
		trace.WithAttributes(attribute.Int("promptc.documents", len(paths))))
	defer span.End()

	paths = slices.Clone(paths)
	slices.Sort(paths)
	paths = slices.Compact(paths)

	found := make([][]*DocumentError, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, c.opts.Config.Concurrency))
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := c.transform(p)
			if err != nil {
				if !IsDocumentError(err) {
					return err
				}
				found[i] = []*DocumentError{{Source: p, Err: err}}
				return nil
			}
			for _, ve := range ValidateDocument(doc) {
				found[i] = append(found[i], &DocumentError{Source: p, Err: fmt.Errorf("%s: %w", p, ve)})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fail(span, err, "check")
		return nil, err
	}

	report := &CheckReport{Checked: len(paths)}
	for _, errs := range found {
		report.Errors = append(report.Errors, errs...)
	}
	span.SetAttributes(attribute.Int("promptc.errors", len(report.Errors)))
	c.opts.Logger.Debug("check finished", "documents", len(paths), "errors", len(report.Errors))
	return report, nil
}
