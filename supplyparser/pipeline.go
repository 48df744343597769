package supplyparser

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/giygas/iyakuhin-supply/config"
	"github.com/giygas/iyakuhin-supply/interfaces"
	"github.com/giygas/iyakuhin-supply/logging"
	"github.com/giygas/iyakuhin-supply/validation"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Compile-time check to ensure Pipeline implements the Pipeline interface
var _ interfaces.Pipeline = (*Pipeline)(nil)

// Pipeline runs page fetch, link resolution, workbook download, parsing and
// the output write, strictly in that order. Nothing is written unless every
// step succeeds.
type Pipeline struct {
	profile    config.SourceProfile
	outputPath string
	fetcher    *Fetcher
	matcher    LinkMatcher
	validator  interfaces.DataValidator
	progress   *message.Printer
	out        io.Writer
	now        func() time.Time
}

// NewPipeline creates a pipeline writing to outputPath. Progress lines go to stdout.
func NewPipeline(profile config.SourceProfile, outputPath string) *Pipeline {
	return &Pipeline{
		profile:    profile,
		outputPath: outputPath,
		fetcher:    NewFetcher(nil, profile.UserAgent),
		matcher:    WorkbookLinkMatcher(profile.Extension, profile.Keyword),
		validator:  validation.NewDataValidator(),
		progress:   message.NewPrinter(language.Japanese),
		out:        os.Stdout,
		now:        time.Now,
	}
}

// WithLinkMatcher replaces the workbook anchor predicate.
func (p *Pipeline) WithLinkMatcher(match LinkMatcher) *Pipeline {
	p.matcher = match
	return p
}

// WithProgressWriter redirects progress lines.
func (p *Pipeline) WithProgressWriter(w io.Writer) *Pipeline {
	p.out = w
	return p
}

// WithClock sets the clock used for the fetch date.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Run performs one complete pass and returns what it wrote.
func (p *Pipeline) Run(ctx context.Context) (*interfaces.RunResult, error) {
	start := time.Now()

	p.printf("Fetching page: %s\n", p.profile.PageURL)
	body, err := p.fetcher.Fetch(ctx, p.profile.PageURL, p.profile.PageTimeout)
	if err != nil {
		return nil, err
	}

	page, err := decodePage(body)
	if err != nil {
		return nil, &ResolutionError{PageURL: p.profile.PageURL, Keyword: p.profile.Keyword, Err: err}
	}

	link, err := ResolveWorkbookLink(page, p.profile.PageURL, p.profile.BaseURL, p.matcher, p.profile.Keyword)
	if err != nil {
		return nil, err
	}
	p.printf("Workbook URL found: %s\n", link.URL)

	p.printf("Downloading workbook...\n")
	content, err := p.fetcher.Fetch(ctx, link.URL, p.profile.WorkbookTimeout)
	if err != nil {
		return nil, err
	}
	p.printf("Download complete: %d bytes\n", len(content))

	rows, err := ParseWorkbook(content, p.profile.Columns, p.profile.Markers)
	if err != nil {
		return nil, err
	}
	p.printf("Data rows: %d\n", len(rows))

	envelope := AssembleEnvelope(p.now(), link.Filename, rows)
	if err := p.validator.ValidateEnvelope(envelope, p.profile.Columns); err != nil {
		return nil, &ParseError{Stage: "validate", Err: err}
	}

	report := p.validator.ReportDataQuality(rows, p.profile.Columns, p.profile.Markers)
	if len(rows) == 0 {
		logging.Warn("No data rows found, the status markers never appeared", "source", link.Filename)
	}
	if report.UnrecognizedStatus > 0 {
		logging.Warn("Rows with an unrecognized status", "count", report.UnrecognizedStatus)
	}

	encoded, err := EncodeEnvelope(envelope)
	if err != nil {
		return nil, err
	}
	if err := WriteFileAtomic(p.outputPath, encoded); err != nil {
		return nil, err
	}
	p.printf("Saved: %s (%d KB, %d rows)\n", p.outputPath, len(encoded)/1024, len(rows))

	logging.Info("Supply data updated",
		"source", link.Filename,
		"rows", len(rows),
		"bytes", len(encoded),
		"duration", time.Since(start).String(),
	)

	return &interfaces.RunResult{
		Envelope:      envelope,
		Encoded:       encoded,
		Report:        report,
		WorkbookURL:   link.URL,
		WorkbookBytes: len(content),
	}, nil
}

func (p *Pipeline) printf(format string, args ...any) {
	if p.out == nil {
		return
	}
	_, _ = p.progress.Fprintf(p.out, format, args...)
}
