package cli

import (
	"context"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"taxisync/internal/etl"
)

// progressPrinter renders copier events as plain progress lines on stdout.
// It implements service.EventEmitter.
type progressPrinter struct {
	w           io.Writer
	p           *message.Printer
	source      string
	destination string
}

func newProgressPrinter(w io.Writer, source, destination string) *progressPrinter {
	return &progressPrinter{
		w:           w,
		p:           message.NewPrinter(language.English),
		source:      source,
		destination: destination,
	}
}

func (pp *progressPrinter) Emit(_ context.Context, _ string, data any) {
	ev, ok := data.(etl.Event)
	if !ok {
		return
	}

	switch ev.Type {
	case etl.EventSourceCounted:
		pp.p.Fprintf(pp.w, "Found %d records in %s\n", ev.SourceCount, pp.source)
		if ev.SourceCount == 0 {
			pp.p.Fprintf(pp.w, "No data in %s. Please load data first.\n", pp.source)
		}
	case etl.EventDestCounted:
		pp.p.Fprintf(pp.w, "%s already has %d records\n", pp.destination, ev.DestCount)
		pp.p.Fprintf(pp.w, "Continuing from record %d...\n", ev.DestCount)
	case etl.EventBatchStarted:
		pp.p.Fprintf(pp.w, "Processing batch %d (records %d to %d)...\n", ev.Batch, ev.From, ev.To)
	case etl.EventEmptyFetch:
		pp.p.Fprintf(pp.w, "No records returned at %d; stopping early\n", ev.From)
	case etl.EventDone:
		if ev.Result != nil && ev.Result.Status != etl.StatusEmptySource {
			pp.summary(ev.Result)
		}
	case etl.EventFailed:
		if ev.Result != nil {
			pp.p.Fprintf(pp.w, "Sync stopped; %d records committed this run, resume point %d\n",
				ev.Result.RowsCopied, ev.Result.Offset)
		}
	}
}

func (pp *progressPrinter) summary(r *etl.SyncResult) {
	mark := "✓"
	if !r.Match() {
		mark = "✗"
	}
	pp.p.Fprintf(pp.w, "\nSync completed!\n")
	pp.p.Fprintf(pp.w, "Source records: %d\n", r.SourceCount)
	pp.p.Fprintf(pp.w, "Destination records: %d\n", r.FinalDestCount)
	pp.p.Fprintf(pp.w, "Match: %s\n", mark)
}
