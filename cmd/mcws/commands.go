package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/robfig/cron/v3"

	"github.com/strefethen/mcws-go/internal/logger"
	"github.com/strefethen/mcws-go/pkg/mcws"
	"github.com/strefethen/mcws-go/pkg/mcws/response"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"alive":     cmdAlive,
	"resolve":   cmdResolve,
	"fields":    cmdFields,
	"zones":     cmdZones,
	"info":      cmdInfo,
	"search":    cmdSearch,
	"libraries": cmdLibraries,
	"watch":     cmdWatch,
	"cache":     cmdCache,
}

var errUnreachable = errors.New("server unreachable")

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

func (a *app) printAttributes(attrs response.Attributes, only []string) error {
	w := a.table()
	if len(only) == 0 {
		for _, e := range attrs {
			fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Value)
		}
		return w.Flush()
	}
	for _, name := range only {
		if value, ok := attrs.Get(name); ok {
			fmt.Fprintf(w, "%s\t%s\n", name, value)
		}
	}
	return w.Flush()
}

func cmdAlive(ctx context.Context, a *app, _ []string) error {
	attrs, err := a.server.Alive(ctx)
	if err != nil {
		return err
	}
	return a.printAttributes(attrs, nil)
}

func cmdResolve(ctx context.Context, a *app, _ []string) error {
	ok, err := a.server.Resolve(ctx)
	if err != nil {
		return err
	}
	state := a.server.Resolver().State()
	fmt.Fprintf(a.out, "strategy: %s\n", state.Strategy)
	if !ok {
		return errUnreachable
	}
	fmt.Fprintf(a.out, "address:  %s\n", state.Address())
	fmt.Fprintf(a.out, "base url: %s\n", a.server.Resolver().BaseURL())
	return nil
}

func cmdFields(ctx context.Context, a *app, _ []string) error {
	s, err := a.server.Library.Fields(ctx)
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "NAME\tTYPE\tEDITABLE")
	for _, name := range s.Names() {
		d := s.Descriptor(name)
		fmt.Fprintf(w, "%s\t%s\t%t\n", d.Name, d.Type, d.Editable)
	}
	return w.Flush()
}

func cmdZones(ctx context.Context, a *app, _ []string) error {
	zones, err := a.server.Playback.Zones(ctx, a.hidden)
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "INDEX\tID\tNAME\tDLNA")
	for _, z := range zones {
		index := -1
		if z.Index != nil {
			index = *z.Index
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\n", index, z.ID, z.Name, z.DLNA)
	}
	return w.Flush()
}

func cmdInfo(ctx context.Context, a *app, _ []string) error {
	attrs, err := a.server.Playback.Info(ctx, a.zone)
	if err != nil {
		return err
	}
	return a.printAttributes(attrs, a.cfg.WatchFields)
}

func cmdSearch(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errors.New("search needs a query")
	}
	files, err := a.server.Files.Search(ctx, strings.Join(args, " "), mcws.SearchOptions{})
	if err != nil {
		return err
	}
	for i, rec := range files {
		if i > 0 {
			fmt.Fprintln(a.out)
		}
		w := a.table()
		for _, f := range rec.Fields() {
			fmt.Fprintf(w, "%s\t%s\n", f.Name, f.Value)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	a.log.Debug().Int("count", len(files)).Msg("search complete")
	return nil
}

func cmdLibraries(ctx context.Context, a *app, _ []string) error {
	list, err := a.server.Library.List(ctx)
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "ID\tNAME\tLOADED\tDEFAULT")
	for _, lib := range list.Libraries {
		fmt.Fprintf(w, "%d\t%s\t%t\t%t\n", lib.ID, lib.Name, lib.Loaded, lib.ID == list.DefaultID)
	}
	return w.Flush()
}

// cmdWatch prints playback info on the configured schedule until ctx ends.
func cmdWatch(ctx context.Context, a *app, _ []string) error {
	cronLog := logger.WithComponent(a.log, "watch")
	c := cron.New(
		cron.WithLogger(cron.PrintfLogger(&cronLog)),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(&cronLog))),
	)

	tick := func() {
		attrs, err := a.server.Playback.Info(ctx, a.zone)
		if err != nil {
			cronLog.Warn().Err(err).Str("zone", a.zone.String()).Msg("playback info failed")
			return
		}
		fmt.Fprintln(a.out, "---")
		if err := a.printAttributes(attrs, a.cfg.WatchFields); err != nil {
			cronLog.Warn().Err(err).Msg("write failed")
		}
	}

	if _, err := c.AddFunc(a.cfg.WatchSchedule, tick); err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", a.cfg.WatchSchedule, err)
	}

	tick()
	c.Start()
	cronLog.Info().Str("schedule", a.cfg.WatchSchedule).Msg("watching playback")
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// cmdCache lists persisted resolution state, or forgets one key.
func cmdCache(ctx context.Context, a *app, args []string) error {
	if a.store == nil {
		return errors.New("no cache configured (set MCWS_CACHE_PATH)")
	}

	if len(args) > 0 {
		if args[0] != "forget" || len(args) != 2 {
			return errors.New("usage: cache [forget KEY]")
		}
		return a.store.Delete(ctx, args[1])
	}

	entries, err := a.store.List(ctx)
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "KEY\tSTRATEGY\tADDRESS\tUPDATED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Key, e.State.Strategy, e.State.Address(), e.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
