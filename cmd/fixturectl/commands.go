package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"editfixture/internal/blob"
	"editfixture/internal/diff"
	"editfixture/internal/fixture"
	"editfixture/internal/infra/persistence/memory"
	"editfixture/internal/observability"
	"editfixture/internal/report"
	"editfixture/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored fixture bundles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := a.openSource(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = src.Close() }()
			names, err := src.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

type blockView struct {
	ID           string `json:"id"`
	Order        int    `json:"order"`
	Start        int64  `json:"start"`
	End          int64  `json:"end"`
	OpenEnded    bool   `json:"open_ended,omitempty"`
	MediaAssetID string `json:"media_asset_id,omitempty"`
}

type timelineView struct {
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	Label    string      `json:"label,omitempty"`
	Duration int64       `json:"duration"`
	Blocks   []blockView `json:"blocks"`
}

type chapterView struct {
	ID        string         `json:"id"`
	Title     string         `json:"title,omitempty"`
	Timelines []timelineView `json:"timelines"`
}

type projectView struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	MediaAssets int           `json:"media_assets"`
	Chapters    []chapterView `json:"chapters"`
}

func describe(store *memory.Store) []projectView {
	projects := make([]projectView, 0)
	for _, p := range store.ListProjects() {
		pv := projectView{ID: p.ID, Name: p.Name, MediaAssets: len(store.MediaAssetsOf(p.ID)), Chapters: []chapterView{}}
		for _, c := range store.ChaptersOf(p.ID) {
			cv := chapterView{ID: c.ID, Title: c.Title, Timelines: []timelineView{}}
			for _, t := range store.TimelinesOf(c.ID) {
				tv := timelineView{ID: t.ID, Type: t.Type, Label: t.Label, Duration: store.TimelineDuration(t.ID), Blocks: []blockView{}}
				for _, b := range store.BlocksOf(t.ID) {
					bv := blockView{
						ID:        b.ID,
						Order:     b.OrderIndex,
						Start:     b.TimelineOffsetInFrames,
						End:       b.TimelineEnd(),
						OpenEnded: b.FileRelativeEndFrame == nil,
					}
					if b.MediaAssetID != nil {
						bv.MediaAssetID = *b.MediaAssetID
					}
					tv.Blocks = append(tv.Blocks, bv)
				}
				cv.Timelines = append(cv.Timelines, tv)
			}
			pv.Chapters = append(pv.Chapters, cv)
		}
		projects = append(projects, pv)
	}
	return projects
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <fixture>",
		Short: "Load a fixture and print its hierarchy with timeline durations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.openSource(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = src.Close() }()
			store := memory.NewStore(memory.WithLogger(a.log))
			if _, err := fixture.Ingest(cmd.Context(), src, args[0], store); err != nil {
				return err
			}
			return writeJSON(cmd, describe(store))
		},
	}
}

func readBundleFile(path string) (domain.Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Bundle{}, err
	}
	var bundle domain.Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return domain.Bundle{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if bundle.Name == "" {
		bundle.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return bundle, nil
}

func newImportCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <bundle.json>...",
		Short: "Validate bundle documents and save them into the fixture source",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && len(args) > 1 {
				return errors.New("--name requires a single bundle file")
			}
			src, err := a.openSource(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = src.Close() }()
			for _, path := range args {
				bundle, err := readBundleFile(path)
				if err != nil {
					return err
				}
				if name != "" {
					bundle.Name = name
				}
				// A scratch ingest rejects documents the store would refuse at scenario time.
				if err := memory.NewStore().LoadBundle(bundle); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if err := src.Save(cmd.Context(), bundle); err != nil {
					return err
				}
				a.log.Info().Str("fixture", bundle.Name).Int("blocks", len(bundle.Blocks)).Msg("imported")
				fmt.Fprintln(cmd.OutOrStdout(), bundle.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Store the bundle under this name")
	return cmd
}

var diffEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// snapshotOf ingests a bundle into a fresh store with a fixed clock and id
// sequence, so two documents only differ where their records do. rec may be nil.
func snapshotOf(bundle domain.Bundle, rec *observability.PrometheusRecorder) (memory.Snapshot, error) {
	seq := 0
	opts := []memory.Option{
		memory.WithClock(func() time.Time { return diffEpoch }),
		memory.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("generated-%d", seq)
		}),
	}
	if rec != nil {
		opts = append(opts, memory.WithMetrics(rec))
	}
	store := memory.NewStore(opts...)
	if err := store.LoadBundle(bundle); err != nil {
		return memory.Snapshot{}, err
	}
	return store.Snapshot(), nil
}

func parseKinds(raw []string) []domain.EntityType {
	var kinds []domain.EntityType
	for _, k := range raw {
		for _, part := range strings.Split(k, ",") {
			if part = strings.TrimSpace(part); part != "" {
				kinds = append(kinds, domain.EntityType(part))
			}
		}
	}
	return kinds
}

func newDiffCmd(a *app) *cobra.Command {
	var (
		kinds       []string
		summary     bool
		fromSource  bool
		archive     bool
		runID       string
		metricsFile string
	)
	cmd := &cobra.Command{
		Use:   "diff <before> <after>",
		Short: "Diff two bundle documents (or stored fixtures with --from-source)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bundles, err := a.loadPair(ctx, args, fromSource)
			if err != nil {
				return err
			}
			var (
				reg *prometheus.Registry
				rec *observability.PrometheusRecorder
			)
			if metricsFile != "" {
				reg = prometheus.NewRegistry()
				if rec, err = observability.NewPrometheusRecorder(reg); err != nil {
					return err
				}
			}
			before, err := snapshotOf(bundles[0], rec)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			after, err := snapshotOf(bundles[1], rec)
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}
			rep, err := diff.Compute(before, after, diff.Options{Kinds: parseKinds(kinds)})
			if err != nil {
				return err
			}
			if reg != nil {
				if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}
			if archive {
				blobs, err := blob.Open(ctx, a.cfg.Blob)
				if err != nil {
					return err
				}
				m, err := report.NewArchive(blobs).Save(ctx, runID, rep, before, after)
				if err != nil {
					return err
				}
				a.log.Info().Str("run", m.RunID).Str("report", m.ReportKey).Msg("archived")
			}
			if summary {
				_, err := fmt.Fprint(cmd.OutOrStdout(), rep.String())
				return err
			}
			return writeJSON(cmd, rep)
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kinds", nil, "Entity kinds to compare (default block,timeline,media_asset)")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print per-kind counts instead of the full report")
	cmd.Flags().BoolVar(&fromSource, "from-source", false, "Treat arguments as fixture names in the configured source")
	cmd.Flags().BoolVar(&archive, "archive", false, "Archive the report and snapshots to the configured blob store")
	cmd.Flags().StringVar(&runID, "run", "", "Run id for --archive (generated when empty)")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write store metrics in Prometheus text format to this file")
	return cmd
}

func (a *app) loadPair(ctx context.Context, args []string, fromSource bool) ([2]domain.Bundle, error) {
	var out [2]domain.Bundle
	if !fromSource {
		for i, path := range args {
			b, err := readBundleFile(path)
			if err != nil {
				return out, err
			}
			out[i] = b
		}
		return out, nil
	}
	src, err := a.openSource(ctx)
	if err != nil {
		return out, err
	}
	defer func() { _ = src.Close() }()
	for i, name := range args {
		b, err := src.Load(ctx, name)
		if err != nil {
			return out, err
		}
		out[i] = b
	}
	return out, nil
}

func newRunsCmd(a *app) *cobra.Command {
	var links bool
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List archived diff runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			blobs, err := blob.Open(ctx, a.cfg.Blob)
			if err != nil {
				return err
			}
			archive := report.NewArchive(blobs)
			runs, err := archive.Runs(ctx)
			if err != nil {
				return err
			}
			for _, run := range runs {
				if !links {
					fmt.Fprintln(cmd.OutOrStdout(), run)
					continue
				}
				url, err := archive.Link(ctx, run, 0)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", run, url)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&links, "links", false, "Print a signed link to each run's report")
	return cmd
}
