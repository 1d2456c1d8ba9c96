// Package report archives diff reports and the snapshots they were computed
// from into blob storage, laid out as runs/<run>/{report.json,before.cbor,after.cbor}.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"editfixture/internal/blob"
	"editfixture/internal/diff"
	"editfixture/internal/infra/persistence/memory"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

const (
	runsPrefix     = "runs/"
	reportObject   = "report.json"
	beforeObject   = "before.cbor"
	afterObject    = "after.cbor"
	defaultLinkTTL = 15 * time.Minute
)

// Which selects one of the archived snapshots.
type Which string

const (
	Before Which = "before"
	After  Which = "after"
)

// ErrRunNotFound is returned for a run id with nothing archived.
var ErrRunNotFound = errors.New("run not found")

var (
	snapshotEnc cbor.EncMode
	snapshotDec cbor.DecMode
)

func init() {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano, Sort: cbor.SortCanonical}.EncMode()
	if err != nil {
		panic(fmt.Errorf("report: cbor enc mode: %w", err))
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Errorf("report: cbor dec mode: %w", err))
	}
	snapshotEnc, snapshotDec = em, dm
}

// Manifest describes what an archived run wrote.
type Manifest struct {
	RunID     string             `json:"run_id"`
	ReportKey string             `json:"report_key"`
	BeforeKey string             `json:"before_key"`
	AfterKey  string             `json:"after_key"`
	Summary   []diff.KindSummary `json:"summary"`
}

// Archive stores run artifacts in a blob store.
type Archive struct {
	blobs blob.Store
	newID func() string
}

// NewArchive wraps a blob store.
func NewArchive(blobs blob.Store) *Archive {
	return &Archive{blobs: blobs, newID: uuid.NewString}
}

func key(runID, object string) string { return runsPrefix + runID + "/" + object }

// Save writes the report and both snapshots. A blank runID is replaced with a
// generated one. Runs are write-once: saving over an existing run fails with
// blob.ErrExists.
func (a *Archive) Save(ctx context.Context, runID string, rep diff.Report, before, after memory.Snapshot) (Manifest, error) {
	if runID == "" {
		runID = a.newID()
	}
	if strings.Contains(runID, "/") {
		return Manifest{}, fmt.Errorf("run id %q: %w", runID, blob.ErrInvalidKey)
	}
	m := Manifest{
		RunID:     runID,
		ReportKey: key(runID, reportObject),
		BeforeKey: key(runID, beforeObject),
		AfterKey:  key(runID, afterObject),
		Summary:   rep.Summary(),
	}
	reportJSON, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("encode report: %w", err)
	}
	beforeCBOR, err := snapshotEnc.Marshal(before)
	if err != nil {
		return Manifest{}, fmt.Errorf("encode before snapshot: %w", err)
	}
	afterCBOR, err := snapshotEnc.Marshal(after)
	if err != nil {
		return Manifest{}, fmt.Errorf("encode after snapshot: %w", err)
	}
	md := map[string]string{"run": runID}
	writes := []struct {
		key, contentType string
		data             []byte
	}{
		{m.BeforeKey, "application/cbor", beforeCBOR},
		{m.AfterKey, "application/cbor", afterCBOR},
		{m.ReportKey, "application/json", reportJSON},
	}
	for _, w := range writes {
		if _, err := a.blobs.Put(ctx, w.key, bytes.NewReader(w.data), blob.PutOptions{ContentType: w.contentType, Metadata: md}); err != nil {
			return Manifest{}, fmt.Errorf("write %s: %w", w.key, err)
		}
	}
	return m, nil
}

// LoadReport reads an archived report.
func (a *Archive) LoadReport(ctx context.Context, runID string) (diff.Report, error) {
	data, err := a.read(ctx, runID, reportObject)
	if err != nil {
		return diff.Report{}, err
	}
	var rep diff.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return diff.Report{}, fmt.Errorf("decode report %s: %w", runID, err)
	}
	return rep, nil
}

// LoadSnapshot reads one of the archived snapshots.
func (a *Archive) LoadSnapshot(ctx context.Context, runID string, which Which) (memory.Snapshot, error) {
	var object string
	switch which {
	case Before:
		object = beforeObject
	case After:
		object = afterObject
	default:
		return memory.Snapshot{}, fmt.Errorf("unknown snapshot %q", which)
	}
	data, err := a.read(ctx, runID, object)
	if err != nil {
		return memory.Snapshot{}, err
	}
	var snap memory.Snapshot
	if err := snapshotDec.Unmarshal(data, &snap); err != nil {
		return memory.Snapshot{}, fmt.Errorf("decode %s snapshot %s: %w", which, runID, err)
	}
	return snap, nil
}

// Runs lists archived run ids in key order.
func (a *Archive) Runs(ctx context.Context) ([]string, error) {
	infos, err := a.blobs.List(ctx, runsPrefix)
	if err != nil {
		return nil, err
	}
	var runs []string
	for _, info := range infos {
		rest := strings.TrimPrefix(info.Key, runsPrefix)
		runID, object, ok := strings.Cut(rest, "/")
		if ok && object == reportObject {
			runs = append(runs, runID)
		}
	}
	return runs, nil
}

// Link returns a time-limited URL to the run's report. Backends that cannot
// sign URLs return blob.ErrUnsupported.
func (a *Archive) Link(ctx context.Context, runID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = defaultLinkTTL
	}
	if _, err := a.blobs.Head(ctx, key(runID, reportObject)); err != nil {
		return "", a.notFound(runID, err)
	}
	return a.blobs.PresignURL(ctx, key(runID, reportObject), blob.SignedURLOptions{Method: "GET", Expiry: ttl})
}

func (a *Archive) read(ctx context.Context, runID, object string) ([]byte, error) {
	_, rc, err := a.blobs.Get(ctx, key(runID, object))
	if err != nil {
		return nil, a.notFound(runID, err)
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

func (a *Archive) notFound(runID string, err error) error {
	if errors.Is(err, blob.ErrNotFound) {
		return fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	return err
}
