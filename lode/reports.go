// Package lode persists bulk run reports to a Lode dataset.
//
// Each run writes one JSONL record into a Hive-partitioned dataset keyed by
// command, day and run ID. Conversion failures are stored beside it as a
// plain-text sidecar under the run's files/ prefix.
package lode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/imagesources/types"
)

// Dataset is the Lode dataset holding run reports.
const Dataset = "imagesources"

// RecordKindRunReport discriminates report records.
const RecordKindRunReport = "run_report"

// FailuresFile is the sidecar holding a run's failure lines.
const FailuresFile = "errors.txt"

// ErrNoReportsFound is returned when no report matches a query.
var ErrNoReportsFound = errors.New("no run reports found")

// NewReportDataset opens the report dataset over factory.
func NewReportDataset(factory lode.StoreFactory) (lode.Dataset, error) {
	ds, err := lode.NewDataset(
		lode.DatasetID(Dataset),
		factory,
		lode.WithHiveLayout("command", "day", "run_id"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, wrap("init", Dataset, err)
	}
	return ds, nil
}

// ReportStore writes run reports and their failure sidecars.
type ReportStore struct {
	dataset lode.Dataset
	factory lode.StoreFactory

	storeOnce sync.Once
	store     lode.Store
	storeErr  error
}

// NewReportStore creates a ReportStore over factory.
// Use lode.NewMemoryFactory() for testing.
func NewReportStore(factory lode.StoreFactory) (*ReportStore, error) {
	ds, err := NewReportDataset(factory)
	if err != nil {
		return nil, err
	}
	return &ReportStore{dataset: ds, factory: factory}, nil
}

// NewReportStoreFS creates a ReportStore rooted at a filesystem directory.
func NewReportStoreFS(root string) (*ReportStore, error) {
	return NewReportStore(lode.NewFSFactory(root))
}

// NewReportStoreS3 creates a ReportStore on S3.
func NewReportStoreS3(ctx context.Context, cfg S3Config) (*ReportStore, error) {
	factory, err := NewS3Factory(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewReportStore(factory)
}

// Dataset returns the underlying dataset for reads.
func (s *ReportStore) Dataset() lode.Dataset {
	return s.dataset
}

// Write persists report and returns the partition path it landed under.
func (s *ReportStore) Write(ctx context.Context, report types.RunReport) (string, error) {
	if err := checkPartition(report); err != nil {
		return "", err
	}
	partition := PartitionPath(report)

	record, err := toRecord(report)
	if err != nil {
		return "", err
	}
	if _, err := s.dataset.Write(ctx, []any{record}, lode.Metadata{}); err != nil {
		return "", wrap("write", partition, err)
	}
	return partition, nil
}

// PutFailures writes failures, one per line, to the run's errors.txt
// sidecar. No file is written when failures is empty.
func (s *ReportStore) PutFailures(ctx context.Context, report types.RunReport, failures []string) error {
	if len(failures) == 0 {
		return nil
	}
	if err := checkPartition(report); err != nil {
		return err
	}

	store, err := s.getOrCreateStore()
	if err != nil {
		return wrap("init", Dataset, err)
	}

	path := PartitionPath(report) + "/files/" + FailuresFile
	data := strings.Join(failures, "\n") + "\n"
	return wrap("put", path, store.Put(ctx, path, bytes.NewReader([]byte(data))))
}

// getOrCreateStore lazily initializes the Store from the factory.
func (s *ReportStore) getOrCreateStore() (lode.Store, error) {
	s.storeOnce.Do(func() {
		s.store, s.storeErr = s.factory()
	})
	return s.store, s.storeErr
}

// PartitionPath computes the Hive-partitioned prefix of a report.
// Format: datasets/<dataset>/partitions/command=<c>/day=<d>/run_id=<r>
func PartitionPath(report types.RunReport) string {
	return fmt.Sprintf("datasets/%s/partitions/command=%s/day=%s/run_id=%s",
		Dataset, report.Command, report.Day, report.RunID)
}

func checkPartition(report types.RunReport) error {
	switch {
	case report.Command == "":
		return errors.New("report command must be non-empty")
	case report.Day == "":
		return errors.New("report day must be non-empty")
	case report.RunID == "":
		return errors.New("report run_id must be non-empty")
	}
	for _, v := range []string{report.Command, report.Day, report.RunID} {
		if strings.ContainsAny(v, "/=") || strings.Contains(v, "..") {
			return fmt.Errorf("invalid partition value %q", v)
		}
	}
	return nil
}

// toRecord flattens report into the JSONL record shape, with partition keys
// at the top level where HiveLayout reads them.
func toRecord(report types.RunReport) (map[string]any, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode run report: %w", err)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("encode run report: %w", err)
	}
	record["record_kind"] = RecordKindRunReport
	record["started_at"] = report.StartedAt.UTC().Format(time.RFC3339Nano)
	return record, nil
}

func fromRecord(record map[string]any) (types.RunReport, error) {
	var report types.RunReport
	data, err := json.Marshal(record)
	if err != nil {
		return report, err
	}
	err = json.Unmarshal(data, &report)
	return report, err
}

// LatestReports returns up to n reports, newest first. An empty command
// matches every command; n <= 0 returns all of them.
// Returns ErrNoReportsFound if nothing matches.
func LatestReports(ctx context.Context, ds lode.Dataset, command string, n int) ([]types.RunReport, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, wrap("read", Dataset+"/snapshots", err)
	}

	var reports []types.RunReport
	// Snapshots are ordered by creation time.
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotMatchesFilter(snap, "command", command) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, wrap("read", fmt.Sprintf("%s/snapshot/%s", Dataset, snap.ID), err)
		}

		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != RecordKindRunReport {
				continue
			}
			if command != "" && record["command"] != command {
				continue
			}
			report, err := fromRecord(record)
			if err != nil {
				return nil, fmt.Errorf("decode run report in snapshot %s: %w", snap.ID, err)
			}
			reports = append(reports, report)
			if n > 0 && len(reports) == n {
				return reports, nil
			}
		}
	}

	if len(reports) == 0 {
		return nil, ErrNoReportsFound
	}
	return reports, nil
}

// snapshotMatchesFilter checks if a snapshot's file paths match
// the given partition key=value filter.
func snapshotMatchesFilter(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue checks if a Hive-partitioned path contains an exact
// key=value segment, so run_id=run-1 does not match run_id=run-10.
func matchesPartitionValue(path, key, value string) bool {
	segment := key + "=" + value
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}
