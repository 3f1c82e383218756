// Package journal persists convergence reports so past runs can be audited.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/imamik/rsjoin/internal/cluster"
	"github.com/imamik/rsjoin/internal/convergence"
)

// Sink records finished runs.
type Sink interface {
	Record(ctx context.Context, report convergence.Report) error
}

// Discard is a Sink that drops every report.
var Discard Sink = discard{}

type discard struct{}

func (discard) Record(context.Context, convergence.Report) error { return nil }

// ObjectStore is the object storage the journal writes to.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, data []byte) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
}

// ObjectJournal stores one JSON object per run under
// <prefix>/<project>/<environment>/<role>/<finished>-<runID>.json.
type ObjectJournal struct {
	store  ObjectStore
	bucket string
	prefix string
}

// NewObjectJournal returns a journal writing to bucket under prefix.
func NewObjectJournal(store ObjectStore, bucket, prefix string) *ObjectJournal {
	return &ObjectJournal{store: store, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Record writes report. Reports without a run ID get a random one.
func (j *ObjectJournal) Record(ctx context.Context, report convergence.Report) error {
	if report.RunID == "" {
		report.RunID = uuid.NewString()
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	key := j.clusterPrefix(report.Identity) + report.FinishedAt.UTC().Format("20060102T150405Z") + "-" + report.RunID + ".json"
	if err := j.store.PutObject(ctx, j.bucket, key, data); err != nil {
		return cluster.Transport("journal put "+key, err)
	}
	return nil
}

// Recent returns up to limit reports for id, newest first.
func (j *ObjectJournal) Recent(ctx context.Context, id cluster.Identity, limit int) ([]convergence.Report, error) {
	keys, err := j.store.ListObjects(ctx, j.bucket, j.clusterPrefix(id))
	if err != nil {
		return nil, cluster.Transport("journal list", err)
	}
	// keys start with a sortable timestamp
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	reports := make([]convergence.Report, 0, len(keys))
	for _, key := range keys {
		data, err := j.store.GetObject(ctx, j.bucket, key)
		if err != nil {
			return nil, cluster.Transport("journal get "+key, err)
		}
		var r convergence.Report
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", key, err)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (j *ObjectJournal) clusterPrefix(id cluster.Identity) string {
	p := path.Join(id.Project, id.Environment, id.Role)
	if j.prefix != "" {
		p = path.Join(j.prefix, p)
	}
	return p + "/"
}
