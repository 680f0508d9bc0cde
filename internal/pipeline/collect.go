package pipeline

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/upi-extractor/constants"
	"github.com/joseph-ayodele/upi-extractor/internal/session"
)

// ReportWarning is an image-level note that did not produce a record.
type ReportWarning struct {
	ImageRef string
	Code     constants.WarningCode
	Message  string
}

type Report struct {
	Processed  int
	Skipped    int
	Failed     int
	Cancelled  int
	Duplicates int
	RecordIDs  []uuid.UUID
	Warnings   []ReportWarning
}

func (r Report) Total() int {
	return r.Processed + r.Skipped + r.Failed + r.Cancelled
}

// Collect drains outcomes into store, in the order they arrive, then flags
// duplicates across the whole session. It is the only writer of store while it runs.
func Collect(outcomes <-chan Outcome, store *session.Store) Report {
	var rep Report
	for o := range outcomes {
		switch o.Status {
		case constants.OutcomeProcessed:
			rep.Processed++
			rep.RecordIDs = append(rep.RecordIDs, store.Add(o.Record))
		case constants.OutcomeSkipped:
			rep.Skipped++
			rep.Warnings = append(rep.Warnings, ReportWarning{ImageRef: o.ImageRef, Code: constants.WarnNoText, Message: errString(o.Err)})
		case constants.OutcomeFailed:
			rep.Failed++
			rep.Warnings = append(rep.Warnings, ReportWarning{ImageRef: o.ImageRef, Code: constants.WarnOCRFailed, Message: errString(o.Err)})
		case constants.OutcomeCancelled:
			rep.Cancelled++
			rep.Warnings = append(rep.Warnings, ReportWarning{ImageRef: o.ImageRef, Code: constants.WarnCancelled, Message: errString(o.Err)})
		}
	}
	rep.Duplicates = store.FlagDuplicates()
	return rep
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
