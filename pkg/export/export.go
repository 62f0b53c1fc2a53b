// Package export writes run results to CSV or JSON files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilianp07/dispatchsim/core/records"
	"github.com/kilianp07/dispatchsim/core/sim"
)

// recordHeader matches the columns of the per-task result files.
var recordHeader = []string{"id", "x", "y", "arrival", "completion", "initial_wait", "wait", "actor", "sector", "service_time", "run_id"}

// summaryHeader matches the columns of the per-rate sweep files.
var summaryHeader = []string{"run_id", "policy", "rate", "sim_time", "serviced", "avg_wait", "max_wait", "total_travel", "max_travel", "max_queue", "max_queue_age", "replans", "rejections", "reason"}

// WriteJSON writes the records to w in JSON format.
func WriteJSON(w io.Writer, recs []records.Record) error {
	enc := json.NewEncoder(w)
	return enc.Encode(recs)
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// WriteCSV writes one row per serviced task.
func WriteCSV(w io.Writer, recs []records.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(recordHeader); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			strconv.Itoa(r.ID),
			ftoa(r.X),
			ftoa(r.Y),
			ftoa(r.Arrival),
			ftoa(r.Completion),
			ftoa(r.InitialWait),
			ftoa(r.Wait),
			strconv.Itoa(r.Actor),
			strconv.Itoa(r.Sector),
			ftoa(r.ServiceTime),
			r.RunID,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes one row per run.
func WriteSummaryCSV(w io.Writer, stats []sim.Stats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return err
	}
	for _, s := range stats {
		row := []string{
			s.RunID,
			s.Policy,
			ftoa(s.Rate),
			ftoa(s.SimTime),
			strconv.Itoa(s.Serviced),
			ftoa(s.AvgWait()),
			ftoa(s.MaxWait),
			ftoa(s.TotalTravel),
			ftoa(s.MaxTravel),
			strconv.Itoa(s.MaxQueue),
			ftoa(s.MaxQueueAge),
			strconv.Itoa(s.Replans),
			strconv.Itoa(s.Rejections),
			string(s.Reason),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Records writes recs in the format implied by the file name extension.
func Records(w io.Writer, name string, recs []records.Record) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return WriteCSV(w, recs)
	case ".json":
		return WriteJSON(w, recs)
	default:
		return fmt.Errorf("unsupported export format: %s", name)
	}
}
