package metadata

import (
	"errors"
	"sort"

	"github.com/rjboer/GoHose/internal/logging"
)

// Reporter publishes session records.
type Reporter interface {
	Report(r Record) error
}

// LogReporter writes each record as a structured log line.
type LogReporter struct {
	logger logging.Logger
}

// NewLogReporter builds a log reporter with the provided logger.
func NewLogReporter(logger logging.Logger) LogReporter {
	if logger == nil {
		logger = logging.Default()
	}
	return LogReporter{logger: logger}
}

func (r LogReporter) Report(rec Record) error {
	fields := []logging.Field{
		{Key: "subsystem", Value: "metadata"},
		{Key: "measurement", Value: rec.Measurement},
		{Key: "record_time", Value: rec.Time},
	}
	keys := make([]string, 0, len(rec.Fields))
	for k := range rec.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, logging.Field{Key: k, Value: rec.Fields[k]})
	}
	r.logger.Info("metadata record", fields...)
	return nil
}

// FileReporter appends every record to a JSON metadata file.
type FileReporter struct {
	Path string
}

func (r FileReporter) Report(rec Record) error {
	if r.Path == "" {
		return errors.New("metadata: file reporter has no path")
	}
	return AppendFile(r.Path, rec)
}

// MultiReporter fans out records to multiple destinations. Every reporter is
// tried; the errors are joined.
type MultiReporter []Reporter

func (m MultiReporter) Report(rec Record) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Report(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
