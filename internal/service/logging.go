package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"takeoutmerge/internal/tracing"
)

// Standard field names for merge run logging
const (
	LogFieldRunID        = "run_id"
	LogFieldComponent    = "component"
	LogFieldOperation    = "operation"
	LogFieldConversation = "conversation"
	LogFieldEntry        = "entry"
	LogFieldEntries      = "entries"
	LogFieldCount        = "count"
	LogFieldReason       = "reason"
	LogFieldFilePath     = "file_path"
	LogFieldDuration     = "duration_ms"
	LogFieldTraceID      = "trace_id"
)

// Ignore reasons, used as log fields and metric labels
const (
	ReasonCallLog         = "call_log"
	ReasonOrphanCallLog   = "orphan_call_log"
	ReasonMedia           = "media"
	ReasonVoicemail       = "voicemail"
	ReasonOrphanVoicemail = "orphan_voicemail"
)

const (
	componentMergeService = "merge_service"

	operationPrepareOutput = "prepare_output"
	operationLoadContacts  = "load_contacts"
	operationMergeConv     = "merge_conversation"
	operationExportXML     = "export_xml"
	operationWriteIndex    = "write_index"
)

// LogWithContext returns a logger entry carrying the run and trace IDs of ctx
func LogWithContext(ctx context.Context, logger *logrus.Logger) *logrus.Entry {
	fields := logrus.Fields{LogFieldComponent: componentMergeService}
	if runID := tracing.RunID(ctx); runID != "" {
		fields[LogFieldRunID] = runID
	}
	if traceID := tracing.GetOtelTraceID(ctx); traceID != "" {
		fields[LogFieldTraceID] = traceID
	}
	return logger.WithFields(fields)
}
