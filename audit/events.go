package audit

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionWriteReceived     = "write.received"
	ActionJobOpened         = "job.opened"
	ActionWriteAppended     = "write.appended"
	ActionAppendFallback    = "write.fallback"
	ActionDirectoryDegraded = "directory.degraded"
	ActionWriteCompleted    = "write.completed"
	ActionWriteFailed       = "write.failed"
	ActionWriteDLQ          = "write.dlq"
)

// Audit event categories group related actions.
const (
	CategoryWrite     = "coalesce.write"
	CategoryJob       = "coalesce.job"
	CategoryDirectory = "coalesce.directory"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceWrite     = "write"
	ResourceJob       = "bulk_job"
	ResourceDirectory = "job_record"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionWriteReceived,
		ActionJobOpened,
		ActionWriteAppended,
		ActionAppendFallback,
		ActionDirectoryDegraded,
		ActionWriteCompleted,
		ActionWriteFailed,
		ActionWriteDLQ,
	}
}
