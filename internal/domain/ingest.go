package domain

// Ingest job status constants.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobDone       = "done"
	JobFailed     = "failed"
)

// IngestJob is a queued raw trade-feed payload awaiting normalization.
// Corresponds to ingest_jobs table in PostgreSQL. Workers claim pending
// jobs with competing-consumer semantics; failed jobs stay failed.
type IngestJob struct {
	ID          int64  // BIGSERIAL primary key
	Source      string // feed identifier, e.g. "webhook", "ws"
	Payload     []byte // raw JSON payload
	Status      string // pending | processing | done | failed
	Error       string // failure detail, if status = failed
	CreatedAt   int64  // enqueue timestamp (ms)
	ProcessedAt *int64 // completion timestamp (ms)
}

// VolumeRollup is an hourly per-token volume bucket mirrored to the
// analytics store for reporting.
type VolumeRollup struct {
	TokenID    string
	HourStart  int64 // bucket start timestamp (ms), aligned to the hour
	Volume     float64
	BuyVolume  float64
	SellVolume float64
	TradeCount int
}
