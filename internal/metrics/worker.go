package metrics

import "time"

// JobCompleted records a successful job completion
func JobCompleted(jobType string, duration time.Duration) {
	JobsTotal.WithLabelValues(jobType, "completed").Inc()
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// JobFailed records a job failure
func JobFailed(jobType string) {
	JobsTotal.WithLabelValues(jobType, "failed").Inc()
}

// JobRetried records a job retry attempt
func JobRetried(jobType string) {
	JobRetriesTotal.WithLabelValues(jobType).Inc()
}

// CoverAnalyzed records the outcome of one grayscale analysis job
func CoverAnalyzed(result string) {
	CoversAnalyzed.WithLabelValues(result).Inc()
}
