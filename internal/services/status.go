package services

import (
	"polybin/internal/detection"
)

// Status is the service section of the dashboard status endpoint
type Status struct {
	Detection    DetectionStats    `json:"detection"`
	Debouncer    detection.State   `json:"debouncer"`
	Disposal     DisposalStats     `json:"disposal"`
	Sensor       SensorStats       `json:"sensor"`
	Notification NotificationStats `json:"notification"`
	Queues       QueueStats        `json:"queues"`
}

// QueueStats are the counters of the fire-and-forget workers
type QueueStats struct {
	AuditWritten    int64 `json:"audit_written"`
	AuditFailed     int64 `json:"audit_failed"`
	AuditDropped    int64 `json:"audit_dropped"`
	AlertsPlayed    int64 `json:"alerts_played"`
	AlertsDropped   int64 `json:"alerts_dropped"`
	AudioEnabled    bool  `json:"audio_enabled"`
	DatasetUploaded int64 `json:"dataset_uploaded"`
	DatasetDropped  int64 `json:"dataset_dropped"`
	EventsDropped   int64 `json:"events_dropped"`
}

// StatusReporter collects the counters of every service
type StatusReporter struct {
	Detection    *DetectionService
	Debouncer    *detection.Debouncer
	Disposal     *DisposalService
	Sensor       *SensorService
	Notification *NotificationService
	Queues       func() QueueStats // optional
}

// Status returns a point-in-time report
func (r *StatusReporter) Status() interface{} {
	st := Status{
		Detection:    r.Detection.Stats(),
		Debouncer:    r.Debouncer.Snapshot(),
		Disposal:     r.Disposal.Stats(),
		Sensor:       r.Sensor.Stats(),
		Notification: r.Notification.Stats(),
	}
	if r.Queues != nil {
		st.Queues = r.Queues()
	}
	return st
}
