/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package telemetry

const (
	// MetricPrefix marks the metrics the reporter publishes
	MetricPrefix = "st_"

	TelemetryUpdatesCount  = "st_telemetry_updates_count"
	RejectedReadingsCount  = "st_rejected_readings_count"
	AnomaliesCount         = "st_anomalies_count"
	ReplansCount           = "st_replans_count"
	MissionsStartedCount   = "st_missions_started_count"
	MissionsCompletedCount = "st_missions_completed_count"
	RiskLevelCountPrefix   = "st_risk_level_count_"
	AnomalyScoreP95        = "st_anomaly_score_p95"
	PublishErrorsCount     = "st_publish_errors_count"
)
