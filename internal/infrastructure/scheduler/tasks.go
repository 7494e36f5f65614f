package scheduler

import "github.com/pharmapos/backend/internal/infrastructure/config"

// Task names
const (
	TaskWarmDashboard = "analytics.warm_dashboard"
	TaskWarmFinancial = "analytics.warm_financial"
	TaskExpiryScan    = "notifications.expiry_scan"
	TaskRetention     = "notifications.retention"
)

// EntriesFromConfig maps the configured cron specs to tasks
func EntriesFromConfig(cfg config.SchedulerConfig) []Entry {
	return []Entry{
		{Task: TaskWarmDashboard, Spec: cfg.DashboardSpec},
		{Task: TaskWarmFinancial, Spec: cfg.FinancialSpec},
		{Task: TaskExpiryScan, Spec: cfg.ExpiryScanSpec},
		{Task: TaskRetention, Spec: cfg.RetentionSpec},
	}
}
