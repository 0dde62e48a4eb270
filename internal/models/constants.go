package models

const (
	CatalogSourceCSV      = "csv"
	CatalogSourcePostgres = "postgres"

	OutputFormatCSV     = "csv"
	OutputFormatJSON    = "json"
	OutputFormatParquet = "parquet"
	OutputFormatConsole = "console"

	DestinationLocal = "local"
	DestinationCloud = "cloud"

	TopicPlanEntries   = "plan_entries"
	TopicPlanSummaries = "plan_summaries"

	PlanStatusOptimal    = "optimal"
	PlanStatusSuboptimal = "suboptimal"
	PlanStatusCancelled  = "cancelled"
)
