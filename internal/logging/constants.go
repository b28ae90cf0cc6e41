package logging

// Standardized field names for structured logging.
// Keeping them in one place lets log output be filtered per dataset or run.
const (
	FieldRunID      = "run_id"
	FieldDataset    = "dataset"
	FieldTableID    = "table_id"
	FieldFunction   = "function"
	FieldURL        = "url"
	FieldStatus     = "status"
	FieldStage      = "stage"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
	FieldCount      = "count"
	FieldLabel      = "label"
	FieldRegion     = "region"
	FieldDelimiter  = "delimiter"
	FieldInputFile  = "input_file"
	FieldOutputFile = "output_file"
)
