package store

import "gorm.io/datatypes"

// Run is one ingested benchmark submission. Every free-text column is kept
// exactly as submitted; the derived tables are rebuilt from these.
type Run struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	Timestamp  *string `json:"timestamp"`
	VramUsage  *string `json:"vram_usage"`
	Info       *string `json:"info"`
	SystemInfo *string `json:"system_info"`
	ModelInfo  *string `json:"model_info"`
	DeviceInfo *string `json:"device_info"`
	Xformers   *string `json:"xformers"`
	ModelName  *string `json:"model_name"`
	User       *string `json:"user"`
	Notes      *string `json:"notes"`
}

// TableName overrides the table name.
func (Run) TableName() string { return "runs" }

// PerformanceResult is the it/s series of a run.
type PerformanceResult struct {
	ID        uint                         `gorm:"primaryKey" json:"id"`
	RunID     uint                         `gorm:"not null;index" json:"run_id"`
	Run       *Run                         `gorm:"foreignKey:RunID" json:"-"`
	Its       string                       `json:"its"`
	ItsValues datatypes.JSONSlice[float64] `json:"its_values"`
	AvgIts    *float64                     `json:"avg_its"`
}

// TableName overrides the table name.
func (PerformanceResult) TableName() string { return "performanceResult" }

// AppDetails identifies the web UI that produced a run.
type AppDetails struct {
	ID      uint    `gorm:"primaryKey" json:"id"`
	RunID   uint    `gorm:"not null;index" json:"run_id"`
	Run     *Run    `gorm:"foreignKey:RunID" json:"-"`
	AppName *string `json:"app_name"`
	Updated *string `json:"updated"`
	Hash    *string `json:"hash"`
	URL     *string `gorm:"column:url" json:"url"`
}

// TableName overrides the table name.
func (AppDetails) TableName() string { return "AppDetails" }

// SystemInfo describes the host of a run. Rows exist only for runs whose
// system_info carried all five fields.
type SystemInfo struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	RunID   uint   `gorm:"not null;index" json:"run_id"`
	Run     *Run   `gorm:"foreignKey:RunID" json:"-"`
	Arch    string `json:"arch"`
	CPU     string `gorm:"column:cpu" json:"cpu"`
	System  string `json:"system"`
	Release string `json:"release"`
	Python  string `json:"python"`
}

// TableName overrides the table name.
func (SystemInfo) TableName() string { return "SystemInfo" }

// Libraries holds library versions of a run. Xformers is parsed from
// model_info while Xformers1 is the run's own xformers column verbatim.
type Libraries struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	RunID        uint    `gorm:"not null;index" json:"run_id"`
	Run          *Run    `gorm:"foreignKey:RunID" json:"-"`
	Torch        *string `json:"torch"`
	Xformers     *string `json:"xformers"`
	Xformers1    *string `gorm:"column:xformers1" json:"xformers1"`
	Diffusers    *string `json:"diffusers"`
	Transformers *string `json:"transformers"`
}

// TableName overrides the table name.
func (Libraries) TableName() string { return "Libraries" }

// GPU describes the accelerator of a run. Brand and IsLaptop are filled in
// by the enrichment passes, not at derivation time.
type GPU struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	RunID    uint    `gorm:"not null;index" json:"run_id"`
	Run      *Run    `gorm:"foreignKey:RunID" json:"-"`
	Device   *string `json:"device"`
	Driver   *string `json:"driver"`
	GPUChip  *string `gorm:"column:gpu_chip" json:"gpu_chip"`
	Brand    *string `json:"brand"`
	IsLaptop *bool   `gorm:"column:isLaptop" json:"is_laptop"`
}

// TableName overrides the table name.
func (GPU) TableName() string { return "GPU" }

// RunMoreDetails is a projection of a run's descriptive columns, linked to
// a ModelMap entry once one matches its model name.
type RunMoreDetails struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	RunID      uint    `gorm:"not null;index" json:"run_id"`
	Run        *Run    `gorm:"foreignKey:RunID" json:"-"`
	Timestamp  *string `json:"timestamp"`
	ModelName  *string `json:"model_name"`
	User       *string `json:"user"`
	Notes      *string `json:"notes"`
	ModelMapID *uint   `gorm:"column:ModelMapId" json:"model_map_id"`
}

// TableName overrides the table name.
func (RunMoreDetails) TableName() string { return "RunMoreDetails" }

// ModelMap maps a checkpoint name to the base model it derives from.
type ModelMap struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	ModelName *string `gorm:"index" json:"model_name"`
	BaseModel *string `json:"base_model"`
}

// TableName overrides the table name.
func (ModelMap) TableName() string { return "ModelMap" }

// AppDetailsAnalysis counts app_details rows lacking an app name.
type AppDetailsAnalysis struct {
	TotalRows             int64 `json:"total_rows"`
	NullAppNameNullURL    int64 `json:"null_app_name_null_url"`
	NullAppNameNonNullURL int64 `json:"null_app_name_non_null_url"`
}

// AppNameFixes are the names written by FixAppNames.
type AppNameFixes struct {
	Automatic1111      string `json:"automatic1111_name"`
	Vladmandic         string `json:"vladmandic_name"`
	StableDiffusion    string `json:"stable_diffusion_name"`
	NullAppNameNullURL string `json:"null_app_name_null_url_name"`
}

// AppNameFixResult holds the rows affected by each FixAppNames update.
type AppNameFixResult struct {
	Automatic1111      int64 `json:"automatic1111_updated"`
	Vladmandic         int64 `json:"vladmandic_updated"`
	StableDiffusion    int64 `json:"stable_diffusion_updated"`
	NullAppNameNullURL int64 `json:"null_app_name_null_url_updated"`
}

// Total is the sum of all affected rows.
func (r AppNameFixResult) Total() int64 {
	return r.Automatic1111 + r.Vladmandic + r.StableDiffusion + r.NullAppNameNullURL
}
