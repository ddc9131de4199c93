package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DailyStats holds one rep's dial counts for a day. Rows are replaced on recompute.
type DailyStats struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SDRID          uuid.UUID `json:"sdr_id" gorm:"column:sdr_id;type:uuid;not null;uniqueIndex:idx_daily_stats_sdr_date"`
	StatDate       time.Time `json:"stat_date" gorm:"type:date;not null;uniqueIndex:idx_daily_stats_sdr_date"`
	TotalDials     int       `json:"total_dials" gorm:"not null;default:0"`
	ConnectedCalls int       `json:"connected_calls" gorm:"not null;default:0"`
	ConnectionRate float64   `json:"connection_rate" gorm:"type:numeric(5,1);not null;default:0"`
	CallsOver5Min  int       `json:"calls_over_5_min" gorm:"column:calls_over_5_min;not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (DailyStats) TableName() string {
	return "daily_stats"
}

// DailyFocus is the coaching sentence derived from a day's analyses
type DailyFocus struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SDRID         uuid.UUID `json:"sdr_id" gorm:"column:sdr_id;type:uuid;not null;uniqueIndex:idx_daily_focus_sdr_date"`
	FocusDate     time.Time `json:"focus_date" gorm:"type:date;not null;uniqueIndex:idx_daily_focus_sdr_date"`
	Instruction   string    `json:"instruction" gorm:"type:text;not null"`
	CallsAnalyzed int       `json:"calls_analyzed" gorm:"not null;default:0"`
	Pattern       string    `json:"pattern" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (DailyFocus) TableName() string {
	return "daily_focus"
}

// WeekFocus is the structured coaching payload for the weakest area of a week
type WeekFocus struct {
	Title    string   `json:"title"`
	Triggers []string `json:"triggers"`
	Do       []string `json:"do"`
	Dont     []string `json:"dont"`
	Example  string   `json:"example"`
}

// IsEmpty reports whether no payload was generated
func (w WeekFocus) IsEmpty() bool {
	return w.Title == "" && len(w.Do) == 0 && len(w.Dont) == 0 && w.Example == ""
}

// WeeklySummary rolls up one rep's analyses for an ISO week (Monday to Friday)
type WeeklySummary struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SDRID         uuid.UUID `json:"sdr_id" gorm:"column:sdr_id;type:uuid;not null;uniqueIndex:idx_weekly_sdr_week"`
	WeekNumber    int       `json:"week_number" gorm:"not null;uniqueIndex:idx_weekly_sdr_week"`
	Year          int       `json:"year" gorm:"not null;uniqueIndex:idx_weekly_sdr_week"`
	WeekStart     time.Time `json:"week_start" gorm:"type:date;not null"`
	WeekEnd       time.Time `json:"week_end" gorm:"type:date;not null"`
	CallsReviewed int       `json:"calls_reviewed" gorm:"not null;default:0"`
	DemosBooked   int       `json:"demos_booked" gorm:"not null;default:0"`

	// Averages reuse the analysis score columns; nil means no scored calls
	SkillScores    `gorm:"embedded;embeddedPrefix:avg_"`
	OverallAverage *float64 `json:"overall_average" gorm:"type:numeric(3,1)"`
	OverallDelta   *float64 `json:"overall_delta" gorm:"type:numeric(4,1)"`

	FocusAreaName  *SkillArea                    `json:"focus_area_name" gorm:"type:varchar(32)"`
	FocusAreaScore *float64                      `json:"focus_area_score" gorm:"type:numeric(3,1)"`
	WeekFocus      datatypes.JSONType[WeekFocus] `json:"week_focus" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (WeeklySummary) TableName() string {
	return "weekly_summaries"
}

// MonthlyBenchmark holds team-wide figures for a month. Read-only for the pipeline.
type MonthlyBenchmark struct {
	ID                 uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Year               int       `json:"year" gorm:"not null;uniqueIndex:idx_benchmark_month"`
	Month              int       `json:"month" gorm:"not null;uniqueIndex:idx_benchmark_month"`
	TeamConnectionRate *float64  `json:"team_connection_rate" gorm:"type:numeric(5,1)"`
	TeamScore          *float64  `json:"team_score" gorm:"type:numeric(3,1)"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (MonthlyBenchmark) TableName() string {
	return "monthly_benchmarks"
}
