package models

// DashboardStats aggregates the admin overview counters.
type DashboardStats struct {
	Users             int    `db:"users" json:"users"`
	Sessions          int    `db:"sessions" json:"sessions"`
	Departments       int    `db:"departments" json:"departments"`
	Folders           int    `db:"folders" json:"folders"`
	Files             int    `db:"files" json:"files"`
	ShareLinks        int    `db:"sharelinks" json:"sharelinks"`
	Notifications     int    `db:"notifications" json:"notifications"`
	AllowedExtensions int    `db:"allowed_extensions" json:"allowed_extensions"`
	StorageBytes      int64  `db:"storage_bytes" json:"storage_bytes"`
	Storage           string `db:"-" json:"storage"`
}

// ChartPoint is one labelled value of a chart series.
type ChartPoint struct {
	Label string `db:"label" json:"label"`
	Value int    `db:"value" json:"value"`
}

// ChartSeries is a chart payload split into parallel label and data arrays.
type ChartSeries struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

// NewChartSeries converts points into parallel arrays.
func NewChartSeries(points []ChartPoint) ChartSeries {
	series := ChartSeries{Labels: make([]string, 0, len(points)), Data: make([]int, 0, len(points))}
	for _, p := range points {
		series.Labels = append(series.Labels, p.Label)
		series.Data = append(series.Data, p.Value)
	}
	return series
}
