package models

// SystemInfo identifies the monitored host.
type SystemInfo struct {
	Hostname      string `json:"hostname"`
	Platform      string `json:"platform"`
	PythonVersion string `json:"python_version"`
	RequestedBy   string `json:"requested_by"`
}

// CPU represents processor usage.
type CPU struct {
	Percent float64 `json:"cpu_percent"`
	Cores   int     `json:"cpu_cores"`
}

// Memory represents memory usage in gigabytes.
type Memory struct {
	Percent float64 `json:"memory_percent"`
	TotalGB float64 `json:"total_gb"`
	UsedGB  float64 `json:"used_gb"`
	FreeGB  float64 `json:"free_gb"`
}

// Disk represents root filesystem usage in gigabytes.
type Disk struct {
	Percent float64 `json:"disk_percent"`
	TotalGB float64 `json:"total_gb"`
	UsedGB  float64 `json:"used_gb"`
	FreeGB  float64 `json:"free_gb"`
}
