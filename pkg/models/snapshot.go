package models

import "time"

// Snapshot holds the results of one dashboard load cycle across all five endpoints.
// A nil field means the resource is absent for this cycle.
type Snapshot struct {
	SystemInfo *SystemInfo       `json:"system_info,omitempty"`
	CPU        *CPU              `json:"cpu,omitempty"`
	Memory     *Memory           `json:"memory,omitempty"`
	Disk       *Disk             `json:"disk,omitempty"`
	Compliance *ComplianceReport `json:"compliance,omitempty"`
	LoadedAt   time.Time         `json:"loaded_at"`
}
