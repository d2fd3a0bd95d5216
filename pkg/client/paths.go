package client

// Backend endpoints.
const (
	PathLogin      = "/auth/login"
	PathMe         = "/auth/me"
	PathHealth     = "/health"
	PathSystemInfo = "/api/system-info"
	PathCPU        = "/api/cpu"
	PathMemory     = "/api/memory"
	PathDisk       = "/api/disk"
	PathCompliance = "/api/compliance"
)
