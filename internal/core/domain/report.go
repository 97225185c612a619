package domain

// ReportEvent is one leak alert as written to the report file.
type ReportEvent struct {
	DetectedAt      string `json:"detected_at"`
	Destination     string `json:"destination"`
	OutInterface    string `json:"out_interface"`
	Gateway         string `json:"gateway,omitempty"`
	TunnelInterface string `json:"tunnel_interface"`
}
