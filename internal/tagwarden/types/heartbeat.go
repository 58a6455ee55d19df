package types

type HeartbeatRequest struct {
	Scanner         string `json:"scanner" validate:"required"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
	UptimeSeconds   uint64 `json:"uptime_s,omitempty" validate:"max=9223372036854775"` // stored as int64 milliseconds
	RSSIDbm         *int   `json:"rssi_dbm,omitempty"`
	IP              string `json:"ip,omitempty" validate:"omitempty,ip"`
}

type HeartbeatResponse struct {
	OK         bool   `json:"ok"`
	Active     bool   `json:"active"`
	Scanner    string `json:"scanner"`
	ServerTime string `json:"server_time"`
}
