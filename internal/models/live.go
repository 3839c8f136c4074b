package models

// LiveCategory is one provider live-TV category, scoped to a tenant.
type LiveCategory struct {
	TenantID     string `json:"tenant_id"`
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
}

// LiveChannel is one provider live channel, scoped to a tenant. Ordinal is
// the provider's channel number and drives listing order.
type LiveChannel struct {
	TenantID     string `json:"tenant_id"`
	StreamID     int64  `json:"stream_id"`
	EPGChannelID string `json:"epg_channel_id,omitempty"`
	CategoryID   string `json:"category_id,omitempty"`
	CategoryName string `json:"category_name,omitempty"`
	Name         string `json:"name"`
	Icon         string `json:"icon,omitempty"`
	Ordinal      int    `json:"ordinal"`
}
