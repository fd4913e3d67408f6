// internal/model/delivery.go
package model

// SendTask is published by the dispatcher and consumed by the vendor worker.
type SendTask struct {
	LogID           int64  `json:"log_id"`
	To              string `json:"to"`
	Message         string `json:"message"`
	VendorMessageID string `json:"vendor_message_id"`
}

// Receipt is the vendor's report on a single send.
type Receipt struct {
	LogID           int64     `json:"log_id"`
	Status          LogStatus `json:"status"`
	VendorMessageID string    `json:"vendor_message_id"`
}
