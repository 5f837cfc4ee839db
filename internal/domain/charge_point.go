package domain

import "time"

// ChargePointStatus mirrors the OCPP 1.6 ChargePointStatus enumeration as
// reported on connector 0 (the charge point as a whole).
type ChargePointStatus string

const (
	ChargePointStatusUnknown       ChargePointStatus = "Unknown"
	ChargePointStatusAvailable     ChargePointStatus = "Available"
	ChargePointStatusPreparing     ChargePointStatus = "Preparing"
	ChargePointStatusCharging      ChargePointStatus = "Charging"
	ChargePointStatusSuspendedEV   ChargePointStatus = "SuspendedEV"
	ChargePointStatusSuspendedEVSE ChargePointStatus = "SuspendedEVSE"
	ChargePointStatusFinishing     ChargePointStatus = "Finishing"
	ChargePointStatusReserved      ChargePointStatus = "Reserved"
	ChargePointStatusUnavailable   ChargePointStatus = "Unavailable"
	ChargePointStatusFaulted       ChargePointStatus = "Faulted"
)

// BootStatus is the outcome of the most recent BootNotification.
type BootStatus string

const (
	BootStatusPending  BootStatus = "Pending"
	BootStatusAccepted BootStatus = "Accepted"
	BootStatusRejected BootStatus = "Rejected"
)

// ChargePoint is a registered station, keyed by the identifier the CP
// presents in its WebSocket upgrade path.
type ChargePoint struct {
	ID                      string            `json:"id" gorm:"primaryKey;size:50"`
	Vendor                  string            `json:"vendor" gorm:"size:20"`
	Model                   string            `json:"model" gorm:"size:20"`
	ChargePointSerialNumber string            `json:"charge_point_serial_number" gorm:"size:25"`
	ChargeBoxSerialNumber   string            `json:"charge_box_serial_number" gorm:"size:25"`
	FirmwareVersion         string            `json:"firmware_version" gorm:"size:50"`
	ICCID                   string            `json:"iccid" gorm:"size:20"`
	IMSI                    string            `json:"imsi" gorm:"size:20"`
	MeterType               string            `json:"meter_type" gorm:"size:25"`
	MeterSerialNumber       string            `json:"meter_serial_number" gorm:"size:25"`
	Status                  ChargePointStatus `json:"status" gorm:"size:20;default:Unknown"`
	LastSeen                time.Time         `json:"last_seen"`
	IsOnline                bool              `json:"is_online"`
	BootStatus              BootStatus        `json:"boot_status" gorm:"size:10;default:Pending"`
	CreatedAt               time.Time         `json:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at"`
}

func (ChargePoint) TableName() string { return "charge_points" }

// ConnectorStatus is the append-only status-notification log. The "current"
// status of a connector is the most recent row ordered by CreatedAt, with
// Timestamp (the CP-supplied value, if any) as a tie-breaker.
type ConnectorStatus struct {
	ID              uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ChargePointID   string    `json:"charge_point_id" gorm:"size:50;index"`
	ConnectorID     int       `json:"connector_id"`
	Status          string    `json:"status" gorm:"size:20"`
	ErrorCode       string    `json:"error_code" gorm:"size:30"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	Info            string    `json:"info" gorm:"size:50"`
	VendorID        string    `json:"vendor_id" gorm:"size:255"`
	VendorErrorCode string    `json:"vendor_error_code" gorm:"size:50"`
	CreatedAt       time.Time `json:"created_at"`
}

func (ConnectorStatus) TableName() string { return "connector_statuses" }
