package domain

import "time"

// SessionStatus is the lifecycle state of a Session (OCPP "transaction").
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "Active"
	SessionStatusCompleted SessionStatus = "Completed"
)

// StopReason enumerates the OCPP 1.6 StopTransaction.reason values.
type StopReason string

const (
	StopReasonLocal          StopReason = "Local"
	StopReasonRemote         StopReason = "Remote"
	StopReasonEmergencyStop  StopReason = "EmergencyStop"
	StopReasonEVDisconnected StopReason = "EVDisconnected"
	StopReasonHardReset      StopReason = "HardReset"
	StopReasonSoftReset      StopReason = "SoftReset"
	StopReasonPowerLoss      StopReason = "PowerLoss"
	StopReasonReboot         StopReason = "Reboot"
	StopReasonDeAuthorized   StopReason = "DeAuthorized"
	StopReasonOther          StopReason = "Other"
	StopReasonUnlockCommand  StopReason = "UnlockCommand"
)

// Session is one charging session, identified externally by TransactionID,
// the integer the Central System assigns at StartTransaction time.
type Session struct {
	ID             uint          `json:"id" gorm:"primaryKey;autoIncrement"`
	TransactionID  int           `json:"transaction_id" gorm:"uniqueIndex"`
	ChargePointID  string        `json:"charge_point_id" gorm:"size:50;index"`
	IdTagID        uint          `json:"id_tag_id"`
	ConnectorID    int           `json:"connector_id"`
	MeterStart     int           `json:"meter_start"`
	MeterStop      *int          `json:"meter_stop,omitempty"`
	StartTimestamp time.Time     `json:"start_timestamp"`
	StopTimestamp  *time.Time    `json:"stop_timestamp,omitempty"`
	Status         SessionStatus `json:"status" gorm:"size:20;default:Active"`
	StopReason     *StopReason   `json:"stop_reason,omitempty" gorm:"size:50"`
	EnergyConsumed *float64      `json:"energy_consumed,omitempty"`
	Cost           *float64      `json:"cost,omitempty"`
	ReservationID  *int          `json:"reservation_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (Session) TableName() string { return "sessions" }

// IdTagStatus mirrors the OCPP 1.6 AuthorizationStatus enumeration.
type IdTagStatus string

const (
	IdTagStatusAccepted IdTagStatus = "Accepted"
	IdTagStatusBlocked  IdTagStatus = "Blocked"
	IdTagStatusExpired  IdTagStatus = "Expired"
	IdTagStatusInvalid  IdTagStatus = "Invalid"
)

// IdTag is an RFID or equivalent credential used to authorize a Session.
type IdTag struct {
	ID          uint        `json:"id" gorm:"primaryKey;autoIncrement"`
	Tag         string      `json:"tag" gorm:"size:50;uniqueIndex"`
	Status      IdTagStatus `json:"status" gorm:"size:20;default:Accepted"`
	UserName    string      `json:"user_name,omitempty" gorm:"size:100"`
	UserEmail   string      `json:"user_email,omitempty" gorm:"size:100"`
	ExpiryDate  *time.Time  `json:"expiry_date,omitempty"`
	ParentIdTag *string     `json:"parent_id_tag,omitempty" gorm:"size:50"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (IdTag) TableName() string { return "id_tags" }

// MeterValue is a single sampled reading, optionally attached to a Session.
type MeterValue struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SessionID *uint     `json:"session_id,omitempty" gorm:"index"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit" gorm:"size:10;default:Wh"`
	Measurand string    `json:"measurand" gorm:"size:50;default:Energy.Active.Import.Register"`
	Phase     string    `json:"phase,omitempty" gorm:"size:10"`
	Location  string    `json:"location" gorm:"size:20;default:Outlet"`
	Context   string    `json:"context" gorm:"size:20;default:Sample.Periodic"`
	Format    string    `json:"format" gorm:"size:10;default:Raw"`
	CreatedAt time.Time `json:"created_at"`
}

func (MeterValue) TableName() string { return "meter_values" }
