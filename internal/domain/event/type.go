package event

// Type identifies a lifecycle event
type Type string

const (
	TypeReportCreated   Type = "report.created"
	TypeReportClosed    Type = "report.closed"
	TypeReportValidated Type = "report.validated"
	TypeReportInPayment Type = "report.in_payment"
	TypeLineRejected    Type = "line.rejected"
	TypeLineDeferred    Type = "line.deferred"
	TypeLineDeleted     Type = "line.deleted"
)

// All lists every event type, in lifecycle order
var All = []Type{
	TypeReportCreated,
	TypeReportClosed,
	TypeReportValidated,
	TypeReportInPayment,
	TypeLineRejected,
	TypeLineDeferred,
	TypeLineDeleted,
}

// String returns the event type name
func (t Type) String() string {
	return string(t)
}

// IsValid checks t against the declared types
func (t Type) IsValid() bool {
	for _, known := range All {
		if t == known {
			return true
		}
	}
	return false
}
