package zcl

// Foundation command IDs of the reports the catalog consumes.
const (
	FoundationReadAttributesResponse uint8 = 0x01
	FoundationReportAttributes       uint8 = 0x0A
)

// ZCL status codes
const (
	ZCLStatusSuccess         uint8 = 0x00
	ZCLStatusFailure         uint8 = 0x01
	ZCLStatusUnsupportedAttr uint8 = 0x86
	ZCLStatusUnreportable    uint8 = 0x8C
)

// MessageType maps a foundation command to the message type name used by
// converters ("attributeReport", "readResponse").
func MessageType(cmd uint8) string {
	switch cmd {
	case FoundationReportAttributes:
		return "attributeReport"
	case FoundationReadAttributesResponse:
		return "readResponse"
	}
	return ""
}
