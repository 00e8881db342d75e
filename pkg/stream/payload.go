package stream

import (
	"encoding/base64"
	"time"
)

const (
	TimestampFormat = "2006-01-02T15:04:05.000Z07:00"
	DefaultDeviceID = "computer_webcam"
)

// Payload is the JSON body of a single frame upload.
type Payload struct {
	Image     string `json:"image"`
	Timestamp string `json:"timestamp"`
	DeviceID  string `json:"device_id"`
}

func NewPayload(jpeg []byte, ts time.Time, deviceID string) *Payload {
	return &Payload{
		Image:     base64.StdEncoding.EncodeToString(jpeg),
		Timestamp: ts.Format(TimestampFormat),
		DeviceID:  deviceID,
	}
}

// JPEG decodes the image field back into the compressed bytes.
func (p *Payload) JPEG() ([]byte, error) {
	return base64.StdEncoding.DecodeString(p.Image)
}

// Time parses the timestamp field.
func (p *Payload) Time() (time.Time, error) {
	return time.Parse(TimestampFormat, p.Timestamp)
}
