package models

import "fmt"

const maxDeviceFieldLength = 255

// DeviceInfo is the allow-listed device metadata a client may attach to a
// login. Keys outside this set are dropped when the JSON is decoded.
type DeviceInfo struct {
	AppVersion  string `json:"app_version,omitempty" dynamodbav:"app_version,omitempty"`
	PushToken   string `json:"push_token,omitempty" dynamodbav:"push_token,omitempty"`
	DeviceOS    string `json:"device_os,omitempty" dynamodbav:"device_os,omitempty"`
	OSVersion   string `json:"os_version,omitempty" dynamodbav:"os_version,omitempty"`
	DeviceModel string `json:"device_model,omitempty" dynamodbav:"device_model,omitempty"`
	DeviceName  string `json:"device_name,omitempty" dynamodbav:"device_name,omitempty"`
	UserAgent   string `json:"user_agent,omitempty" dynamodbav:"user_agent,omitempty"`
	DeviceID    string `json:"device_id,omitempty" dynamodbav:"device_id,omitempty"`
}

func (d DeviceInfo) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"app_version", d.AppVersion},
		{"push_token", d.PushToken},
		{"device_os", d.DeviceOS},
		{"os_version", d.OSVersion},
		{"device_model", d.DeviceModel},
		{"device_name", d.DeviceName},
		{"user_agent", d.UserAgent},
		{"device_id", d.DeviceID},
	}
	for _, f := range fields {
		if len(f.value) > maxDeviceFieldLength {
			return fmt.Errorf("device_info.%s exceeds %d characters", f.name, maxDeviceFieldLength)
		}
	}
	return nil
}
