package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecodeDispatch(t *testing.T) {
	settings := Settings{Alert: Broadcast, Detect: LowBattery, CheckInterval: 500, TargetID: 0x1234, Duration: 60000}
	alert := Alert{StolenID: 7, VoltageData: 2750, PacketID: 1}

	tests := []struct {
		name    string
		tag     uint8
		payload []byte
		want    Message
		wantErr error
	}{
		{"settings", AMSettings, EncodeSettings(settings), settings, nil},
		{"alert", AMAlert, EncodeAlert(alert), alert, nil},
		{"alert bytes under settings tag", AMSettings, EncodeAlert(alert), nil, ErrTrailingBytes},
		{"settings bytes under alert tag", AMAlert, EncodeSettings(settings), nil, ErrShortInput},
		{"theft reserved", AMTheft, []byte{1, 2, 3}, nil, ErrReservedType},
		{"display settings reserved", DisSettings, nil, nil, ErrReservedType},
		{"collect alerts reserved", ColAlerts, nil, nil, ErrReservedType},
		{"unknown", 0x7E, nil, nil, ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.tag, tt.payload)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode() = %+v, want %+v", got, tt.want)
			}
			if got.Type() != tt.tag {
				t.Errorf("Type() = %d, want %d", got.Type(), tt.tag)
			}
		})
	}
}

func TestEncodeMessage(t *testing.T) {
	s := DefaultSettings()
	a := Alert{StolenID: 3}

	if got := Encode(s); !bytes.Equal(got, EncodeSettings(s)) {
		t.Errorf("Encode(Settings) = % X", got)
	}
	if got := Encode(&a); !bytes.Equal(got, EncodeAlert(a)) {
		t.Errorf("Encode(*Alert) = % X", got)
	}
	if got := Encode(nil); got != nil {
		t.Errorf("Encode(nil) = % X, want nil", got)
	}
}

func TestReservedTags(t *testing.T) {
	for _, tag := range []uint8{AMTheft, DisSettings, ColAlerts} {
		if !IsReserved(tag) {
			t.Errorf("IsReserved(%d) = false, want true", tag)
		}
	}
	for _, tag := range []uint8{AMSettings, AMAlert, 0} {
		if IsReserved(tag) {
			t.Errorf("IsReserved(%d) = true, want false", tag)
		}
	}
	if got := TypeName(AMAlert); got != "AM_ALERT" {
		t.Errorf("TypeName(AMAlert) = %q", got)
	}
	if got := TypeName(200); got != "UNKNOWN(200)" {
		t.Errorf("TypeName(200) = %q", got)
	}
}
