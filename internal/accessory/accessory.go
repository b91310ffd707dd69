package accessory

import (
	"encoding/json"
	"hash/fnv"
)

// Info holds the static identity published through the accessory
// information service.
type Info struct {
	Name             string
	Manufacturer     string
	Model            string
	SerialNumber     string
	FirmwareRevision string
}

// Accessory is one bridged device: an information service plus the
// services expressing its functions. The accessory ID is derived from
// the device ID so it is stable across restarts without any state file.
type Accessory struct {
	aid      uint64
	deviceID string
	services []*Service
}

// New creates an accessory for the given device with its information
// service populated from info. Empty info fields fall back to sensible
// placeholders so the service is always complete.
func New(deviceID string, info Info) *Accessory {
	a := &Accessory{
		aid:      DeriveAID(deviceID),
		deviceID: deviceID,
	}

	if info.Name == "" {
		info.Name = deviceID
	}
	if info.Manufacturer == "" {
		info.Manufacturer = "Gray Logic"
	}
	if info.Model == "" {
		info.Model = "Bridged Device"
	}
	if info.SerialNumber == "" {
		info.SerialNumber = deviceID
	}
	if info.FirmwareRevision == "" {
		info.FirmwareRevision = "1.0.0"
	}

	infoSvc := NewService(ServiceAccessoryInformation)
	infoSvc.AddCharacteristic(NewIdentify())
	infoSvc.AddCharacteristic(NewManufacturer(info.Manufacturer))
	infoSvc.AddCharacteristic(NewModel(info.Model))
	infoSvc.AddCharacteristic(NewName(info.Name))
	infoSvc.AddCharacteristic(NewSerialNumber(info.SerialNumber))
	infoSvc.AddCharacteristic(NewFirmwareRevision(info.FirmwareRevision))

	a.services = []*Service{infoSvc}
	return a
}

// DeriveAID maps a device ID to a stable accessory ID.
//
// FNV-1a over the ID, folded away from the reserved values: aid 0 is
// invalid and aid 1 conventionally names the bridge itself, so device
// accessories always land at 2 or above.
func DeriveAID(deviceID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(deviceID)) //nolint:errcheck // hash.Hash Write never errors
	return h.Sum64()%(1<<62) + 2
}

// AID returns the accessory ID.
func (a *Accessory) AID() uint64 {
	return a.aid
}

// DeviceID returns the core device ID the accessory represents.
func (a *Accessory) DeviceID() string {
	return a.deviceID
}

// AddService appends a service and reassigns instance IDs across the
// whole accessory so they stay sequential.
func (a *Accessory) AddService(s *Service) {
	a.services = append(a.services, s)
	a.assignIIDs()
}

// Services returns the accessory's services in declaration order.
// The slice is shared; callers must not modify it.
func (a *Accessory) Services() []*Service {
	return a.services
}

// Service returns the first service of the given type, or nil.
func (a *Accessory) Service(typ string) *Service {
	for _, s := range a.services {
		if s.Type == typ {
			return s
		}
	}
	return nil
}

// Characteristic finds a characteristic by instance ID, or nil.
func (a *Accessory) Characteristic(iid uint64) *Characteristic {
	for _, s := range a.services {
		for _, c := range s.Characteristics() {
			if c.IID() == iid {
				return c
			}
		}
	}
	return nil
}

// assignIIDs numbers services and characteristics sequentially from 1.
func (a *Accessory) assignIIDs() {
	var iid uint64 = 1
	for _, s := range a.services {
		s.iid = iid
		iid++
		for _, c := range s.Characteristics() {
			c.setIID(iid)
			iid++
		}
	}
}

// accessoryJSON is the wire shape of an accessory.
type accessoryJSON struct {
	AID      uint64     `json:"aid"`
	DeviceID string     `json:"device_id"`
	Services []*Service `json:"services"`
}

// MarshalJSON renders the accessory tree in the conventional wire shape,
// extended with the core device ID so API consumers can correlate.
func (a *Accessory) MarshalJSON() ([]byte, error) {
	return json.Marshal(accessoryJSON{
		AID:      a.aid,
		DeviceID: a.deviceID,
		Services: a.services,
	})
}
