package accessory

import "encoding/json"

// Service type IDs (short form).
const (
	ServiceAccessoryInformation = "3E"
	ServiceHeaterCooler         = "BC"
)

// Service groups the characteristics of one accessory function.
type Service struct {
	Type string

	iid             uint64
	characteristics []*Characteristic
}

// NewService creates an empty service of the given type.
func NewService(typ string) *Service {
	return &Service{Type: typ}
}

// AddCharacteristic appends a characteristic to the service.
func (s *Service) AddCharacteristic(c *Characteristic) {
	s.characteristics = append(s.characteristics, c)
}

// Characteristics returns the service's characteristics in declaration
// order. The slice is shared; callers must not modify it.
func (s *Service) Characteristics() []*Characteristic {
	return s.characteristics
}

// Characteristic returns the first characteristic of the given type, or
// nil if the service has none.
func (s *Service) Characteristic(typ string) *Characteristic {
	for _, c := range s.characteristics {
		if c.Type == typ {
			return c
		}
	}
	return nil
}

// IID returns the instance ID assigned when the accessory tree was built.
func (s *Service) IID() uint64 {
	return s.iid
}

// serviceJSON is the wire shape of a service.
type serviceJSON struct {
	IID             uint64            `json:"iid"`
	Type            string            `json:"type"`
	Characteristics []*Characteristic `json:"characteristics"`
}

// MarshalJSON renders the service in the conventional accessory wire shape.
func (s *Service) MarshalJSON() ([]byte, error) {
	return json.Marshal(serviceJSON{
		IID:             s.iid,
		Type:            s.Type,
		Characteristics: s.characteristics,
	})
}
