package toll

import "fmt"

// VehicleClass is the registered class of a vehicle, driving its toll rate.
type VehicleClass string

const (
	ClassCar   VehicleClass = "car"
	ClassTruck VehicleClass = "truck"
	ClassBus   VehicleClass = "bus"
)

// AllClasses lists every class the rate table must cover.
var AllClasses = []VehicleClass{ClassCar, ClassTruck, ClassBus}

// ParseClass normalizes a registry row's type column.
func ParseClass(s string) (VehicleClass, error) {
	switch VehicleClass(s) {
	case ClassCar, ClassTruck, ClassBus:
		return VehicleClass(s), nil
	}
	return "", fmt.Errorf("unknown vehicle class %q", s)
}

// RateTable maps vehicle class to toll cents. Immutable after load; shared
// read-only by the billing engine.
type RateTable map[VehicleClass]int64

// Validate requires an entry for every class in use. Called once at
// startup; a gap here aborts the process before any frame is accepted.
func (rt RateTable) Validate() error {
	for _, class := range AllClasses {
		rate, ok := rt[class]
		if !ok {
			return fmt.Errorf("rate table missing class %s", class)
		}
		if rate < 0 {
			return fmt.Errorf("rate table has negative rate for %s", class)
		}
	}
	return nil
}
