package toll

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrInsufficientFunds is returned when a debit exceeds the balance.
// Negative balances are not permitted: a crossing the account cannot cover
// is rejected rather than carried as debt.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrUnknownVehicle is returned when neither plate nor RFID matches.
var ErrUnknownVehicle = errors.New("unknown vehicle")

// Vehicle is one registered account: immutable identity plus a mutable
// balance guarded by its own lock so concurrent crossings of the same
// vehicle serialize without stalling other lanes.
type Vehicle struct {
	Plate string
	RFID  string
	Class VehicleClass

	mu           sync.Mutex
	balanceCents int64
}

// Balance returns the current balance in cents.
func (v *Vehicle) Balance() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balanceCents
}

// debit atomically subtracts amount, rejecting overdraft.
func (v *Vehicle) debit(amount int64) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if amount > v.balanceCents {
		return v.balanceCents, ErrInsufficientFunds
	}
	v.balanceCents -= amount
	return v.balanceCents, nil
}

// credit atomically adds amount.
func (v *Vehicle) credit(amount int64) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balanceCents += amount
	return v.balanceCents
}

// Registry is the in-memory vehicle index, keyed by plate and by RFID tag.
// Lookups take the read lock; only registration takes the write lock, so
// unrelated lanes never contend.
type Registry struct {
	mu      sync.RWMutex
	byPlate map[string]*Vehicle
	byRFID  map[string]*Vehicle
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byPlate: make(map[string]*Vehicle),
		byRFID:  make(map[string]*Vehicle),
	}
}

// LoadRegistry bulk-loads the registry CSV (plate,rfid,balance,type with a
// header row). Malformed rows are skipped and reported to the error sink;
// a bad row never aborts the load. Loading the same file twice yields
// identical state.
func LoadRegistry(path string, errlog *ErrorLog) (*Registry, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	defer f.Close()

	reg := NewRegistry()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if lineNo == 1 || line == "" {
			continue // header
		}
		v, err := parseRegistryRow(line)
		if err != nil {
			if errlog != nil {
				_ = errlog.Appendf("registry line %d skipped: %v", lineNo, err)
			}
			continue
		}
		if err := reg.Register(v); err != nil {
			if errlog != nil {
				_ = errlog.Appendf("registry line %d skipped: %v", lineNo, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return reg, nil
}

func parseRegistryRow(line string) (*Vehicle, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("expected 4 fields, got %d", len(parts))
	}
	plate := strings.ToUpper(strings.TrimSpace(parts[0]))
	rfid := strings.TrimSpace(parts[1])
	if plate == "" {
		return nil, fmt.Errorf("empty plate")
	}
	balance, err := ParseAmount(parts[2])
	if err != nil {
		return nil, err
	}
	if balance < 0 {
		return nil, fmt.Errorf("negative balance %s", parts[2])
	}
	class, err := ParseClass(strings.TrimSpace(parts[3]))
	if err != nil {
		return nil, err
	}
	return &Vehicle{Plate: plate, RFID: rfid, Class: class, balanceCents: balance}, nil
}

// Register adds a vehicle; duplicate plate or RFID keys are rejected so an
// account is never indexed twice.
func (r *Registry) Register(v *Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byPlate[v.Plate]; dup {
		return fmt.Errorf("duplicate plate %s", v.Plate)
	}
	if v.RFID != "" {
		if _, dup := r.byRFID[v.RFID]; dup {
			return fmt.Errorf("duplicate rfid %s", v.RFID)
		}
	}
	r.byPlate[v.Plate] = v
	if v.RFID != "" {
		r.byRFID[v.RFID] = v
	}
	return nil
}

// Lookup resolves a key as a plate first, then as an RFID tag.
func (r *Registry) Lookup(key string) (*Vehicle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.byPlate[strings.ToUpper(key)]; ok {
		return v, true
	}
	if v, ok := r.byRFID[key]; ok {
		return v, true
	}
	return nil, false
}

// Debit subtracts amount from the vehicle's balance, returning the new
// balance. ErrInsufficientFunds leaves the balance untouched.
func (r *Registry) Debit(key string, amount int64) (int64, error) {
	v, ok := r.Lookup(key)
	if !ok {
		return 0, ErrUnknownVehicle
	}
	return v.debit(amount)
}

// Credit adds amount to the vehicle's balance (account top-up), returning
// the new balance.
func (r *Registry) Credit(key string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive")
	}
	v, ok := r.Lookup(key)
	if !ok {
		return 0, ErrUnknownVehicle
	}
	return v.credit(amount), nil
}

// Len returns the number of registered vehicles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPlate)
}

// Snapshot writes the registry back out in load format, plates sorted for
// a stable file.
func (r *Registry) Snapshot(path string) error {
	r.mu.RLock()
	plates := make([]string, 0, len(r.byPlate))
	for p := range r.byPlate {
		plates = append(plates, p)
	}
	sort.Strings(plates)
	var b strings.Builder
	b.WriteString("plate,rfid,balance,type\n")
	for _, p := range plates {
		v := r.byPlate[p]
		fmt.Fprintf(&b, "%s,%s,%s,%s\n", v.Plate, v.RFID, FormatAmount(v.Balance()), v.Class)
	}
	r.mu.RUnlock()
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write registry snapshot: %w", err)
	}
	return nil
}
