package toll

import (
	"fmt"
	"os"
	"sync"
	"time"
)

const transactionHeader = "timestamp,vehicle_id,payment_method,amount,balance_remaining\n"

// TransactionLog is the append-only CSV transaction collaborator. Writers
// are serialized so concurrent lanes cannot interleave lines.
type TransactionLog struct {
	mu sync.Mutex
	f  *os.File
}

// OpenTransactionLog opens (or creates) the CSV sink, writing the header
// when the file is new.
func OpenTransactionLog(path string) (*TransactionLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open transaction log: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat transaction log: %w", err)
	}
	if st.Size() == 0 {
		if _, err := f.WriteString(transactionHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("write transaction header: %w", err)
		}
	}
	return &TransactionLog{f: f}, nil
}

// Append writes one transaction line and syncs it to disk.
func (l *TransactionLog) Append(rec TransactionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("%s,%s,%s,%s,%s\n",
		rec.Timestamp.Format(time.RFC3339),
		rec.VehicleKey,
		rec.Method,
		FormatAmount(rec.AmountCents),
		FormatAmount(rec.BalanceCents),
	)
	if _, err := l.f.WriteString(line); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return l.f.Sync()
}

// Close releases the underlying file.
func (l *TransactionLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// ErrorLog is the append-only error collaborator: one "timestamp: message"
// line per failure.
type ErrorLog struct {
	mu sync.Mutex
	f  *os.File
}

// OpenErrorLog opens (or creates) the error sink.
func OpenErrorLog(path string) (*ErrorLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open error log: %w", err)
	}
	return &ErrorLog{f: f}, nil
}

// Append writes one error line and syncs it to disk.
func (l *ErrorLog) Append(msg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("%s: %s\n", time.Now().Format(time.RFC3339), msg)
	if _, err := l.f.WriteString(line); err != nil {
		return fmt.Errorf("append error log: %w", err)
	}
	return l.f.Sync()
}

// Appendf formats and appends one error line.
func (l *ErrorLog) Appendf(format string, args ...any) error {
	return l.Append(fmt.Sprintf(format, args...))
}

// Close releases the underlying file.
func (l *ErrorLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
